package kraft

import "testing"

func TestReplicaKeyMatches(t *testing.T) {
	idOnly := NewReplicaKey(1)
	withDir := NewReplicaKeyWithDirectory(1, [16]byte{1})
	otherDir := NewReplicaKeyWithDirectory(1, [16]byte{2})

	if !idOnly.Matches(withDir) {
		t.Error("id-only key should match any directory id for the same node")
	}
	if !withDir.Matches(idOnly) {
		t.Error("matches should be symmetric when one side lacks a directory id")
	}
	if !withDir.Matches(withDir) {
		t.Error("identical keys should match")
	}
	if withDir.Matches(otherDir) {
		t.Error("differing directory ids should not match")
	}
	if idOnly.Matches(NewReplicaKey(2)) {
		t.Error("differing ids should never match")
	}
}

func TestReplicaKeyIsReplica(t *testing.T) {
	if !NewReplicaKey(0).IsReplica() {
		t.Error("id 0 should be a replica")
	}
	if NewReplicaKey(-1).IsReplica() {
		t.Error("negative id should not be a replica")
	}
}
