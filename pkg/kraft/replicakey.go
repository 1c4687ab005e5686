package kraft

import "fmt"

// ReplicaKey identifies a replica: a numeric node id plus an optional
// directory id (the identity of the storage instance backing that node, used
// to distinguish a reformatted node from its prior incarnation).
//
// Replicas with a negative id are not real replicas (e.g. a plain consumer
// reading the log) and must be ignored by every state-mutating operation.
type ReplicaKey struct {
	ID int32

	// HasDirectoryID reports whether DirectoryID is present. A ReplicaKey
	// without a directory id is a coarser identity than one with: it
	// matches any directory id for the same node id.
	HasDirectoryID bool
	DirectoryID    [16]byte
}

// NewReplicaKey returns a ReplicaKey for id with no directory id.
func NewReplicaKey(id int32) ReplicaKey {
	return ReplicaKey{ID: id}
}

// NewReplicaKeyWithDirectory returns a ReplicaKey for id refined with dir.
func NewReplicaKeyWithDirectory(id int32, dir [16]byte) ReplicaKey {
	return ReplicaKey{ID: id, HasDirectoryID: true, DirectoryID: dir}
}

// IsReplica reports whether this key identifies a real replica (non-negative
// id). Negative ids are reserved for non-replica readers, which are ignored
// by every update in this package.
func (k ReplicaKey) IsReplica() bool { return k.ID >= 0 }

// Matches reports whether k and other identify the same replica: equal ids,
// and either side lacking a directory id, or both present and equal.
func (k ReplicaKey) Matches(other ReplicaKey) bool {
	if k.ID != other.ID {
		return false
	}
	if !k.HasDirectoryID || !other.HasDirectoryID {
		return true
	}
	return k.DirectoryID == other.DirectoryID
}

// Less orders keys by id ascending, then by directory-id presence (absent
// first) and value, purely for deterministic iteration/describe output.
func (k ReplicaKey) Less(other ReplicaKey) bool {
	if k.ID != other.ID {
		return k.ID < other.ID
	}
	if k.HasDirectoryID != other.HasDirectoryID {
		return !k.HasDirectoryID
	}
	if !k.HasDirectoryID {
		return false
	}
	for i := range k.DirectoryID {
		if k.DirectoryID[i] != other.DirectoryID[i] {
			return k.DirectoryID[i] < other.DirectoryID[i]
		}
	}
	return false
}

func (k ReplicaKey) String() string {
	if !k.HasDirectoryID {
		return fmt.Sprintf("replica(id=%d)", k.ID)
	}
	return fmt.Sprintf("replica(id=%d, dir=%x)", k.ID, k.DirectoryID)
}
