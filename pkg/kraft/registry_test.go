package kraft

import "testing"

func TestRegistryDemotionPreservesAcknowledgement(t *testing.T) {
	r := newReplicaRegistry()
	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
		VoterNode{VoterKey: NewReplicaKey(2)},
		VoterNode{VoterKey: NewReplicaKey(3)},
	))
	r.voters[3].hasAcknowledgedLeader = true

	// S5: {1,2,3} -> {1,2,4}
	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
		VoterNode{VoterKey: NewReplicaKey(2)},
		VoterNode{VoterKey: NewReplicaKey(4)},
	))

	if len(r.voters) != 3 {
		t.Fatalf("expected 3 voters, got %d", len(r.voters))
	}
	for _, id := range []int32{1, 2, 4} {
		if _, ok := r.voters[id]; !ok {
			t.Errorf("expected voter %d present", id)
		}
	}
	if _, ok := r.voters[3]; ok {
		t.Error("voter 3 should have been demoted")
	}
	demoted, ok := r.observers[NewReplicaKey(3)]
	if !ok {
		t.Fatal("voter 3 should now be an observer")
	}

	fresh := r.voters[4]
	if fresh.hasAcknowledgedLeader {
		t.Error("freshly promoted voter 4 should start unacknowledged")
	}

	// Open-question decision: re-promoting 3 should preserve its flag.
	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
		VoterNode{VoterKey: NewReplicaKey(2)},
		VoterNode{VoterKey: NewReplicaKey(3)},
	))
	repromoted := r.voters[3]
	if repromoted != demoted {
		t.Fatal("re-promotion should reuse the demoted observer's state")
	}
	if !repromoted.hasAcknowledgedLeader {
		t.Error("re-promoted voter should keep its prior acknowledgement (open question: preserved)")
	}
}

func TestRegistryDemotionDoesNotClobberLiveObserver(t *testing.T) {
	r := newReplicaRegistry()
	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
		VoterNode{VoterKey: NewReplicaKeyWithDirectory(3, [16]byte{1})},
	))

	// Replica 3 is already separately known as an observer under a
	// different directory id (e.g. it reformatted and reconnected).
	otherDirKey := NewReplicaKeyWithDirectory(3, [16]byte{9})
	existingObserver := r.getOrCreate(otherDirKey)
	existingObserver.endOffset = someEndOffset(LogOffsetMetadata{Offset: 42})

	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
	))

	if r.observers[otherDirKey] != existingObserver {
		t.Error("demotion must not clobber a pre-existing observer entry for a different key")
	}
}

func TestGetOrCreateRoutesByVoterMatch(t *testing.T) {
	r := newReplicaRegistry()
	r.updateVoterAndObserverStates(NewVoterSet(VoterNode{VoterKey: NewReplicaKey(1)}))

	sameID := r.getOrCreate(NewReplicaKeyWithDirectory(1, [16]byte{1}))
	if _, ok := r.voters[1]; !ok {
		t.Fatal("voter 1 should exist")
	}
	if sameID != r.voters[1] {
		t.Error("getOrCreate should return the voter slot for a matching id-only voter")
	}

	nonVoter := r.getOrCreate(NewReplicaKey(5))
	if _, ok := r.voters[5]; ok {
		t.Error("id 5 is not a voter, should not create a voter entry")
	}
	if _, ok := r.observers[NewReplicaKey(5)]; !ok {
		t.Error("id 5 should be registered as an observer")
	}
	if nonVoter.replicaKey.ID != 5 {
		t.Error("wrong replica returned")
	}
}

func TestGCObserversNeverEvictsLocal(t *testing.T) {
	r := newReplicaRegistry()
	local := NewReplicaKey(1)
	other := NewReplicaKey(2)

	r.getOrCreate(local).lastFetchTimestamp = 0
	r.getOrCreate(other).lastFetchTimestamp = 0

	r.gcObservers(300_001, ObserverSessionTimeoutMillis, local)

	if _, ok := r.observers[local]; !ok {
		t.Error("local replica's observer entry must survive GC regardless of silence (S6)")
	}
	if _, ok := r.observers[other]; ok {
		t.Error("silent non-local observer should be GC'd")
	}
}
