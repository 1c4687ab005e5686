package kraft

import "testing"

func votersOf(r *replicaRegistry, entries map[int32]int64) {
	for id, off := range entries {
		r.voters[id].endOffset = someEndOffset(LogOffsetMetadata{Offset: off})
	}
}

func TestQuorumTrackerS1Advancement(t *testing.T) {
	r := newReplicaRegistry()
	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
		VoterNode{VoterKey: NewReplicaKey(2)},
		VoterNode{VoterKey: NewReplicaKey(3)},
	))
	q := quorumTracker{epochStartOffset: 10}

	votersOf(&r, map[int32]int64{1: 15, 2: 15, 3: 11})

	next, nextOK, advanced, retreated := q.advance(r.voters, LogOffsetMetadata{}, false)
	if retreated {
		t.Fatal("should not retreat from unset")
	}
	if !advanced || !nextOK {
		t.Fatal("expected HW to advance to 15")
	}
	if next.Offset != 15 {
		t.Fatalf("expected HW 15, got %d", next.Offset)
	}
}

func TestQuorumTrackerS2EpochCommitmentBlocks(t *testing.T) {
	r := newReplicaRegistry()
	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
		VoterNode{VoterKey: NewReplicaKey(2)},
		VoterNode{VoterKey: NewReplicaKey(3)},
	))
	q := quorumTracker{epochStartOffset: 10}

	votersOf(&r, map[int32]int64{1: 10, 2: 10, 3: 10})

	_, nextOK, advanced, _ := q.advance(r.voters, LogOffsetMetadata{}, false)
	if advanced || nextOK {
		t.Fatal("candidate == epochStartOffset must not establish the high watermark")
	}
}

func TestQuorumTrackerNeverRetreats(t *testing.T) {
	r := newReplicaRegistry()
	r.updateVoterAndObserverStates(NewVoterSet(
		VoterNode{VoterKey: NewReplicaKey(1)},
		VoterNode{VoterKey: NewReplicaKey(2)},
		VoterNode{VoterKey: NewReplicaKey(3)},
	))
	q := quorumTracker{epochStartOffset: 0}
	votersOf(&r, map[int32]int64{1: 5, 2: 5, 3: 5})

	current := LogOffsetMetadata{Offset: 20}
	next, nextOK, advanced, retreated := q.advance(r.voters, current, true)
	if advanced {
		t.Fatal("must not advance when candidate < current")
	}
	if !retreated {
		t.Fatal("expected a retreat signal so the caller can log a warning")
	}
	if !nextOK || next.Offset != 20 {
		t.Fatal("current high watermark must be preserved unchanged")
	}
}

func TestQuorumTrackerSameOffsetDifferentMetadataAdvances(t *testing.T) {
	r := newReplicaRegistry()
	r.updateVoterAndObserverStates(NewVoterSet(VoterNode{VoterKey: NewReplicaKey(1)}))
	r.voters[1].endOffset = someEndOffset(LogOffsetMetadata{Offset: 15, Metadata: []byte("b")})
	q := quorumTracker{epochStartOffset: 0}

	current := LogOffsetMetadata{Offset: 15, Metadata: []byte("a")}
	_, _, advanced, retreated := q.advance(r.voters, current, true)
	if retreated {
		t.Fatal("equal offset with different metadata is not a retreat")
	}
	if !advanced {
		t.Fatal("equal offset with different metadata must be observable as an advance")
	}
}
