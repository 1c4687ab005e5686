package kraft

// ReplicaState is the leader's per-replica bookkeeping: what it last knew
// about one voter or observer's replication progress.
type ReplicaState struct {
	replicaKey ReplicaKey

	endOffset endOffset

	lastFetchTimestamp         int64 // millis; -1 until first fetch
	lastFetchLeaderLogEndOffset int64 // leader end offset as of the replica's previous fetch
	lastCaughtUpTimestamp      int64 // millis; -1 until first caught-up observation

	hasAcknowledgedLeader bool
}

// newReplicaState returns a freshly created state for key, as created the
// first time a voter or observer is seen.
func newReplicaState(key ReplicaKey) *ReplicaState {
	return &ReplicaState{
		replicaKey:                  key,
		lastFetchTimestamp:          -1,
		lastFetchLeaderLogEndOffset: -1,
		lastCaughtUpTimestamp:       -1,
	}
}

// ReplicaKey returns the replica's current identity. The id is immutable for
// the lifetime of the state; the directory id may be refined once via
// setReplicaKey.
func (r *ReplicaState) ReplicaKey() ReplicaKey { return r.replicaKey }

// EndOffset returns the last known end offset and whether one has ever been
// reported.
func (r *ReplicaState) EndOffset() (LogOffsetMetadata, bool) {
	return r.endOffset.value, r.endOffset.ok
}

// LastFetchTimestamp returns the most recent fetch time in millis, or -1.
func (r *ReplicaState) LastFetchTimestamp() int64 { return r.lastFetchTimestamp }

// LastCaughtUpTimestamp returns the most recent time this replica was known
// to have caught up to the leader, in millis, or -1.
func (r *ReplicaState) LastCaughtUpTimestamp() int64 { return r.lastCaughtUpTimestamp }

// HasAcknowledgedLeader reports whether this voter has acknowledged the
// current leader, either by responding to BeginQuorumEpoch or by fetching.
func (r *ReplicaState) HasAcknowledgedLeader() bool { return r.hasAcknowledgedLeader }

// setReplicaKey refines the stored key with possibly newly learned directory
// id information. The id must be unchanged. If the stored key already carries
// a directory id, new must match it exactly (§4.6); otherwise the refinement
// (id-only -> id+directoryId) is accepted unconditionally.
func (r *ReplicaState) setReplicaKey(new ReplicaKey) error {
	if r.replicaKey.ID != new.ID {
		return newInvalidArgumentError("setReplicaKey", "cannot change replica id from %d to %d", r.replicaKey.ID, new.ID)
	}
	if r.replicaKey.HasDirectoryID {
		if !new.HasDirectoryID || r.replicaKey.DirectoryID != new.DirectoryID {
			return newInvalidArgumentError("setReplicaKey", "replica %d directory id mismatch: have %s, got %s", r.replicaKey.ID, r.replicaKey, new)
		}
		return nil
	}
	r.replicaKey = new
	return nil
}

// lessReplicaState orders two states by end offset descending (absent sorts
// last), ties broken by replica key ascending (purely for deterministic
// describe-quorum output; it does not affect the computed high watermark).
func lessReplicaState(a, b *ReplicaState) bool {
	if c := compareEndOffset(a.endOffset, b.endOffset); c != 0 {
		return c < 0
	}
	return a.replicaKey.Less(b.replicaKey)
}
