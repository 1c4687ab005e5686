package kraft

// replicaRegistry holds the per-replica state for voters (keyed by id) and
// observers (keyed by full ReplicaKey), per spec §4.1 and §9 ("Observer map
// keyed by full ReplicaKey vs voter map keyed by id").
type replicaRegistry struct {
	voters    map[int32]*ReplicaState
	observers map[ReplicaKey]*ReplicaState
}

func newReplicaRegistry() replicaRegistry {
	return replicaRegistry{
		voters:    make(map[int32]*ReplicaState),
		observers: make(map[ReplicaKey]*ReplicaState),
	}
}

// getOrCreate returns the state for key, creating it if necessary. If key's
// id is a current voter whose stored key matches, the voter slot is
// returned; otherwise the (possibly newly created) observer slot for the
// full key is returned.
func (r *replicaRegistry) getOrCreate(key ReplicaKey) *ReplicaState {
	if v, ok := r.voters[key.ID]; ok && v.replicaKey.Matches(key) {
		return v
	}
	if o, ok := r.observers[key]; ok {
		return o
	}
	o := newReplicaState(key)
	r.observers[key] = o
	return o
}

// get is a read-only lookup, searching voters then observers. It returns nil
// if key is not currently known.
func (r *replicaRegistry) get(key ReplicaKey) *ReplicaState {
	if v, ok := r.voters[key.ID]; ok && v.replicaKey.Matches(key) {
		return v
	}
	if o, ok := r.observers[key]; ok {
		return o
	}
	return nil
}

// updateVoterAndObserverStates rebuilds the voter map from newVoters,
// reusing existing state (from either map) whenever its key matches a voter
// in the new set, so that fields like hasAcknowledgedLeader survive a
// demotion-then-re-promotion (spec §9 Open Question, resolved: preserved).
// Any previously-voting replica absent from newVoters is demoted to
// observer, inserted only if not already present there (so a live observer
// entry is never clobbered).
func (r *replicaRegistry) updateVoterAndObserverStates(newVoters VoterSet) {
	rebuilt := make(map[int32]*ReplicaState, newVoters.Size())

	for _, id := range newVoters.IDs() {
		key, _ := newVoters.VoterKey(id)

		var state *ReplicaState
		if existing, ok := r.voters[id]; ok && existing.replicaKey.Matches(key) {
			state = existing
		} else if existing, ok := r.observers[key]; ok {
			state = existing
			delete(r.observers, key)
		} else {
			state = newReplicaState(key)
		}

		// Refine the stored key (e.g. id-only -> id+directoryId) per §4.6.
		// A mismatch here is a registry bug (the new voter set itself
		// disagrees with what matched above), so it is asserted away
		// rather than surfaced.
		_ = state.setReplicaKey(key)

		rebuilt[id] = state
	}

	for id, prior := range r.voters {
		if _, stillVoter := rebuilt[id]; stillVoter {
			continue
		}
		if _, already := r.observers[prior.replicaKey]; !already {
			r.observers[prior.replicaKey] = prior
		}
	}

	r.voters = rebuilt
}

// gcObservers removes observer entries that have been silent for at least
// timeoutMillis, except localKey, which is never evicted (spec §3, §4.7).
func (r *replicaRegistry) gcObservers(nowMillis, timeoutMillis int64, localKey ReplicaKey) {
	for key, state := range r.observers {
		if key == localKey {
			continue
		}
		if nowMillis-state.lastFetchTimestamp >= timeoutMillis {
			delete(r.observers, key)
		}
	}
}
