package kraft

import "sort"

// quorumTracker computes the majority-replicated high watermark from a
// voter registry, honoring the leader-epoch commitment rule (spec §4.2).
//
// Voter-set sizes here are small (a handful to a few tens of cluster nodes),
// so every call re-sorts the full voter slice with sort.Slice rather than
// maintaining an incrementally-updated ordered structure; see DESIGN.md for
// why no balanced-tree dependency is used for this.
type quorumTracker struct {
	epochStartOffset int64
}

// sortedVoters returns the current voter states ordered by lessReplicaState
// (end offset descending, absent last, ties by key ascending).
func sortedVoters(voters map[int32]*ReplicaState) []*ReplicaState {
	out := make([]*ReplicaState, 0, len(voters))
	for _, v := range voters {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return lessReplicaState(out[i], out[j]) })
	return out
}

// candidateHighWatermark returns the offset such that m+1 = N/2+1 voters
// (a strict majority, counting the leader as one of the voters if present)
// have replicated it, or ok=false if the voter at the quorum index has never
// reported an end offset or the candidate does not exceed epochStartOffset.
func (q quorumTracker) candidateHighWatermark(voters map[int32]*ReplicaState) (LogOffsetMetadata, bool) {
	s := sortedVoters(voters)
	n := len(s)
	if n == 0 {
		return LogOffsetMetadata{}, false
	}
	m := n / 2
	candidate := s[m]
	off, ok := candidate.EndOffset()
	if !ok {
		return LogOffsetMetadata{}, false
	}
	if off.Offset <= q.epochStartOffset {
		// epoch commitment rule: never expose pre-epoch records.
		return LogOffsetMetadata{}, false
	}
	return off, true
}

// advance applies the candidate high watermark computed from voters against
// current (the possibly-unset current high watermark), returning the new
// high watermark and whether it changed. It never retreats: a candidate
// strictly below current is discarded (the caller is expected to log a
// warning in that case).
func (q quorumTracker) advance(voters map[int32]*ReplicaState, current LogOffsetMetadata, currentOK bool) (next LogOffsetMetadata, nextOK, advanced, retreated bool) {
	candidate, ok := q.candidateHighWatermark(voters)
	if !ok {
		return current, currentOK, false, false
	}
	if !currentOK {
		return candidate, true, true, false
	}
	switch {
	case candidate.Offset > current.Offset:
		return candidate, true, true, false
	case candidate.Offset == current.Offset && string(candidate.Metadata) != string(current.Metadata):
		return candidate, true, true, false
	case candidate.Offset == current.Offset:
		return current, true, false, false
	default: // candidate.Offset < current.Offset
		return current, true, false, true
	}
}
