package kraft

// LogOffsetMetadata pairs a log offset with an opaque metadata blob that
// distinguishes physically distinct log positions sharing the same logical
// offset (for example, a position before vs. after a log truncation and
// rewrite at the same offset). Equality on Metadata is used only to decide
// whether a same-offset update is observable to callers.
type LogOffsetMetadata struct {
	Offset   int64
	Metadata []byte
}

// endOffset is the optional end-offset carried by a ReplicaState: either
// absent (the replica has never reported an end offset) or present with a
// LogOffsetMetadata value. Using an explicit "ok" flag instead of a sentinel
// offset avoids ambiguity with the valid offset 0.
type endOffset struct {
	value LogOffsetMetadata
	ok    bool
}

func someEndOffset(v LogOffsetMetadata) endOffset { return endOffset{value: v, ok: true} }

// compareEndOffset totals the order used throughout this package: absent
// sorts after every present value; among present values, larger Offset sorts
// first (descending), per the Quorum Tracker's sort-voters-by-end-offset
// rule. It returns -1, 0, or 1 the way bytes.Compare does.
func compareEndOffset(a, b endOffset) int {
	switch {
	case !a.ok && !b.ok:
		return 0
	case !a.ok:
		return 1
	case !b.ok:
		return -1
	case a.value.Offset > b.value.Offset:
		return -1
	case a.value.Offset < b.value.Offset:
		return 1
	default:
		return 0
	}
}
