package kraft

// Hook is a marker interface for leader-state event hooks, mirroring the
// teacher's own Hook/BrokerConnectHook family: callers implement whichever of
// the narrow sub-interfaces below they care about, and pass the result to
// WithHooks. Every sub-interface is optional.
type Hook interface{}

// HighWatermarkAdvanceHook is called synchronously whenever the high
// watermark is established or advances (spec §7, Info).
type HighWatermarkAdvanceHook interface {
	Hook
	OnHighWatermarkAdvance(epoch int32, old, new LogOffsetMetadata, hadOld bool)
}

// CheckQuorumExpiredHook is called when the check-quorum timer is observed
// to have expired (spec §4.3).
type CheckQuorumExpiredHook interface {
	Hook
	OnCheckQuorumExpired(epoch int32)
}

// BeginQuorumBroadcastHook is called each time ResetBeginQuorumEpochTimer
// resets the begin-quorum timer, with targets set to the voters still
// unacknowledged at that moment.
type BeginQuorumBroadcastHook interface {
	Hook
	OnBeginQuorumBroadcast(epoch int32, targets []ReplicaKey)
}

// LeaderChangeAppendedHook is called after the leader-change control record
// (and any bootstrap records) have been appended and force-drained.
type LeaderChangeAppendedHook interface {
	Hook
	OnLeaderChangeAppended(epoch int32, epochStartOffset int64, wroteBootstrapRecords bool)
}

// hookSet aggregates zero or more Hooks and dispatches to whichever
// implement a given sub-interface, the same shape as the teacher's
// hooks.each helper.
type hookSet []Hook

func (hs hookSet) each(fn func(Hook)) {
	for _, h := range hs {
		fn(h)
	}
}

func (hs hookSet) fireHighWatermarkAdvance(epoch int32, old, new LogOffsetMetadata, hadOld bool) {
	hs.each(func(h Hook) {
		if h, ok := h.(HighWatermarkAdvanceHook); ok {
			h.OnHighWatermarkAdvance(epoch, old, new, hadOld)
		}
	})
}

func (hs hookSet) fireCheckQuorumExpired(epoch int32) {
	hs.each(func(h Hook) {
		if h, ok := h.(CheckQuorumExpiredHook); ok {
			h.OnCheckQuorumExpired(epoch)
		}
	})
}

func (hs hookSet) fireBeginQuorumBroadcast(epoch int32, targets []ReplicaKey) {
	hs.each(func(h Hook) {
		if h, ok := h.(BeginQuorumBroadcastHook); ok {
			h.OnBeginQuorumBroadcast(epoch, targets)
		}
	})
}

func (hs hookSet) fireLeaderChangeAppended(epoch int32, epochStartOffset int64, wroteBootstrap bool) {
	hs.each(func(h Hook) {
		if h, ok := h.(LeaderChangeAppendedHook); ok {
			h.OnLeaderChangeAppended(epoch, epochStartOffset, wroteBootstrap)
		}
	})
}
