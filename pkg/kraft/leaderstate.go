package kraft

import (
	"sort"
	"sync/atomic"
)

const defaultFetchTimeoutMillis int64 = 2000

// cfg holds LeaderState's configuration, populated by Opt values and always
// left in a usable state if no options are given — the same shape as the
// teacher's cl.cfg struct reached through functional options.
type cfg struct {
	logger             Logger
	hooks              hookSet
	fetchTimeoutMillis int64
	accumulator        BatchAccumulator

	endpoints                []Endpoint
	grantingVoters           map[int32]struct{}
	kraftVersionAtEpochStart int16
	kraftVersionSupportsReconfig bool
}

func defaultCfg() cfg {
	return cfg{
		logger:             nopLogger{},
		fetchTimeoutMillis: defaultFetchTimeoutMillis,
		accumulator:        NewMemoryAccumulator(CompressionNone),
		grantingVoters:     map[int32]struct{}{},
	}
}

// Opt configures a LeaderState at construction time via New.
type Opt interface{ apply(*cfg) }

type optFunc func(*cfg)

func (f optFunc) apply(c *cfg) { f(c) }

// WithLogger sets the Logger used for the info/warning/debug events named
// in spec §7. The default discards everything.
func WithLogger(l Logger) Opt { return optFunc(func(c *cfg) { c.logger = l }) }

// WithHooks registers event hooks (spec §4.9 Hooks).
func WithHooks(hooks ...Hook) Opt { return optFunc(func(c *cfg) { c.hooks = append(c.hooks, hooks...) }) }

// WithFetchTimeoutMillis sets the fetch timeout the check-quorum and
// begin-quorum timers are derived from (spec §4.3). Default 2000ms.
func WithFetchTimeoutMillis(millis int64) Opt {
	return optFunc(func(c *cfg) { c.fetchTimeoutMillis = millis })
}

// WithAccumulator overrides the BatchAccumulator used by
// AppendLeaderChangeMessageAndBootstrapRecords. The default is an in-memory
// reference implementation (see accumulator.go).
func WithAccumulator(a BatchAccumulator) Opt { return optFunc(func(c *cfg) { c.accumulator = a }) }

// WithEndpoints sets the leader's advertised endpoints.
func WithEndpoints(endpoints ...Endpoint) Opt {
	return optFunc(func(c *cfg) { c.endpoints = endpoints })
}

// WithGrantingVoters records which voters granted this leader its epoch.
func WithGrantingVoters(ids ...int32) Opt {
	return optFunc(func(c *cfg) {
		c.grantingVoters = make(map[int32]struct{}, len(ids))
		for _, id := range ids {
			c.grantingVoters[id] = struct{}{}
		}
	})
}

// WithKRaftVersionAtEpochStart records the KRaft version in effect when this
// epoch started, and whether that version supports dynamic reconfiguration
// (needed to validate bootstrap record emission, spec §4.5).
func WithKRaftVersionAtEpochStart(version int16, supportsReconfig bool) Opt {
	return optFunc(func(c *cfg) {
		c.kraftVersionAtEpochStart = version
		c.kraftVersionSupportsReconfig = supportsReconfig
	})
}

// LeaderState is the per-epoch leader bookkeeping described in spec §3. It
// is created once per elected epoch (see New) and discarded via Close on
// step-down.
type LeaderState struct {
	cfg cfg

	localReplicaKey  ReplicaKey
	epoch            int32
	epochStartOffset int64

	voterSetAtEpochStart         VoterSet
	offsetOfVotersAtEpochStart   int64
	hasOffsetOfVotersAtEpochStart bool

	registry replicaRegistry
	quorum   quorumTracker

	highWatermark   LogOffsetMetadata
	hasHighWatermark bool

	fetchedVoters map[int32]struct{}

	checkQuorum checkQuorumTimer
	beginQuorum beginQuorumTimer

	resignRequested int32 // atomic bool
}

// New constructs a LeaderState for one elected epoch. localReplicaKey
// identifies this replica; epoch and epochStartOffset are immutable for the
// epoch; voterSetAtEpochStart is the membership snapshot in effect when the
// epoch began.
func New(localReplicaKey ReplicaKey, epoch int32, epochStartOffset int64, voterSetAtEpochStart VoterSet, opts ...Opt) *LeaderState {
	c := defaultCfg()
	for _, o := range opts {
		o.apply(&c)
	}

	ls := &LeaderState{
		cfg:                  c,
		localReplicaKey:      localReplicaKey,
		epoch:                epoch,
		epochStartOffset:     epochStartOffset,
		voterSetAtEpochStart: voterSetAtEpochStart,
		registry:             newReplicaRegistry(),
		quorum:               quorumTracker{epochStartOffset: epochStartOffset},
		fetchedVoters:        make(map[int32]struct{}),
		checkQuorum:          newCheckQuorumTimer(c.fetchTimeoutMillis),
		beginQuorum:          newBeginQuorumTimer(c.fetchTimeoutMillis),
	}
	ls.registry.updateVoterAndObserverStates(voterSetAtEpochStart)
	return ls
}

// SetOffsetOfVotersAtEpochStart records the log offset at which
// voterSetAtEpochStart was read, or marks it as coming from a bootstrap
// checkpoint via SetBootstrapCheckpoint. Exposed as a method (rather than an
// Opt) because it is naturally supplied after New alongside the membership
// snapshot itself in most drivers; either ordering is safe.
func (ls *LeaderState) SetOffsetOfVotersAtEpochStart(offset int64) {
	ls.offsetOfVotersAtEpochStart = offset
	ls.hasOffsetOfVotersAtEpochStart = true
}

// SetBootstrapCheckpoint marks the epoch-start voter set as having come from
// a bootstrap checkpoint rather than the log (the -1 sentinel in spec §3,
// §4.5).
func (ls *LeaderState) SetBootstrapCheckpoint() {
	ls.offsetOfVotersAtEpochStart = -1
	ls.hasOffsetOfVotersAtEpochStart = true
}

// Election returns the replica key this LeaderState was elected as.
func (ls *LeaderState) Election() ReplicaKey { return ls.localReplicaKey }

// Epoch returns the epoch this LeaderState governs.
func (ls *LeaderState) Epoch() int32 { return ls.epoch }

// EpochStartOffset returns the offset at which this leader's first record
// will be written.
func (ls *LeaderState) EpochStartOffset() int64 { return ls.epochStartOffset }

// LeaderEndpoints returns the leader's advertised endpoints.
func (ls *LeaderState) LeaderEndpoints() []Endpoint { return ls.cfg.endpoints }

// GrantingVoters returns the set of voter ids that voted for this leader.
func (ls *LeaderState) GrantingVoters() map[int32]struct{} { return ls.cfg.grantingVoters }

// HighWatermark returns the current high watermark, if set.
func (ls *LeaderState) HighWatermark() (LogOffsetMetadata, bool) {
	return ls.highWatermark, ls.hasHighWatermark
}

// CanGrantVote always returns false: a leader never grants a vote within its
// own epoch (spec §4.8).
func (ls *LeaderState) CanGrantVote(candidate ReplicaKey, candidateLogUpToDate bool) bool {
	return false
}

// RequestResign asks the driver to step this replica down. Safe to call
// from any goroutine (spec §5).
func (ls *LeaderState) RequestResign() { atomic.StoreInt32(&ls.resignRequested, 1) }

// IsResignRequested reports whether RequestResign has been called. Safe to
// call from any goroutine.
func (ls *LeaderState) IsResignRequested() bool { return atomic.LoadInt32(&ls.resignRequested) == 1 }

// Close releases the batch accumulator. No other shutdown work is needed:
// LeaderState is entirely in-memory (spec §4.8, §5).
func (ls *LeaderState) Close() error { return ls.cfg.accumulator.Close() }

// UpdateLocalState records the local replica's new end offset (from the
// local log) and unconditionally reconciles the voter set against
// newVoterSet (spec §4.4 step 4): the caller is expected to pass the current
// voter set on every call, including the unchanged set when membership has
// not changed. It returns whether the high watermark advanced as a result.
func (ls *LeaderState) UpdateLocalState(endOffsetMetadata LogOffsetMetadata, newVoterSet VoterSet) (bool, error) {
	local := ls.registry.getOrCreate(ls.localReplicaKey)
	if off, ok := local.EndOffset(); ok && off.Offset > endOffsetMetadata.Offset {
		return false, newInvalidStateError("UpdateLocalState", "non-monotonic local end offset advance: have %d, got %d", off.Offset, endOffsetMetadata.Offset)
	}
	local.endOffset = someEndOffset(endOffsetMetadata)

	ls.registry.updateVoterAndObserverStates(newVoterSet)
	ls.pruneFetchedVoters()

	return ls.runQuorumTracker(), nil
}

// UpdateReplicaState records a fetch from replicaKey arriving at now with
// fetchOffsetMetadata, returning whether the high watermark advanced (spec
// §4.4). Fetches from non-replica ids (negative id) are ignored, returning
// false, nil. A fetch claiming to be from the local replica's own id fails
// with InvalidStateError.
func (ls *LeaderState) UpdateReplicaState(replicaKey ReplicaKey, nowMillis int64, fetchOffsetMetadata LogOffsetMetadata) (bool, error) {
	if !replicaKey.IsReplica() {
		return false, nil
	}
	if replicaKey.ID == ls.localReplicaKey.ID {
		return false, newInvalidStateError("UpdateReplicaState", "replica %d fetching from itself", replicaKey.ID)
	}

	state := ls.registry.getOrCreate(replicaKey)
	if err := state.setReplicaKey(replicaKey); err != nil {
		return false, err
	}

	if prior, ok := state.EndOffset(); ok && prior.Offset > fetchOffsetMetadata.Offset {
		ls.cfg.logger.Log(LogLevelWarn, "follower fetch offset regressed", "replica", replicaKey, "prior", prior.Offset, "new", fetchOffsetMetadata.Offset)
	}

	ls.updateFollowerState(state, nowMillis, fetchOffsetMetadata)

	isVoter := false
	if v, ok := ls.registry.voters[replicaKey.ID]; ok && v == state {
		isVoter = true
		ls.fetchedVoters[replicaKey.ID] = struct{}{}
		ls.maybeResetCheckQuorum(nowMillis)
	}

	if !isVoter {
		return false, nil
	}
	return ls.runQuorumTracker(), nil
}

// updateFollowerState applies the caught-up-timestamp rule from spec §4.4.
func (ls *LeaderState) updateFollowerState(state *ReplicaState, nowMillis int64, fetchOffsetMetadata LogOffsetMetadata) {
	leaderEndOffset := int64(0)
	if off, ok := ls.registry.getOrCreate(ls.localReplicaKey).EndOffset(); ok {
		leaderEndOffset = off.Offset
	}

	prevFetchLeaderEndOffset := state.lastFetchLeaderLogEndOffset
	newFetchOffset := fetchOffsetMetadata.Offset

	switch {
	case newFetchOffset >= leaderEndOffset:
		state.lastCaughtUpTimestamp = max64(state.lastCaughtUpTimestamp, nowMillis)
	case prevFetchLeaderEndOffset > 0 && newFetchOffset >= prevFetchLeaderEndOffset:
		state.lastCaughtUpTimestamp = max64(state.lastCaughtUpTimestamp, state.lastFetchTimestamp)
	}

	state.lastFetchLeaderLogEndOffset = leaderEndOffset
	state.lastFetchTimestamp = max64(state.lastFetchTimestamp, nowMillis)
	state.endOffset = someEndOffset(fetchOffsetMetadata)
	state.hasAcknowledgedLeader = true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// runQuorumTracker recomputes the high watermark candidate from the current
// voter states and applies it, firing hooks/logging as appropriate (spec
// §4.2). It returns whether the high watermark advanced.
func (ls *LeaderState) runQuorumTracker() bool {
	next, nextOK, advanced, retreated := ls.quorum.advance(ls.registry.voters, ls.highWatermark, ls.hasHighWatermark)
	if retreated {
		ls.cfg.logger.Log(LogLevelWarn, "computed high watermark would retreat; ignoring", "current", ls.highWatermark.Offset)
		return false
	}
	if !advanced {
		return false
	}

	old, hadOld := ls.highWatermark, ls.hasHighWatermark
	ls.highWatermark, ls.hasHighWatermark = next, nextOK

	if !hadOld {
		ls.cfg.logger.Log(LogLevelInfo, "high watermark established", "epoch", ls.epoch, "offset", next.Offset)
	} else {
		ls.cfg.logger.Log(LogLevelInfo, "high watermark advanced", "epoch", ls.epoch, "from", old.Offset, "to", next.Offset)
	}
	ls.cfg.hooks.fireHighWatermarkAdvance(ls.epoch, old, next, hadOld)
	return true
}

// pruneFetchedVoters drops any id from fetchedVoters that is no longer a
// current voter, keeping fetchedVoters ⊆ voterStates.keys() (spec §8
// invariant 3) after a reconfiguration shrinks the voter set. Without this, a
// majority could be satisfied by ids seen in the window before they were
// demoted, masking genuine isolation from the now-current voters.
func (ls *LeaderState) pruneFetchedVoters() {
	for id := range ls.fetchedVoters {
		if _, ok := ls.registry.voters[id]; !ok {
			delete(ls.fetchedVoters, id)
		}
	}
}

// maybeResetCheckQuorum clears fetchedVoters and resets the check-quorum
// timer once a majority of voters (the leader counting implicitly if it is
// itself a voter) have been observed in the current window (spec §4.3).
func (ls *LeaderState) maybeResetCheckQuorum(nowMillis int64) {
	n := len(ls.registry.voters)
	if n <= 1 {
		return
	}
	majority := n/2 + 1
	if _, leaderIsVoter := ls.registry.voters[ls.localReplicaKey.ID]; leaderIsVoter {
		majority--
	}
	if len(ls.fetchedVoters) >= majority {
		ls.fetchedVoters = make(map[int32]struct{})
		ls.checkQuorum.reset(nowMillis)
	}
}

// TimeUntilCheckQuorumExpires returns how long until the check-quorum
// timeout fires, or an effectively infinite duration for a singleton voter
// set (spec §4.3, S3). If the timer has never been started (e.g. epoch just
// began), it is treated as starting now.
func (ls *LeaderState) TimeUntilCheckQuorumExpires(nowMillis int64) int64 {
	if len(ls.registry.voters) <= 1 {
		return infiniteTimeout
	}
	if !ls.checkQuorum.started {
		ls.checkQuorum.reset(nowMillis)
	}
	return ls.checkQuorum.remaining(nowMillis)
}

// CheckQuorumExpired reports whether the check-quorum timer has expired,
// firing the CheckQuorumExpiredHook and logging an Info event on every call
// that finds it expired (spec §4.3, §7).
func (ls *LeaderState) CheckQuorumExpired(nowMillis int64) bool {
	if len(ls.registry.voters) <= 1 {
		return false
	}
	if !ls.checkQuorum.expired(nowMillis) {
		return false
	}
	ls.cfg.logger.Log(LogLevelInfo, "check-quorum expired", "epoch", ls.epoch)
	ls.cfg.hooks.fireCheckQuorumExpired(ls.epoch)
	return true
}

// TimeUntilBeginQuorumEpochTimerExpires returns how long until the
// begin-quorum re-broadcast timer fires next.
func (ls *LeaderState) TimeUntilBeginQuorumEpochTimerExpires(nowMillis int64) int64 {
	return ls.beginQuorum.remaining(nowMillis)
}

// ResetBeginQuorumEpochTimer resets the begin-quorum timer and fires
// BeginQuorumBroadcastHook with the current set of unacknowledged voters.
// Intended to be called by the driver immediately after broadcasting
// BeginQuorumEpoch to NonAcknowledgingVoters.
func (ls *LeaderState) ResetBeginQuorumEpochTimer(nowMillis int64) {
	targets := ls.NonAcknowledgingVoters()
	ls.beginQuorum.reset(nowMillis)
	ls.cfg.hooks.fireBeginQuorumBroadcast(ls.epoch, targets)
}

// NonAcknowledgingVoters returns the voters (excluding the leader itself)
// that have not yet acknowledged the current leader, the targets for the
// next BeginQuorumEpoch broadcast (spec §4.3, §6).
func (ls *LeaderState) NonAcknowledgingVoters() []ReplicaKey {
	var out []ReplicaKey
	for id, v := range ls.registry.voters {
		if id == ls.localReplicaKey.ID {
			continue
		}
		if !v.hasAcknowledgedLeader {
			out = append(out, v.replicaKey)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// AddAcknowledgementFrom marks id as having acknowledged the current leader
// (spec §4.3). Fails with InvalidArgumentError if id is not a current voter.
func (ls *LeaderState) AddAcknowledgementFrom(id int32) error {
	v, ok := ls.registry.voters[id]
	if !ok {
		return newInvalidArgumentError("AddAcknowledgementFrom", "id %d is not a current voter", id)
	}
	v.hasAcknowledgedLeader = true
	return nil
}

// NonLeaderVotersByDescendingFetchOffset returns the non-leader voters
// ordered by the same comparator the Quorum Tracker uses (end offset
// descending, absent last), for use by a successor-preference policy (spec
// §6, §4.10 — grounded on simonskodt-raft's majorityMatchIndex ordering).
func (ls *LeaderState) NonLeaderVotersByDescendingFetchOffset() []ReplicaKey {
	states := make([]*ReplicaState, 0, len(ls.registry.voters))
	for id, v := range ls.registry.voters {
		if id == ls.localReplicaKey.ID {
			continue
		}
		states = append(states, v)
	}
	sort.Slice(states, func(i, j int) bool { return lessReplicaState(states[i], states[j]) })
	out := make([]ReplicaKey, len(states))
	for i, s := range states {
		out[i] = s.replicaKey
	}
	return out
}

// NodeInfo is one row of the Nodes/DescribeQuorum output.
type NodeInfo struct {
	ReplicaID             int32
	LogEndOffset          int64 // -1 if unknown
	LastCaughtUpTimestamp int64
	LastFetchTimestamp    int64
}

// QuorumSnapshot is the output of DescribeQuorum (spec §4.7).
type QuorumSnapshot struct {
	LeaderID      int32
	Epoch         int32
	HighWatermark int64 // -1 if unset
	Voters        []NodeInfo
	Observers     []NodeInfo
}

func toNodeInfo(id int32, state *ReplicaState, nowMillis int64, isLocal bool) NodeInfo {
	off, ok := state.EndOffset()
	logEndOffset := int64(-1)
	if ok {
		logEndOffset = off.Offset
	}
	caughtUp, fetch := state.lastCaughtUpTimestamp, state.lastFetchTimestamp
	if isLocal {
		caughtUp, fetch = nowMillis, nowMillis
	}
	return NodeInfo{
		ReplicaID:             id,
		LogEndOffset:          logEndOffset,
		LastCaughtUpTimestamp: caughtUp,
		LastFetchTimestamp:    fetch,
	}
}

// DescribeQuorum GCs inactive observers (silent >= ObserverSessionTimeoutMillis,
// never the local replica) and returns a replication snapshot for monitoring
// (spec §4.7).
func (ls *LeaderState) DescribeQuorum(nowMillis int64) QuorumSnapshot {
	ls.registry.gcObservers(nowMillis, ObserverSessionTimeoutMillis, ls.localReplicaKey)

	hw := int64(-1)
	if ls.hasHighWatermark {
		hw = ls.highWatermark.Offset
	}

	snap := QuorumSnapshot{
		LeaderID:      ls.localReplicaKey.ID,
		Epoch:         ls.epoch,
		HighWatermark: hw,
	}
	for id, v := range ls.registry.voters {
		snap.Voters = append(snap.Voters, toNodeInfo(id, v, nowMillis, id == ls.localReplicaKey.ID))
	}
	for key, v := range ls.registry.observers {
		snap.Observers = append(snap.Observers, toNodeInfo(key.ID, v, nowMillis, key == ls.localReplicaKey))
	}
	sort.Slice(snap.Voters, func(i, j int) bool { return snap.Voters[i].ReplicaID < snap.Voters[j].ReplicaID })
	sort.Slice(snap.Observers, func(i, j int) bool { return snap.Observers[i].ReplicaID < snap.Observers[j].ReplicaID })
	return snap
}

// Nodes returns every currently known replica (voters ∪ observers) with its
// end offset, a superset convenience view over DescribeQuorum (spec §6,
// §4.10).
func (ls *LeaderState) Nodes(nowMillis int64) []NodeInfo {
	snap := ls.DescribeQuorum(nowMillis)
	return append(snap.Voters, snap.Observers...)
}

// AppendLeaderChangeMessageAndBootstrapRecords appends the LeaderChange
// control record (and, if the epoch-start voter set came from a bootstrap
// checkpoint, the KRaftVersion and Voters records) and force-drains the
// accumulator so they ship in their own batch (spec §4.5).
func (ls *LeaderState) AppendLeaderChangeMessageAndBootstrapRecords(nowMillis int64) (Batch, error) {
	voterIDs := make([]int32, 0, len(ls.registry.voters))
	for id := range ls.registry.voters {
		voterIDs = append(voterIDs, id)
	}
	sort.Slice(voterIDs, func(i, j int) bool { return voterIDs[i] < voterIDs[j] })

	grantingIDs := make([]int32, 0, len(ls.cfg.grantingVoters))
	for id := range ls.cfg.grantingVoters {
		grantingIDs = append(grantingIDs, id)
	}
	sort.Slice(grantingIDs, func(i, j int) bool { return grantingIDs[i] < grantingIDs[j] })

	records := []ControlRecord{LeaderChangeRecord{
		Version:        0,
		LeaderID:       ls.localReplicaKey.ID,
		Voters:         voterIDs,
		GrantingVoters: grantingIDs,
	}}

	wroteBootstrap := false
	if ls.hasOffsetOfVotersAtEpochStart && ls.offsetOfVotersAtEpochStart == -1 {
		if !ls.cfg.kraftVersionSupportsReconfig {
			return Batch{}, newInvalidStateError("AppendLeaderChangeMessageAndBootstrapRecords",
				"epoch-start voter set came from a bootstrap checkpoint but KRaft version %d does not support reconfiguration", ls.cfg.kraftVersionAtEpochStart)
		}
		records = append(records,
			KRaftVersionRecord{Version: 0, KRaftVersion: ls.cfg.kraftVersionAtEpochStart},
			VotersRecord{Version: 0, VoterIDs: ls.voterSetAtEpochStart.IDs()},
		)
		wroteBootstrap = true
	}

	if err := ls.cfg.accumulator.AppendControlRecords(records...); err != nil {
		return Batch{}, err
	}
	batch, err := ls.cfg.accumulator.ForceDrain()
	if err != nil {
		return Batch{}, err
	}

	ls.cfg.logger.Log(LogLevelInfo, "appended leader-change record", "epoch", ls.epoch, "voters", voterIDs, "bootstrap", wroteBootstrap)
	ls.cfg.hooks.fireLeaderChangeAppended(ls.epoch, ls.epochStartOffset, wroteBootstrap)
	return batch, nil
}
