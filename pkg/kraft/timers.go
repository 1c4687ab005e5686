package kraft

import "math"

// CheckQuorumTimeoutFactor is the multiplier applied to the fetch timeout to
// derive the check-quorum timeout (spec §6 constants).
const CheckQuorumTimeoutFactor = 1.5

// ObserverSessionTimeoutMillis is how long an observer may go silent before
// it is garbage collected from describe-quorum output (spec §3, §6).
const ObserverSessionTimeoutMillis int64 = 300_000

// infiniteTimeout is reported for a singleton voter set, which can never
// lose quorum (spec §4.3, S3).
const infiniteTimeout int64 = math.MaxInt64

// checkQuorumTimer tracks the leader's self-liveness deadline: it must
// observe fetches from enough voters within fetchTimeout*1.5 or be expected
// to step down.
type checkQuorumTimer struct {
	timeoutMillis int64
	deadline      int64 // absolute millis; only meaningful once started
	started       bool
}

func newCheckQuorumTimer(fetchTimeoutMillis int64) checkQuorumTimer {
	return checkQuorumTimer{timeoutMillis: int64(math.Ceil(float64(fetchTimeoutMillis) * CheckQuorumTimeoutFactor))}
}

func (t *checkQuorumTimer) reset(nowMillis int64) {
	t.deadline = nowMillis + t.timeoutMillis
	t.started = true
}

// remaining returns the time until expiry, or infiniteTimeout if the timer
// has not yet been started (the singleton-voter-set case is handled by the
// caller, which simply never starts/resets this timer in that case).
func (t *checkQuorumTimer) remaining(nowMillis int64) int64 {
	if !t.started {
		return infiniteTimeout
	}
	if t.deadline <= nowMillis {
		return 0
	}
	return t.deadline - nowMillis
}

func (t *checkQuorumTimer) expired(nowMillis int64) bool {
	return t.started && t.deadline <= nowMillis
}

// beginQuorumTimer paces re-broadcasts of BeginQuorumEpoch. It starts
// already-expired so the first broadcast fires immediately.
type beginQuorumTimer struct {
	periodMillis int64
	deadline     int64
}

func newBeginQuorumTimer(fetchTimeoutMillis int64) beginQuorumTimer {
	return beginQuorumTimer{periodMillis: fetchTimeoutMillis / 2}
}

func (t *beginQuorumTimer) remaining(nowMillis int64) int64 {
	if t.deadline <= nowMillis {
		return 0
	}
	return t.deadline - nowMillis
}

func (t *beginQuorumTimer) reset(nowMillis int64) {
	t.deadline = nowMillis + t.periodMillis
}
