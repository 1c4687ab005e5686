// Package kraft implements the leader-side bookkeeping for one elected epoch
// of a Raft-style replicated log, in the variant where cluster membership
// itself is stored in the log (a "KRaft"-shaped protocol).
//
// A LeaderState is created once a replica is elected leader of an epoch and
// discarded when it relinquishes leadership. It tracks, per voter and
// observer, how far each replica has replicated; advances the high watermark
// under the leader-epoch commitment rule; runs the check-quorum and
// begin-quorum liveness timers; and reconciles the voter/observer sets as
// membership changes land in the log.
//
// LeaderState does not itself perform network I/O, log storage, or
// elections: those are external collaborators. It is driven synchronously by
// a single caller (typically the Raft I/O loop) and is safe for exactly one
// goroutine to call into at a time, except for RequestResign and
// IsResignRequested, which may be called from any goroutine.
package kraft
