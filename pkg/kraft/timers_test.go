package kraft

import "testing"

func TestCheckQuorumTimerLifecycle(t *testing.T) {
	timer := newCheckQuorumTimer(2000)
	if timer.timeoutMillis != 3000 {
		t.Fatalf("expected 2000*1.5=3000, got %d", timer.timeoutMillis)
	}
	if timer.expired(0) {
		t.Fatal("an unstarted timer must not be considered expired")
	}
	if remaining := timer.remaining(0); remaining != infiniteTimeout {
		t.Fatalf("expected infinite remaining before start, got %d", remaining)
	}

	timer.reset(1000)
	if timer.remaining(1000) != 3000 {
		t.Fatalf("expected full timeout remaining right after reset, got %d", timer.remaining(1000))
	}
	if timer.expired(3999) {
		t.Fatal("must not be expired one millisecond early")
	}
	if !timer.expired(4000) {
		t.Fatal("must be expired exactly at the deadline")
	}
	if remaining := timer.remaining(5000); remaining != 0 {
		t.Fatalf("remaining past the deadline must clamp to 0, got %d", remaining)
	}
}

func TestBeginQuorumTimerStartsExpired(t *testing.T) {
	timer := newBeginQuorumTimer(2000)
	if timer.periodMillis != 1000 {
		t.Fatalf("expected period 1000, got %d", timer.periodMillis)
	}
	if remaining := timer.remaining(0); remaining != 0 {
		t.Fatalf("begin-quorum timer must start pre-expired so the first broadcast fires immediately, got remaining %d", remaining)
	}
	timer.reset(500)
	if remaining := timer.remaining(500); remaining != 1000 {
		t.Fatalf("expected 1000 remaining right after reset, got %d", remaining)
	}
	if remaining := timer.remaining(1500); remaining != 0 {
		t.Fatalf("expected 0 remaining at the deadline, got %d", remaining)
	}
}

func TestSingletonVoterSetCheckQuorumNeverExpiresS3(t *testing.T) {
	ls, clk := newTestLeaderState(t, 1, 0, 1)
	if remaining := ls.TimeUntilCheckQuorumExpires(clk.NowMillis()); remaining != infiniteTimeout {
		t.Fatalf("expected infinite remaining for a singleton voter set, got %d", remaining)
	}
	clk.Advance(10_000_000)
	if ls.CheckQuorumExpired(clk.NowMillis()) {
		t.Fatal("a singleton voter set must never be reported as having lost quorum")
	}
}

func TestBeginQuorumBroadcastTargetsNonAcknowledgingVoters(t *testing.T) {
	ls, clk := newTestLeaderState(t, 1, 0, 1, 2, 3)

	targets := ls.NonAcknowledgingVoters()
	if len(targets) != 2 {
		t.Fatalf("expected voters 2 and 3 (excluding the leader itself), got %d", len(targets))
	}

	if err := ls.AddAcknowledgementFrom(2); err != nil {
		t.Fatal(err)
	}
	targets = ls.NonAcknowledgingVoters()
	if len(targets) != 1 || targets[0].ID != 3 {
		t.Fatalf("expected only voter 3 still unacknowledged, got %+v", targets)
	}

	ls.ResetBeginQuorumEpochTimer(clk.NowMillis())
	if remaining := ls.TimeUntilBeginQuorumEpochTimerExpires(clk.NowMillis()); remaining != 1000 {
		t.Fatalf("expected a full period remaining right after reset, got %d", remaining)
	}
}
