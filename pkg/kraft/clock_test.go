package kraft

// manualClock is a test-only helper for generating the monotonic millisecond
// values passed explicitly to every time-dependent LeaderState method (spec
// §6: every such method takes `now` as an argument supplied by the driver;
// there is no internal clock for LeaderState to read).
type manualClock struct{ millis int64 }

func newManualClock(start int64) *manualClock { return &manualClock{millis: start} }

func (c *manualClock) NowMillis() int64 { return c.millis }

func (c *manualClock) Set(millis int64) { c.millis = millis }

func (c *manualClock) Advance(delta int64) { c.millis += delta }
