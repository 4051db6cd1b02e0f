package streamer

import "time"

// relClock tracks wall-clock time between successive ALiS/asciicast-v3
// events: rel-time is measured at send time against the previous send,
// not against the session's own monotonic clock, so a slow consumer sees
// real inter-event delay rather than the producer's delay.
type relClock struct {
	last    time.Time
	started bool
}

// start anchors the clock at Init time without itself producing a
// duration: Init's own rel-time is always a literal 0.
func (c *relClock) start() {
	c.last = time.Now()
	c.started = true
}

func (c *relClock) next() time.Duration {
	now := time.Now()
	var d time.Duration
	if c.started {
		d = now.Sub(c.last)
	}
	c.last = now
	c.started = true
	return d
}
