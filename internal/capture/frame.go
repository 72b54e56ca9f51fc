package capture

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame is one captured image and the time it was read. Timestamps from a
// single camera strictly increase, which the landmarker's video mode requires.
type Frame struct {
	Image       *gocv.Mat
	TimestampMs int64
}

// Close releases the image.
func (f *Frame) Close() error {
	if f == nil || f.Image == nil {
		return nil
	}
	return f.Image.Close()
}

// Clock issues strictly increasing millisecond timestamps. Two reads inside
// the same millisecond, or a wall clock stepping backwards, bump the stamp to
// one past the previous one.
type Clock struct {
	now  func() time.Time
	mu   sync.Mutex
	last int64
}

// NewClock returns a Clock reading now; nil means time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next returns the next timestamp in milliseconds.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Last returns the most recent timestamp issued, or 0 before the first.
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
