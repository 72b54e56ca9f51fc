package detector

import "sync"

// Latest holds the most recent FrameResult. Each Store overwrites the previous
// result; nothing is queued, so a consumer that falls behind only ever sees the
// newest frame.
type Latest struct {
	mu     sync.Mutex
	result FrameResult
	seq    uint64
}

// NewLatest creates an empty slot.
func NewLatest() *Latest {
	return &Latest{}
}

// Store replaces the held result and returns its sequence number.
// Sequence numbers start at 1 and increase by one per Store.
func (l *Latest) Store(r FrameResult) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.result = r
	l.seq++
	return l.seq
}

// Load returns the held result and its sequence number. A sequence of 0 means
// nothing has been stored yet.
func (l *Latest) Load() (FrameResult, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result, l.seq
}

// Clear drops the held result. The sequence still advances so consumers
// notice the change.
func (l *Latest) Clear() {
	l.Store(FrameResult{})
}
