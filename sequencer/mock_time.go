package sequencer

import (
	"sync"
	"time"
)

// MockTime is a TimeSource that only moves when told to
type MockTime struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMockTime creates a mock time source starting at start
func NewMockTime(start time.Time) *MockTime {
	return &MockTime{now: start}
}

// Now returns the mocked time
func (m *MockTime) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set jumps to t
func (m *MockTime) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the mocked time forward by d
func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
