package hardware

import (
	"sync"
	"time"
)

// MockDepriver records actions for tests and dev mode. Optional Err and
// Latency simulate a failing or slow shield.
type MockDepriver struct {
	Err     error
	Latency time.Duration

	mu      sync.Mutex
	actions []Action
}

// NewMockDepriver returns an available mock with no failures configured.
func NewMockDepriver() *MockDepriver {
	return &MockDepriver{}
}

func (m *MockDepriver) Deprive(a Action) error {
	if m.Latency > 0 {
		time.Sleep(m.Latency)
	}
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, a)
	return nil
}

func (m *MockDepriver) Available() bool { return true }

// Actions returns a copy of the recorded actions.
func (m *MockDepriver) Actions() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Action, len(m.actions))
	copy(out, m.actions)
	return out
}
