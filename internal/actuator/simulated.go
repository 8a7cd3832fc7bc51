package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Op is a recorded valve command.
type Op string

const (
	OpOn  Op = "on"
	OpOff Op = "off"
)

// Call is one recorded command with the time it was issued.
type Call struct {
	Op Op
	At time.Time
}

// Simulated is an in-memory valve that records every command.
type Simulated struct {
	mu    sync.Mutex
	now   func() time.Time
	open  bool
	calls []Call

	failOn  error
	failOff error
}

// NewSimulated creates a closed simulated valve. now stamps recorded calls;
// nil means time.Now.
func NewSimulated(now func() time.Time) *Simulated {
	if now == nil {
		now = time.Now
	}
	return &Simulated{now: now}
}

// On implements Actuator.
func (s *Simulated) On(_ context.Context) error {
	return s.record(OpOn)
}

// Off implements Actuator.
func (s *Simulated) Off(_ context.Context) error {
	return s.record(OpOff)
}

func (s *Simulated) record(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: op, At: s.now()})

	failure := s.failOn
	if op == OpOff {
		failure = s.failOff
	}
	if failure != nil {
		return fmt.Errorf("%w: %s: %w", ErrActuation, op, failure)
	}
	s.open = op == OpOn
	return nil
}

// FailWith makes subsequent On or Off calls return the given errors.
// Nil clears the failure.
func (s *Simulated) FailWith(onErr, offErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = onErr
	s.failOff = offErr
}

// IsOpen reports the simulated valve position.
func (s *Simulated) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Calls returns a copy of the recorded commands.
func (s *Simulated) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}
