package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSimulated_RecordsCalls(t *testing.T) {
	ts := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)
	s := NewSimulated(func() time.Time { return ts })
	ctx := context.Background()

	if s.IsOpen() {
		t.Fatal("new valve should be closed")
	}

	for _, step := range []struct {
		call     func(context.Context) error
		wantOpen bool
	}{
		{s.On, true},
		{s.On, true}, // idempotent
		{s.Off, false},
		{s.Off, false},
	} {
		if err := step.call(ctx); err != nil {
			t.Fatalf("call error = %v", err)
		}
		if s.IsOpen() != step.wantOpen {
			t.Errorf("IsOpen() = %v, want %v", s.IsOpen(), step.wantOpen)
		}
	}

	calls := s.Calls()
	want := []Op{OpOn, OpOn, OpOff, OpOff}
	if len(calls) != len(want) {
		t.Fatalf("len(Calls()) = %d, want %d", len(calls), len(want))
	}
	for i, c := range calls {
		if c.Op != want[i] || !c.At.Equal(ts) {
			t.Errorf("Calls()[%d] = %+v, want %s at %v", i, c, want[i], ts)
		}
	}
}

func TestSimulated_Failure(t *testing.T) {
	s := NewSimulated(nil)
	relayErr := errors.New("relay stuck")
	s.FailWith(relayErr, nil)

	err := s.On(context.Background())
	if !errors.Is(err, ErrActuation) || !errors.Is(err, relayErr) {
		t.Fatalf("On() error = %v, want ErrActuation wrapping cause", err)
	}
	if s.IsOpen() {
		t.Error("failed On() must not open the valve")
	}

	// Off still works so a driver can force the valve closed.
	if err := s.Off(context.Background()); err != nil {
		t.Errorf("Off() error = %v", err)
	}

	s.FailWith(nil, nil)
	if err := s.On(context.Background()); err != nil {
		t.Errorf("On() after clearing failure error = %v", err)
	}
}

type message struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, message{topic, string(payload), qos, retained})
	return nil
}

func TestMQTTRelay(t *testing.T) {
	pub := &mockPublisher{}
	r := NewMQTTRelay(pub, "5", 1)
	ctx := context.Background()

	if err := r.On(ctx); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if err := r.Off(ctx); err != nil {
		t.Fatalf("Off() error = %v", err)
	}

	want := []message{
		{"irrigation/command/valve/5", `{"on":true}`, 1, false},
		{"irrigation/command/valve/5", `{"on":false}`, 1, false},
	}
	if len(pub.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(pub.msgs), len(want))
	}
	for i := range want {
		if pub.msgs[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, pub.msgs[i], want[i])
		}
	}
	if r.Topic() != want[0].topic {
		t.Errorf("Topic() = %q", r.Topic())
	}
}

func TestMQTTRelay_Errors(t *testing.T) {
	pub := &mockPublisher{err: errors.New("not connected")}
	r := NewMQTTRelay(pub, "5", 1)

	if err := r.On(context.Background()); !errors.Is(err, ErrActuation) {
		t.Errorf("On() error = %v, want ErrActuation", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.err = nil
	if err := r.Off(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Off() on cancelled ctx = %v, want context.Canceled", err)
	}
	if len(pub.msgs) != 0 {
		t.Errorf("published %d messages, want 0", len(pub.msgs))
	}
}
