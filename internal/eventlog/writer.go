package eventlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	dirPermissions  = 0750
	filePermissions = 0640

	// defaultRetryDelay is the pause before the single retry.
	defaultRetryDelay = 100 * time.Millisecond
)

// Writer appends watering lines to a shared stream.
//
// Thread Safety:
//   - Append is safe for concurrent use. The lock is held for one write
//     call only, never across the retry pause.
type Writer struct {
	mu sync.Mutex
	w  io.Writer

	closer     io.Closer
	retryDelay time.Duration

	onErrorMu sync.RWMutex
	onError   func(err error, ev Event)
}

// NewWriter wraps w. Each Append issues exactly one Write per attempt.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:          w,
		retryDelay: defaultRetryDelay,
	}
}

// OpenFile opens path for appending, creating it and its directory.
func OpenFile(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("opening watering log: %w", err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// SetOnError registers the diagnostic callback invoked when an append
// fails after its retry. The callback must not block.
func (w *Writer) SetOnError(fn func(err error, ev Event)) {
	w.onErrorMu.Lock()
	defer w.onErrorMu.Unlock()
	w.onError = fn
}

// SetRetryDelay changes the pause before the retry. Intended for tests.
func (w *Writer) SetRetryDelay(d time.Duration) {
	w.retryDelay = d
}

// Append writes the log line for a completed event.
//
// The write is attempted at most twice. Cancelling ctx skips the retry
// pause but never interrupts a write in progress.
func (w *Writer) Append(ctx context.Context, ev Event) error {
	if ev.Outcome != OutcomeCompleted {
		return fmt.Errorf("%w: %s", ErrNotCompleted, ev.Outcome)
	}
	line := []byte(ev.Line())

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.retryDelay), 1),
		ctx,
	)
	err := backoff.Retry(func() error {
		return w.write(line)
	}, policy)
	if err == nil {
		return nil
	}

	err = fmt.Errorf("%w: station %s: %w", ErrAppendFailed, ev.StationID, err)
	w.onErrorMu.RLock()
	fn := w.onError
	w.onErrorMu.RUnlock()
	if fn != nil {
		fn(err, ev)
	}
	return err
}

func (w *Writer) write(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.w.Write(line)
	if err != nil {
		return err
	}
	if n != len(line) {
		return io.ErrShortWrite
	}
	return nil
}

// Close closes the underlying file when the Writer came from OpenFile.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	if err := w.closer.Close(); err != nil {
		return fmt.Errorf("closing watering log: %w", err)
	}
	return nil
}
