// Package autosave persists form payloads in the background while a user is
// still editing. Writes are debounced, at most one submission runs at a time
// and only the newest pending payload is kept.
package autosave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultDelay is the debounce interval used when none is configured.
const DefaultDelay = 500 * time.Millisecond

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("autosave: queue is closed")

// SubmitFunc persists one payload.
type SubmitFunc func(ctx context.Context, payload map[string]any) error

// Option customises a Queue.
type Option func(*Queue)

// WithDelay sets the debounce interval. Non-positive values submit on the
// next scheduler tick.
func WithDelay(delay time.Duration) Option {
	return func(q *Queue) {
		q.delay = delay
	}
}

// WithLogger routes submission diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithErrorHandler is called with every failed submission.
func WithErrorHandler(fn func(error)) Option {
	return func(q *Queue) {
		q.onError = fn
	}
}

// Queue debounces payloads onto a SubmitFunc. The pending slot has depth 1:
// a payload enqueued while another waits replaces it.
type Queue struct {
	submit  SubmitFunc
	delay   time.Duration
	logger  *slog.Logger
	onError func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	timer      *time.Timer
	pending    map[string]any
	hasPending bool
	ready      bool
	running    bool
	closed     bool
	idle       chan struct{}
	idleClosed bool
	gen        int
	submitted  int
}

// New creates a queue submitting through submit.
func New(submit SubmitFunc, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	q := &Queue{
		submit:     submit,
		delay:      DefaultDelay,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:        ctx,
		cancel:     cancel,
		idle:       idle,
		idleClosed: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// Enqueue schedules payload for submission once the debounce interval
// elapses without a newer call.
func (q *Queue) Enqueue(payload map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.hasPending {
		q.logger.Debug("autosave: replacing pending payload")
	}
	q.pending = payload
	q.hasPending = true
	q.ready = false
	q.markBusy()

	if q.timer != nil {
		q.timer.Stop()
	}
	q.gen++
	gen := q.gen
	q.timer = time.AfterFunc(q.delay, func() { q.fire(gen) })
	return nil
}

// Flush submits any pending payload immediately and waits until the queue is
// idle or ctx is done.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if q.hasPending {
		q.ready = true
		q.startLocked()
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting payloads, drops anything still pending, cancels the
// in-flight submission and waits for it to return. Call Flush first to
// deliver pending work.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if q.hasPending {
		q.logger.Warn("autosave: dropping pending payload on close")
	}
	q.pending = nil
	q.hasPending = false
	if !q.running {
		q.markIdle()
	}
	idle := q.idle
	q.mu.Unlock()

	q.cancel()
	<-idle
}

// Submitted reports how many submissions have completed, failed or not.
func (q *Queue) Submitted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submitted
}

// fire ignores timers superseded by a later Enqueue whose Stop came too late.
func (q *Queue) fire(gen int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || !q.hasPending || gen != q.gen {
		return
	}
	q.timer = nil
	q.ready = true
	q.startLocked()
}

// startLocked launches the submission loop unless it is already running; a
// running loop picks up the ready payload when its current call returns.
func (q *Queue) startLocked() {
	if q.running {
		return
	}
	q.running = true
	go q.loop()
}

func (q *Queue) loop() {
	for {
		q.mu.Lock()
		if !q.hasPending || !q.ready {
			q.running = false
			if !q.hasPending {
				q.markIdle()
			}
			q.mu.Unlock()
			return
		}
		payload := q.pending
		q.pending = nil
		q.hasPending = false
		q.ready = false
		q.mu.Unlock()

		err := q.submit(q.ctx, payload)

		q.mu.Lock()
		q.submitted++
		q.mu.Unlock()

		if err != nil {
			q.logger.Warn("autosave: submission failed", slog.String("error", err.Error()))
			if q.onError != nil {
				q.onError(err)
			}
		}
	}
}

func (q *Queue) markBusy() {
	if q.idleClosed {
		q.idle = make(chan struct{})
		q.idleClosed = false
	}
}

func (q *Queue) markIdle() {
	if !q.idleClosed {
		close(q.idle)
		q.idleClosed = true
	}
}
