package autosave_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctx/pkg/autosave"
	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/render"
)

type recorder struct {
	mu       sync.Mutex
	payloads []map[string]any
	active   int32
	overlap  atomic.Bool
	release  chan struct{}
	err      error
}

func (r *recorder) submit(ctx context.Context, payload map[string]any) error {
	if atomic.AddInt32(&r.active, 1) > 1 {
		r.overlap.Store(true)
	}
	defer atomic.AddInt32(&r.active, -1)

	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	r.mu.Unlock()
	return r.err
}

func (r *recorder) got() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.payloads...)
}

func flush(t *testing.T, q *autosave.Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestQueueCoalescesToLatestPayload(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	q := autosave.New(rec.submit, autosave.WithDelay(time.Hour))
	defer q.Close()

	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(map[string]any{"rev": i}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	flush(t, q)

	want := []map[string]any{{"rev": 3}}
	if diff := cmp.Diff(want, rec.got()); diff != "" {
		t.Fatalf("submissions mismatch (-want +got):\n%s", diff)
	}
	if q.Submitted() != 1 {
		t.Fatalf("expected one submission, got %d", q.Submitted())
	}
}

func TestQueueSubmitsAfterDelay(t *testing.T) {
	t.Parallel()

	done := make(chan map[string]any, 1)
	q := autosave.New(func(_ context.Context, payload map[string]any) error {
		done <- payload
		return nil
	}, autosave.WithDelay(5*time.Millisecond))
	defer q.Close()

	if err := q.Enqueue(map[string]any{"name": "ceph"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case payload := <-done:
		if payload["name"] != "ceph" {
			t.Fatalf("unexpected payload %v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced submission never ran")
	}
}

func TestQueueKeepsOneSubmissionInFlight(t *testing.T) {
	t.Parallel()

	rec := &recorder{release: make(chan struct{})}
	q := autosave.New(rec.submit, autosave.WithDelay(time.Hour))
	defer q.Close()

	if err := q.Enqueue(map[string]any{"rev": 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	flushed := make(chan error, 1)
	go func() { flushed <- q.Flush(context.Background()) }()

	// Wait for the first submission to block before queueing more work.
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&rec.active) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first submission never started")
		}
		time.Sleep(time.Millisecond)
	}
	if err := q.Enqueue(map[string]any{"rev": 2}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(map[string]any{"rev": 3}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	close(rec.release)
	if err := <-flushed; err != nil {
		t.Fatalf("flush: %v", err)
	}
	flush(t, q)

	want := []map[string]any{{"rev": 1}, {"rev": 3}}
	if diff := cmp.Diff(want, rec.got()); diff != "" {
		t.Fatalf("submissions mismatch (-want +got):\n%s", diff)
	}
	if rec.overlap.Load() {
		t.Fatal("submissions overlapped")
	}
}

func TestQueueReportsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend down")
	rec := &recorder{err: boom}
	var handled []error
	var mu sync.Mutex
	q := autosave.New(rec.submit,
		autosave.WithDelay(time.Hour),
		autosave.WithErrorHandler(func(err error) {
			mu.Lock()
			handled = append(handled, err)
			mu.Unlock()
		}),
	)
	defer q.Close()

	if err := q.Enqueue(map[string]any{"rev": 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	flush(t, q)

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || !errors.Is(handled[0], boom) {
		t.Fatalf("expected backend error to be handled, got %v", handled)
	}
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	q := autosave.New(rec.submit, autosave.WithDelay(time.Hour))
	if err := q.Enqueue(map[string]any{"rev": 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	q.Close()
	q.Close()

	if err := q.Enqueue(map[string]any{"rev": 2}); !errors.Is(err, autosave.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	flush(t, q)
	if got := rec.got(); len(got) != 0 {
		t.Fatalf("expected pending payload to be dropped, got %v", got)
	}
}

func TestQueueCloseCancelsInFlight(t *testing.T) {
	t.Parallel()

	rec := &recorder{release: make(chan struct{})}
	q := autosave.New(rec.submit, autosave.WithDelay(0))
	if err := q.Enqueue(map[string]any{"rev": 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&rec.active) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("submission never started")
		}
		time.Sleep(time.Millisecond)
	}

	q.Close()
	if q.Submitted() != 1 {
		t.Fatalf("expected the cancelled submission to be counted, got %d", q.Submitted())
	}
}

func TestWatchSavesValidStatesOnly(t *testing.T) {
	t.Parallel()

	c, err := form.New(form.Spec{
		Contexts: []model.Context{{Name: "general", Fields: []model.Field{
			{Name: "name", Type: model.FieldTypeText, Required: true},
		}}},
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	rec := &recorder{}
	q := autosave.New(rec.submit, autosave.WithDelay(time.Hour))
	defer q.Close()
	stop := autosave.Watch(c, q, render.PayloadOptions{StripContext: true})

	if _, err := c.SetValue("general", "name", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	flush(t, q)
	if got := rec.got(); len(got) != 0 {
		t.Fatalf("invalid state was saved: %v", got)
	}

	if _, err := c.SetValue("general", "name", "shelf"); err != nil {
		t.Fatalf("set: %v", err)
	}
	flush(t, q)

	stop()
	if _, err := c.SetValue("general", "name", "rack"); err != nil {
		t.Fatalf("set: %v", err)
	}
	flush(t, q)

	want := []map[string]any{{"name": "shelf"}}
	if diff := cmp.Diff(want, rec.got()); diff != "" {
		t.Fatalf("submissions mismatch (-want +got):\n%s", diff)
	}
}
