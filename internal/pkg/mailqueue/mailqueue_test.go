package mailqueue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func newTestQueue(workers, capacity int) *Queue {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewQueue(logger, workers, capacity)
}

func TestQueue_DeliversAllSends(t *testing.T) {
	q := newTestQueue(3, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var delivered atomic.Int32
	for i := 0; i < 5; i++ {
		ok := q.Enqueue(func(ctx context.Context) error {
			delivered.Add(1)
			return nil
		})
		if !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	q.Shutdown()

	if delivered.Load() != 5 {
		t.Fatalf("expected 5 delivered, got %d", delivered.Load())
	}
	stats := q.Stats()
	if stats.Enqueued != 5 || stats.Sent != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestQueue_FailedSendInvokesErrorHandler(t *testing.T) {
	q := newTestQueue(1, 5)

	var handlerCalls atomic.Int32
	q.SetErrorHandler(func(err error) {
		handlerCalls.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue(func(ctx context.Context) error { return nil })
	q.Enqueue(func(ctx context.Context) error { return errors.New("smtp unreachable") })

	q.Shutdown()

	stats := q.Stats()
	if stats.Sent != 1 {
		t.Fatalf("expected 1 sent, got %d", stats.Sent)
	}
	if stats.Failed != 1 {
		t.Fatalf("expected 1 failed, got %d", stats.Failed)
	}
	if handlerCalls.Load() != 1 {
		t.Fatalf("expected 1 error handler call, got %d", handlerCalls.Load())
	}
}

func TestQueue_PanicDoesNotKillWorker(t *testing.T) {
	q := newTestQueue(1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue(func(ctx context.Context) error {
		panic("boom")
	})

	var executed atomic.Bool
	q.Enqueue(func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	q.Shutdown()

	if q.Stats().Panics != 1 {
		t.Fatalf("expected 1 panic, got %d", q.Stats().Panics)
	}
	if !executed.Load() {
		t.Fatalf("expected worker to survive the panic and run the next send")
	}
}

func TestQueue_FullQueueDrops(t *testing.T) {
	q := newTestQueue(1, 1)
	// 未启动 worker，容量 1：第二次入队必然被丢弃

	block := func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	if !q.Enqueue(block) {
		t.Fatalf("first enqueue should succeed")
	}
	if q.Enqueue(block) {
		t.Fatalf("second enqueue should be dropped")
	}
	if q.Stats().Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", q.Stats().Dropped)
	}
}

func TestQueue_RejectsAfterShutdown(t *testing.T) {
	q := newTestQueue(1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	q.Shutdown()

	if q.Enqueue(func(ctx context.Context) error { return nil }) {
		t.Fatalf("enqueue after shutdown should be rejected")
	}
}
