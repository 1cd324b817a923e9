package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/dedidash/internal/domain/model"
)

func job(player string) model.FetchJob {
	return model.FetchJob{RunID: "run", Player: player, QueuedAt: time.Now()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("yrdk")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.Player != "yrdk" {
		t.Errorf("expected yrdk, got %v", j.Player)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, job("b")) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("c")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	producers, perProducer := 10, 50

	var consumed sync.Map
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range q.Dequeue(ctx) {
				consumed.Store(j.Player, true)
			}
		}()
	}

	var pw sync.WaitGroup
	for i := 0; i < producers; i++ {
		pw.Add(1)
		go func(id int) {
			defer pw.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, job(fmt.Sprintf("p%d_%d", id, j))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	pw.Wait()
	_ = q.Close()
	wg.Wait()

	n := 0
	consumed.Range(func(_, _ any) bool { n++; return true })
	if n != producers*perProducer {
		t.Errorf("expected %d consumed jobs, got %d", producers*perProducer, n)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a")) || !q.Enqueue(ctx, job("b")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job("c")) {
		t.Error("expected enqueue to fail after closing")
	}

	// Jobs queued before Close are still delivered.
	var got []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for done := false; !done; {
		select {
		case j, ok := <-ch:
			if !ok {
				done = true
				break
			}
			got = append(got, j.Player)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
	if len(got) != 2 {
		t.Errorf("expected 2 drained jobs, got %v", got)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

func TestFill(t *testing.T) {
	ctx := context.Background()

	q := NewInMemoryQueue(WithCapacity(3))
	if err := Fill(ctx, q, []Job{job("a"), job("b")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected Fill to close the queue")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}

	small := NewInMemoryQueue(WithCapacity(1))
	if err := Fill(ctx, small, []Job{job("a"), job("b")}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}

	closed := NewInMemoryQueue()
	_ = closed.Close()
	if err := Fill(ctx, closed, []Job{job("a")}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestInMemoryQueue_CanceledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, job("a")) {
		t.Error("expected enqueue to fail on a canceled context")
	}
	if l := q.Len(context.Background()); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}
