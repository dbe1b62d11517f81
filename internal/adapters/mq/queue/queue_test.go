package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/adapters/mq/intent"
)

func pending(path string) Item {
	return intent.NewPending(context.Background(), intent.Intent{Channel: "scores", Path: path})
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, pending("/scores/create")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	it := <-q.Dequeue(ctx)
	if it.Intent.Path != "/scores/create" {
		t.Errorf("expected /scores/create, got %v", it.Intent.Path)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, pending("/scores/delete/1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, pending("/scores/delete/2")) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, pending("/scores/delete/3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_KeepsOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		q.Enqueue(ctx, pending(fmt.Sprintf("/scores/update/%d", i)))
	}
	_ = q.Close()

	i := 0
	for it := range q.Dequeue(ctx) {
		if want := fmt.Sprintf("/scores/update/%d", i); it.Intent.Path != want {
			t.Errorf("expected %s, got %s", want, it.Intent.Path)
		}
		i++
	}
	if i != 5 {
		t.Errorf("expected 5 items after close, got %d", i)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numItems := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numItems; j++ {
				for !q.Enqueue(ctx, pending(fmt.Sprintf("/scores/create/%d/%d", id, j))) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	received := 0
	ch := q.Dequeue(ctx)
	timeout := time.After(5 * time.Second)
	for received < numGoroutines*numItems {
		select {
		case <-ch:
			received++
		case <-timeout:
			t.Fatalf("timed out after %d items", received)
		}
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}
}

func TestInMemoryQueue_CancelledConsumerResolves(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	it := pending("/scores/create")
	q.Enqueue(context.Background(), it)

	ctx, cancel := context.WithCancel(context.Background())
	ch := q.Dequeue(ctx)
	cancel()

	// Either the forwarder hands the item out or resolves it with the
	// cancellation; in both cases the channel is closed afterwards.
	select {
	case got, ok := <-ch:
		if ok && got != it {
			t.Error("unexpected item")
		}
		if ok {
			return
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue channel not closed after cancel")
	}
	if err := it.Wait(context.Background()); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, pending("/scores/create")) {
		t.Error("expected enqueue to fail after closing")
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected no items from a closed empty queue")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected dequeue channel to be closed within timeout")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
