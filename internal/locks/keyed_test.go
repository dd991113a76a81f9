package locks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedAcquireRelease(t *testing.T) {
	t.Parallel()
	k := NewKeyed()

	release, err := k.Acquire(context.Background(), "p1", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	// reacquire after release must succeed immediately
	release, err = k.Acquire(context.Background(), "p1", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	release()
}

func TestKeyedTimeoutWhileHeld(t *testing.T) {
	t.Parallel()
	k := NewKeyed()

	release, err := k.Acquire(context.Background(), "p1", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = k.Acquire(context.Background(), "p1", 20*time.Millisecond)
	if !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("expected ErrAcquireTimeout, got %v", err)
	}
}

func TestKeyedIndependentKeys(t *testing.T) {
	t.Parallel()
	k := NewKeyed()

	release, err := k.Acquire(context.Background(), "p1", time.Second)
	if err != nil {
		t.Fatalf("acquire p1: %v", err)
	}
	defer release()

	// holding p1 must not block p2
	release2, err := k.Acquire(context.Background(), "p2", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire p2 while p1 held: %v", err)
	}
	release2()
}

func TestKeyedContextCancel(t *testing.T) {
	t.Parallel()
	k := NewKeyed()

	release, err := k.Acquire(context.Background(), "p1", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = k.Acquire(ctx, "p1", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestKeyedMutualExclusion(t *testing.T) {
	t.Parallel()
	k := NewKeyed()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.Acquire(context.Background(), "shared", 5*time.Second)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			counter++
			release()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d (lost update)", counter)
	}
}
