package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLocalLockExclusive(t *testing.T) {
	l := NewLocalLock()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inside := 0
	maxInside := 0
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, ok, err := l.Acquire(ctx, "k")
			if err != nil || !ok {
				t.Errorf("Acquire failed: %v %v", ok, err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1

			mu.Lock()
			inside--
			mu.Unlock()
			if err := l.Release(ctx, "k", token); err != nil {
				t.Errorf("Release failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most 1 holder, saw %d", maxInside)
	}
	if counter != 50 {
		t.Errorf("expected counter 50, got %d", counter)
	}
	if l.Keys() != 0 {
		t.Errorf("expected lock table to be empty, got %d keys", l.Keys())
	}
}

func TestLocalLockIndependentKeys(t *testing.T) {
	l := NewLocalLock()
	ctx := context.Background()

	a, ok, _ := l.Acquire(ctx, "a")
	if !ok {
		t.Fatal("acquire a failed")
	}
	b, ok, _ := l.Acquire(ctx, "b")
	if !ok {
		t.Fatal("different key should not block")
	}
	l.Release(ctx, "a", a)
	l.Release(ctx, "b", b)
}

func TestLocalLockContextCancel(t *testing.T) {
	l := NewLocalLock()
	token, _, _ := l.Acquire(context.Background(), "k")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok, err := l.Acquire(ctx, "k")
	if ok {
		t.Fatal("second acquire should not succeed while held")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	if err := l.Release(context.Background(), "k", token); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if l.Keys() != 0 {
		t.Errorf("cancelled waiter leaked a key")
	}
}

func TestLocalLockWrongToken(t *testing.T) {
	l := NewLocalLock()
	ctx := context.Background()
	token, _, _ := l.Acquire(ctx, "k")

	if err := l.Release(ctx, "k", "bogus"); !errors.Is(err, ErrNotHeld) {
		t.Errorf("expected ErrNotHeld, got %v", err)
	}
	if err := l.Release(ctx, "missing", token); !errors.Is(err, ErrNotHeld) {
		t.Errorf("expected ErrNotHeld for unknown key, got %v", err)
	}
	if err := l.Release(ctx, "k", token); err != nil {
		t.Errorf("Release failed: %v", err)
	}
}

func TestRedisLock(t *testing.T) {
	addr := os.Getenv("XPULSE_TEST_REDIS")
	if addr == "" {
		t.Skip("XPULSE_TEST_REDIS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	l := NewRedisLock(client, 2*time.Second, 0, 10*time.Millisecond)
	key := ProfileKey("lock-test")
	client.Del(ctx, key)

	token, ok, err := l.Acquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Acquire failed: %v %v", ok, err)
	}

	if _, ok, _ := l.Acquire(ctx, key); ok {
		t.Error("second acquire should fail without retries")
	}

	if err := l.Release(ctx, key, "bogus"); !errors.Is(err, ErrNotHeld) {
		t.Errorf("expected ErrNotHeld, got %v", err)
	}
	if err := l.Release(ctx, key, token); err != nil {
		t.Errorf("Release failed: %v", err)
	}
}
