package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingDirectory struct {
	calls  int
	exists bool
	err    error
}

func (d *countingDirectory) Exists(context.Context, string) (bool, error) {
	d.calls++
	return d.exists, d.err
}

func TestCachingDirectory(t *testing.T) {
	base := &countingDirectory{exists: true}
	cache := NewCachingDirectory(base, time.Minute)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := cache.Exists(context.Background(), "user-1")
		if err != nil || !ok {
			t.Fatalf("expected user to exist, got %v %v", ok, err)
		}
	}
	if base.calls != 1 {
		t.Fatalf("expected a single lookup, got %d", base.calls)
	}

	now = now.Add(2 * time.Minute)
	base.exists = false
	ok, err := cache.Exists(context.Background(), "user-1")
	if err != nil || ok {
		t.Fatalf("expected expired entry to be re-checked, got %v %v", ok, err)
	}

	ok, _ = cache.Exists(context.Background(), "user-1")
	if ok || base.calls != 3 {
		t.Fatalf("misses must not be cached, calls=%d", base.calls)
	}
}

func TestCachingDirectoryPropagatesErrors(t *testing.T) {
	boom := errors.New("store offline")
	cache := NewCachingDirectory(&countingDirectory{err: boom}, time.Minute)

	if _, err := cache.Exists(context.Background(), "user-1"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
