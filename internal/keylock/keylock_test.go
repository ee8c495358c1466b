package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockExcludesSameKey(t *testing.T) {
	locks := New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		counter int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("alice", "bob")
			defer unlock()

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			counter++

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 32, counter)
	assert.Zero(t, locks.Len(), "released keys are dropped")
}

func TestLockOverlappingKeysInAnyOrder(t *testing.T) {
	locks := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("alice", "bob")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := locks.Lock("bob", "alice")
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite lock orders deadlocked")
	}
}

func TestLockDistinctKeysDoNotBlock(t *testing.T) {
	locks := New()
	unlockAlice := locks.Lock("alice")
	defer unlockAlice()

	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock("carol")
		unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on an unrelated key blocked")
	}
}

func TestLockDuplicateKeys(t *testing.T) {
	locks := New()
	unlock := locks.Lock("alice", "alice")
	require.Equal(t, 1, locks.Len())
	unlock()
	assert.Zero(t, locks.Len())
}
