package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_RefusesAfterMaxAttempts(t *testing.T) {
	l := New(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("signin_a@b.com"), "attempt %d should pass", i+1)
	}
	assert.False(t, l.Allow("signin_a@b.com"), "6th attempt should be refused")
	assert.False(t, l.Allow("signin_a@b.com"), "refusal must not record new attempts")
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	assert.True(t, l.Allow("signin_a@b.com"))
	assert.False(t, l.Allow("signin_a@b.com"))
	assert.True(t, l.Allow("signin_c@d.com"))
}

func TestAllow_WindowExpiryFreesSlots(t *testing.T) {
	now := time.Now()
	l := New(2, 10*time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	now = now.Add(11 * time.Minute)
	assert.True(t, l.Allow("k"), "pruned window should admit again")
}

func TestRetryAfter(t *testing.T) {
	now := time.Now()
	l := New(2, 10*time.Minute)
	l.now = func() time.Time { return now }

	assert.Zero(t, l.RetryAfter("k"), "unblocked key has no wait")

	l.Allow("k")
	now = now.Add(2 * time.Minute)
	l.Allow("k")

	// Oldest attempt expires 8 minutes from now.
	assert.Equal(t, 8*time.Minute, l.RetryAfter("k"))

	now = now.Add(9 * time.Minute)
	assert.Zero(t, l.RetryAfter("k"))
}

func TestAllow_ConcurrentCallersCannotOverfill(t *testing.T) {
	l := New(10, time.Minute)

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("k")
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 10, count)
}
