package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedValueLifecycle(t *testing.T) {

	require := require.New(t)

	now := time.Now()
	cache := NewCachedValue[string](time.Hour)

	_, ok := cache.Get(now)
	require.False(ok)

	v := "hello"
	cache.Put(&v, now)

	got, ok := cache.Get(now.Add(30 * time.Minute))
	require.True(ok)
	assert.Equal(t, "hello", *got)

	// expired at exactly the TTL
	_, ok = cache.Get(now.Add(time.Hour))
	require.False(ok)
}

func TestCachedValueMarkStale(t *testing.T) {

	require := require.New(t)

	now := time.Now()
	cache := NewCachedValue[int](time.Hour)
	v := 42
	cache.Put(&v, now)

	cache.MarkStale()
	_, ok := cache.Get(now)
	require.False(ok)

	// a fresh Put clears the stale mark
	cache.Put(&v, now)
	_, ok = cache.Get(now)
	require.True(ok)
}

func TestCachedValueInvalidate(t *testing.T) {

	require := require.New(t)

	now := time.Now()
	cache := NewCachedValue[int](time.Hour)
	v := 1
	cache.Put(&v, now)
	cache.Invalidate()

	_, ok := cache.Get(now)
	require.False(ok)
}

func TestAdaptiveRefreshPolicyIntervals(t *testing.T) {

	policy := NewAdaptiveRefreshPolicy(0, 0, nil)
	assert.Equal(t, DefaultChargingInterval, policy.Interval(true))
	assert.Equal(t, DefaultIdleInterval, policy.Interval(false))

	policy = NewAdaptiveRefreshPolicy(5*time.Second, time.Minute, nil)
	assert.Equal(t, 5*time.Second, policy.Interval(true))
	assert.Equal(t, time.Minute, policy.Interval(false))
}
