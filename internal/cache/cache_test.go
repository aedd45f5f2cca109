package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*QueryCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(ttl, WithClock(clock.Now)), clock
}

func counter(calls *int32, value int) func(context.Context) (int, error) {
	return func(context.Context) (int, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "feature_set", Key("feature_set"))
	assert.Equal(t, "feature_set(300000)", Key("feature_set", 300000))
	assert.Equal(t, "card_types(50,10000)", Key("card_types", 50, 10000))
}

func TestFetch_HitWithinTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32

	v, err := Fetch(ctx, c, "q", []any{1}, counter(&calls, 7))
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	clock.Advance(30 * time.Second)
	v, err = Fetch(ctx, c, "q", []any{1}, counter(&calls, 8))
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.EqualValues(t, 1, calls)
}

func TestFetch_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32

	_, err := Fetch(ctx, c, "q", nil, counter(&calls, 1))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	v, err := Fetch(ctx, c, "q", nil, counter(&calls, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.EqualValues(t, 2, calls)
}

func TestFetch_ParamsAreDistinctKeys(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32

	a, _ := Fetch(ctx, c, "q", []any{10}, counter(&calls, 10))
	b, _ := Fetch(ctx, c, "q", []any{20}, counter(&calls, 20))
	assert.Equal(t, 10, a)
	assert.Equal(t, 20, b)
	assert.Equal(t, 2, c.Len())
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	boom := errors.New("connection refused")

	_, err := Fetch(ctx, c, "q", nil, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	var calls int32
	v, err := Fetch(ctx, c, "q", nil, counter(&calls, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestInvalidate_DropsOnlyNamedQuery(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32

	_, _ = Fetch(ctx, c, "feature_set", []any{1}, counter(&calls, 1))
	_, _ = Fetch(ctx, c, "feature_set", []any{2}, counter(&calls, 2))
	_, _ = Fetch(ctx, c, "card_types", nil, counter(&calls, 3))
	require.Equal(t, 3, c.Len())

	c.Invalidate("feature_set")
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestZeroTTLDisablesMemoization(t *testing.T) {
	c, _ := newTestCache(0)
	ctx := context.Background()
	var calls int32

	_, _ = Fetch(ctx, c, "q", nil, counter(&calls, 1))
	_, _ = Fetch(ctx, c, "q", nil, counter(&calls, 1))
	assert.EqualValues(t, 2, calls)
	assert.Equal(t, 0, c.Len())
}

func TestFetch_CoalescesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = Fetch(ctx, c, "q", nil, fetch)
		}()
	}

	// Let the goroutines pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 42, r)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}

func TestInvalidateDuringFetchDiscardsResult(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()

	_, err := Fetch(ctx, c, "q", nil, func(context.Context) (int, error) {
		c.Invalidate("q")
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len(), "result fetched before invalidation must not be stored")
}
