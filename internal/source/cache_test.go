package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadash/internal/models"
)

// countingSource serves one row per period and counts upstream reads.
type countingSource struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (s *countingSource) Periods(context.Context) ([]string, error) {
	return []string{"2024Q2", "2024Q1"}, nil
}

func (s *countingSource) Records(_ context.Context, period string) ([]models.Record, error) {
	s.calls.Add(1)
	if s.fail[period] {
		return nil, errors.New("upstream failure")
	}
	return []models.Record{{DrugName: "drug of " + period}}, nil
}

func TestMemoryCacheTTL(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "p", []models.Record{{DrugName: "a"}})
	rows, ok := c.Get(ctx, "p")
	require.True(t, ok)
	assert.Equal(t, "a", rows[0].DrugName)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "p")
	assert.False(t, ok)

	c.Set(ctx, "q", nil)
	c.mu.RLock()
	assert.NotContains(t, c.entries, "p")
	c.mu.RUnlock()

	c.Invalidate(ctx, "q")
	_, ok = c.Get(ctx, "q")
	assert.False(t, ok)
}

func TestCachedServesFromCache(t *testing.T) {
	up := &countingSource{}
	c := NewCached(up, NewMemoryCache(time.Hour))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rows, err := c.Records(ctx, "2024Q1")
		require.NoError(t, err)
		assert.Equal(t, "drug of 2024Q1", rows[0].DrugName)
	}
	assert.EqualValues(t, 1, up.calls.Load())

	c.Refresh(ctx, "2024Q1")
	_, err := c.Records(ctx, "2024Q1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, up.calls.Load())

	periods, err := c.Periods(ctx)
	require.NoError(t, err)
	assert.Len(t, periods, 2)
}

func TestCachedConcurrentReaders(t *testing.T) {
	up := &countingSource{}
	c := NewCached(up, NewMemoryCache(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := c.Records(context.Background(), "2024Q2")
			assert.NoError(t, err)
			assert.Len(t, rows, 1)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, up.calls.Load(), int32(16))
	assert.GreaterOrEqual(t, up.calls.Load(), int32(1))
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	up := &countingSource{fail: map[string]bool{"bad": true}}
	c := NewCached(up, NewMemoryCache(time.Hour))
	ctx := context.Background()

	_, err := c.Records(ctx, "bad")
	assert.Error(t, err)
	_, err = c.Records(ctx, "bad")
	assert.Error(t, err)
	assert.EqualValues(t, 2, up.calls.Load())
}

func TestCachedWarm(t *testing.T) {
	up := &countingSource{fail: map[string]bool{"2023Q4": true}}
	c := NewCached(up, NewMemoryCache(time.Hour))
	ctx := context.Background()

	n := c.Warm(ctx, []string{"2024Q2", "2024Q1", "2023Q4"}, 2)
	assert.Equal(t, 2, n)

	_, err := c.Records(ctx, "2024Q1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, up.calls.Load())
}

func TestFetcherAdaptsSource(t *testing.T) {
	f := Fetcher{Source: &countingSource{}}
	rows, err := f.Fetch(context.Background(), "2024Q1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// gatedSource blocks every read until release is closed and fails reads
// whose context was cancelled meanwhile.
type gatedSource struct {
	countingSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSource) Records(ctx context.Context, period string) ([]models.Record, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.countingSource.Records(ctx, period)
}

func TestCachedCancelledCallerDoesNotFailOthers(t *testing.T) {
	up := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCached(up, NewMemoryCache(time.Hour))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Records(ctxA, "2024Q1")
		errA <- err
	}()
	<-up.started

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	type result struct {
		rows []models.Record
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		rows, err := c.Records(context.Background(), "2024Q1")
		resB <- result{rows, err}
	}()
	close(up.release)

	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "drug of 2024Q1", b.rows[0].DrugName)
	assert.EqualValues(t, 1, up.calls.Load())

	rows, ok := c.cache.Get(context.Background(), "2024Q1")
	require.True(t, ok)
	assert.Len(t, rows, 1)
}
