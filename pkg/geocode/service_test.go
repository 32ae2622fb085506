package geocode

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/workerpool"
)

func TestService_GazetteerFastPath(t *testing.T) {
	fp := newFakeProvider(nil)
	s := NewService(WithProvider(fp))

	loc, err := s.Geocode(context.Background(), "Denver, CO")
	require.NoError(t, err)
	assert.Equal(t, SourceGazetteer, loc.Source)
	assert.Zero(t, fp.calls.Load())
	assert.Zero(t, s.Cache().Len(), "gazetteer hits are not cached")
}

func TestService_CacheRoundTrip(t *testing.T) {
	fp := newFakeProvider(map[string]*Location{
		"123 main st springfield": googleLoc(39.78, -89.65, "123 Main St, Springfield, IL"),
	})
	s := NewService(WithProvider(fp), WithRetry(fastRetry()))

	first, err := s.Geocode(context.Background(), "123 Main St, Springfield")
	require.NoError(t, err)
	require.True(t, first.Valid)

	second, err := s.Geocode(context.Background(), "  123 MAIN ST springfield ")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), fp.calls.Load())
}

func TestService_CacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fp := newFakeProvider(map[string]*Location{"1 elm st": googleLoc(1, 1, "1 Elm St")})
	s := NewService(WithProvider(fp), WithCacheTTL(time.Minute), WithNow(func() time.Time { return now }))

	_, _ = s.Geocode(context.Background(), "1 Elm St")
	now = now.Add(2 * time.Minute)
	_, _ = s.Geocode(context.Background(), "1 Elm St")
	assert.Equal(t, int32(2), fp.calls.Load())
}

func TestService_RetriesTransientThenSucceeds(t *testing.T) {
	fp := newFakeProvider(map[string]*Location{"9 oak ave": googleLoc(5, 5, "9 Oak Ave")})
	fp.errs = []error{
		resilience.NewTransientError(errors.New("503"), http.StatusServiceUnavailable),
		resilience.NewTransientError(errors.New("503"), http.StatusServiceUnavailable),
	}
	s := NewService(WithProvider(fp), WithRetry(fastRetry()))

	loc, err := s.Geocode(context.Background(), "9 Oak Ave")
	require.NoError(t, err)
	assert.True(t, loc.Valid)
	assert.Equal(t, int32(3), fp.calls.Load())
}

func TestService_FailureYieldsInvalidLocation(t *testing.T) {
	fp := newFakeProvider(nil)
	fp.errs = []error{
		resilience.NewTransientError(errors.New("down"), 503),
		resilience.NewTransientError(errors.New("down"), 503),
		resilience.NewTransientError(errors.New("down"), 503),
	}
	s := NewService(WithProvider(fp), WithRetry(fastRetry()))

	loc, err := s.Geocode(context.Background(), "77 Nowhere Rd")
	require.NoError(t, err)
	assert.False(t, loc.Valid)
	assert.Equal(t, SourceNone, loc.Source)
	assert.Equal(t, "77 Nowhere Rd", loc.FormattedAddress)
	assert.Equal(t, int32(3), fp.calls.Load())
	assert.Zero(t, s.Cache().Len())
}

func TestService_PermanentErrorNotRetried(t *testing.T) {
	fp := newFakeProvider(nil)
	fp.errs = []error{errors.New("REQUEST_DENIED")}
	s := NewService(WithProvider(fp), WithRetry(fastRetry()))

	loc, err := s.Geocode(context.Background(), "1 Main")
	require.NoError(t, err)
	assert.False(t, loc.Valid)
	assert.Equal(t, int32(1), fp.calls.Load())
}

func TestService_NoMatchOrNoProvider(t *testing.T) {
	s := NewService()
	loc, err := s.Geocode(context.Background(), "somewhere unknown")
	require.NoError(t, err)
	assert.False(t, loc.Valid)

	fp := newFakeProvider(nil)
	s = NewService(WithProvider(fp))
	loc, err = s.Geocode(context.Background(), "somewhere unknown")
	require.NoError(t, err)
	assert.False(t, loc.Valid)

	loc, err = s.Geocode(context.Background(), " ,, ")
	require.NoError(t, err)
	assert.False(t, loc.Valid)
}

func TestService_ContextCancelled(t *testing.T) {
	fp := newFakeProvider(nil)
	s := NewService(WithProvider(fp))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loc, err := s.Geocode(ctx, "1 Main")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, loc)
}

func TestService_CallTimeoutBoundsAttempt(t *testing.T) {
	fp := newFakeProvider(nil)
	fp.delay = time.Second
	s := NewService(WithProvider(fp), WithRetry(resilience.FixedBackoff(1, 0)), WithCallTimeout(10*time.Millisecond))

	start := time.Now()
	loc, err := s.Geocode(context.Background(), "slow st")
	require.NoError(t, err)
	assert.False(t, loc.Valid)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestService_ConcurrentLookupsShareOneCall(t *testing.T) {
	fp := newFakeProvider(map[string]*Location{"5 pine st": googleLoc(3, 3, "5 Pine St")})
	fp.delay = 20 * time.Millisecond
	s := NewService(WithProvider(fp))

	var wg sync.WaitGroup
	results := make([]*Location, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.Geocode(context.Background(), "5 Pine St")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), fp.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestService_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	fp := newFakeProvider(map[string]*Location{"5 pine st": googleLoc(3, 3, "5 Pine St")})
	fp.delay = 100 * time.Millisecond
	s := NewService(WithProvider(fp))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.Geocode(ctxA, "5 Pine St")
		errA <- err
	}()
	require.Eventually(t, func() bool { return fp.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		loc *Location
		err error
	}
	resB := make(chan result, 1)
	go func() {
		loc, err := s.Geocode(context.Background(), "5 Pine St")
		resB <- result{loc, err}
	}()
	time.Sleep(10 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)
	b := <-resB
	require.NoError(t, b.err)
	assert.True(t, b.loc.Valid)
	assert.Equal(t, SourceGoogle, b.loc.Source)
	assert.Equal(t, int32(1), fp.calls.Load())
}

func TestService_GeocodeAsync(t *testing.T) {
	pool := workerpool.New(2, 8)
	defer pool.Shutdown(true)
	s := NewService(WithPool(pool))

	f, err := s.GeocodeAsync(context.Background(), "Boulder")
	require.NoError(t, err)
	loc, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Boulder", loc.City)

	inline := NewService()
	f, err = inline.GeocodeAsync(context.Background(), "Austin")
	require.NoError(t, err)
	select {
	case <-f.Done():
	default:
		t.Fatal("inline future should be resolved")
	}
}

func TestService_ReverseGeocode(t *testing.T) {
	s := NewService()
	loc, err := s.ReverseGeocode(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	assert.Equal(t, "Denver", loc.City)

	loc, err = s.ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, loc.Valid)
	assert.Equal(t, "0.00000,0.00000", loc.FormattedAddress)

	fp := newFakeProvider(map[string]*Location{"reverse": googleLoc(0, 0, "Gulf of Guinea")})
	s = NewService(WithProvider(fp))
	loc, err = s.ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Gulf of Guinea", loc.FormattedAddress)
}

func TestDefaultLocation(t *testing.T) {
	d := DefaultLocation()
	assert.True(t, d.Valid)
	assert.Equal(t, SourceDefault, d.Source)
	assert.Equal(t, "Denver, CO", d.Label())
	assert.Equal(t, "1.0000,2.0000", (&Location{Latitude: 1, Longitude: 2}).Label())
	assert.Equal(t, "Austin, TX", (&Location{City: "Austin", State: "TX"}).Label())
}
