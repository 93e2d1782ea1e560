package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Deterministic clock anchors: a Wednesday midday Eastern (market open)
// and the following Saturday (market closed).
var (
	openClock   = time.Date(2024, 3, 6, 12, 0, 0, 0, easternTime)
	closedClock = time.Date(2024, 3, 9, 12, 0, 0, 0, easternTime)
)

type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	prices map[string]float64
	err    error
}

func (f *fakeFetcher) FetchPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.prices[symbol], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func testOptions() Options {
	return Options{
		RateLimit:  10,
		RateWindow: 60 * time.Second,
		OpenTTL:    60 * time.Second,
		ClosedTTL:  time.Hour,
	}
}

func newTestService(f *fakeFetcher, at time.Time, opts Options) *Service {
	s := NewService(f, opts, zap.NewNop())
	s.now = func() time.Time { return at }
	return s
}

func TestGetPriceCacheHit(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"AAPL": 187.44}}
	s := newTestService(f, openClock, testOptions())

	price, err := s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 187.44, price)
	assert.Equal(t, 1, f.callCount())

	// Second lookup within TTL must not hit the provider again.
	price, err = s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 187.44, price)
	assert.Equal(t, 1, f.callCount())
}

func TestGetPriceExpiredCacheRefetches(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"AAPL": 187.44}}
	s := newTestService(f, openClock, testOptions())

	_, err := s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	// Advance past the open-market TTL; the price has moved.
	s.now = func() time.Time { return openClock.Add(2 * time.Minute) }
	f.prices["AAPL"] = 190.10

	price, err := s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.10, price)
	assert.Equal(t, 2, f.callCount())
}

func TestGetPriceStaleFallbackOnFetchFailure(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"AAPL": 187.44}}
	s := newTestService(f, openClock, testOptions())

	_, err := s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	// Expire the cache and break the provider: the stale price must be
	// served instead of an error.
	s.now = func() time.Time { return openClock.Add(2 * time.Minute) }
	f.setErr(errors.New("connection refused"))

	price, err := s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 187.44, price)
}

func TestGetPriceFailsWithoutCache(t *testing.T) {
	f := &fakeFetcher{}
	f.setErr(errors.New("connection refused"))
	s := newTestService(f, openClock, testOptions())

	_, err := s.GetPrice(context.Background(), "TSLA")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestGetPriceClosedMarketServesAnyCachedPrice(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"AAPL": 187.44}}
	s := newTestService(f, openClock, testOptions())

	_, err := s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 1, f.callCount())

	// Days later, on a Saturday: the cached entry is long past even the
	// closed-market TTL, but closed-market prices do not move.
	s.now = func() time.Time { return closedClock }

	price, err := s.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 187.44, price)
	assert.Equal(t, 1, f.callCount())
}

func TestGetPriceClosedMarketUncachedStillFetches(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"NVDA": 903.5}}
	s := newTestService(f, closedClock, testOptions())

	price, err := s.GetPrice(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, 903.5, price)
	assert.Equal(t, 1, f.callCount())
}

func TestDrainRespectsRateLimitWindow(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"A": 1, "B": 2, "C": 3}}
	opts := testOptions()
	opts.RateLimit = 2
	opts.RateWindow = 50 * time.Millisecond
	s := newTestService(f, openClock, opts)

	start := time.Now()

	var wg sync.WaitGroup
	prices := make([]float64, 3)
	for i, symbol := range []string{"A", "B", "C"} {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			p, err := s.GetPrice(context.Background(), symbol)
			assert.NoError(t, err)
			prices[i] = p
		}(i, symbol)
	}
	wg.Wait()

	assert.Equal(t, []float64{1, 2, 3}, prices)
	assert.Equal(t, 3, f.callCount())

	// The third lookup sat behind the exhausted window and its one second
	// safety buffer.
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestCalculatePnL(t *testing.T) {
	trade := &models.Trade{Symbol: "AAPL", Type: models.TypeLong, EntryPrice: 150, Quantity: 500}

	t.Run("KnownPrice", func(t *testing.T) {
		f := &fakeFetcher{prices: map[string]float64{"AAPL": 160}}
		s := newTestService(f, openClock, testOptions())

		pnl := s.CalculatePnL(context.Background(), trade)
		require.NotNil(t, pnl)
		assert.Equal(t, 5000.0, *pnl)
	})

	t.Run("UnknownPriceIsNilNotZero", func(t *testing.T) {
		f := &fakeFetcher{}
		f.setErr(errors.New("connection refused"))
		s := newTestService(f, openClock, testOptions())

		assert.Nil(t, s.CalculatePnL(context.Background(), trade))
	})

	t.Run("ShortPosition", func(t *testing.T) {
		short := &models.Trade{Symbol: "AAPL", Type: models.TypeShort, EntryPrice: 150, Quantity: 500}
		f := &fakeFetcher{prices: map[string]float64{"AAPL": 145}}
		s := newTestService(f, openClock, testOptions())

		pnl := s.CalculatePnL(context.Background(), short)
		require.NotNil(t, pnl)
		assert.Equal(t, 2500.0, *pnl)
	})
}
