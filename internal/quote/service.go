package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trade-journal-go/internal/calc"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

// ErrNoQuote is returned when a price can neither be fetched nor served
// from the cache.
var ErrNoQuote = errors.New("no quote available")

// Options configures a Service instance. Tests construct isolated services
// with tight windows instead of sharing process-wide state.
type Options struct {
	RateLimit  int           // fetches allowed per window
	RateWindow time.Duration // rolling window size
	OpenTTL    time.Duration // cache TTL while the market is open
	ClosedTTL  time.Duration // cache TTL while the market is closed
}

// OptionsFromConfig converts the application config into service options.
func OptionsFromConfig(cfg *config.Quotes) Options {
	return Options{
		RateLimit:  cfg.RateLimit,
		RateWindow: time.Duration(cfg.RateWindowSec) * time.Second,
		OpenTTL:    time.Duration(cfg.OpenTTLSec) * time.Second,
		ClosedTTL:  time.Duration(cfg.ClosedTTLSec) * time.Second,
	}
}

type cacheEntry struct {
	price     float64
	timestamp time.Time
}

type lookupRequest struct {
	symbol string
	done   chan lookupResult
}

type lookupResult struct {
	price float64
	err   error
}

// Service returns current market prices for symbols. Lookups are served
// from a TTL cache when possible; misses are queued and drained strictly
// FIFO under a rolling rate-limit window. Failed fetches degrade to the
// last cached price when one exists.
type Service struct {
	client PriceFetcher
	logger *zap.Logger
	opts   Options
	now    func() time.Time

	mu           sync.Mutex
	cache        map[string]cacheEntry
	queue        []*lookupRequest
	requestCount int
	windowStart  time.Time
	draining     bool
}

// NewService creates a new quote service with its own cache and queue.
func NewService(client PriceFetcher, opts Options, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
		opts:   opts,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// ttl returns the cache TTL for the given moment. Prices barely move while
// the market is closed, so stale data is tolerated much longer.
func (s *Service) ttl(at time.Time) time.Duration {
	if IsMarketOpen(at) {
		return s.opts.OpenTTL
	}
	return s.opts.ClosedTTL
}

// GetPrice returns the current price for symbol. It blocks until the
// lookup is served from cache, fetched, or definitively failed; once a
// lookup is queued it cannot be cancelled.
func (s *Service) GetPrice(ctx context.Context, symbol string) (float64, error) {
	now := s.now()

	s.mu.Lock()
	if entry, ok := s.cache[symbol]; ok {
		if now.Sub(entry.timestamp) < s.ttl(now) {
			s.mu.Unlock()
			return entry.price, nil
		}
		// Closed market: even a stale price is current enough, skip the
		// fetch entirely.
		if !IsMarketOpen(now) {
			s.mu.Unlock()
			return entry.price, nil
		}
	}

	req := &lookupRequest{symbol: symbol, done: make(chan lookupResult, 1)}
	s.queue = append(s.queue, req)
	s.startDrainLocked()
	s.mu.Unlock()

	res := <-req.done
	return res.price, res.err
}

// startDrainLocked kicks the single drain loop if it is not already
// running. Callers must hold s.mu.
func (s *Service) startDrainLocked() {
	if s.draining {
		return
	}
	s.draining = true
	go s.drain()
}

// drain processes the pending queue in FIFO order, respecting the rolling
// rate-limit window. At most one drain loop runs at a time; when the
// window is exhausted the loop reschedules itself after the remaining
// window time plus a one second safety buffer.
func (s *Service) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}

		now := s.now()
		if now.Sub(s.windowStart) > s.opts.RateWindow {
			s.requestCount = 0
			s.windowStart = now
		}

		if s.requestCount >= s.opts.RateLimit {
			delay := s.opts.RateWindow - now.Sub(s.windowStart) + time.Second
			if delay < 0 {
				delay = time.Second
			}
			s.logger.Warn("Quote rate limit reached, delaying queue drain",
				zap.Duration("delay", delay),
				zap.Int("pending", len(s.queue)))
			time.AfterFunc(delay, func() {
				s.mu.Lock()
				s.requestCount = 0
				s.windowStart = s.now()
				s.mu.Unlock()
				s.drain()
			})
			s.mu.Unlock()
			return
		}

		s.requestCount++
		req := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		price, err := s.fetch(req.symbol)
		req.done <- lookupResult{price: price, err: err}
	}
}

// fetch resolves a single queued lookup: cache within TTL, then the
// provider, then the stale cache as a last resort.
func (s *Service) fetch(symbol string) (float64, error) {
	now := s.now()

	s.mu.Lock()
	entry, cached := s.cache[symbol]
	s.mu.Unlock()

	// A concurrent lookup may have refreshed the entry while this request
	// waited in the queue.
	if cached && now.Sub(entry.timestamp) < s.ttl(now) {
		return entry.price, nil
	}

	price, err := s.client.FetchPrice(context.Background(), symbol)
	if err != nil {
		if cached {
			s.logger.Warn("Quote fetch failed, serving stale cached price",
				zap.String("symbol", symbol),
				zap.Time("cached_at", entry.timestamp),
				zap.Error(err))
			return entry.price, nil
		}
		return 0, fmt.Errorf("%w for %s: %s", ErrNoQuote, symbol, err)
	}

	s.mu.Lock()
	s.cache[symbol] = cacheEntry{price: price, timestamp: now}
	s.mu.Unlock()

	return price, nil
}

// CalculatePnL returns the unrealized profit or loss for an open trade at
// the current market price, or nil when no price is available. Callers
// must treat nil as unknown, never as zero.
func (s *Service) CalculatePnL(ctx context.Context, trade *models.Trade) *float64 {
	price, err := s.GetPrice(ctx, trade.Symbol)
	if err != nil {
		s.logger.Debug("No price available for P&L",
			zap.String("symbol", trade.Symbol), zap.Error(err))
		return nil
	}

	pnl := calc.ProfitLoss(trade.Type, trade.EntryPrice, price, trade.Quantity)
	return &pnl
}
