// Package market provides the simulated market-price feed
package market

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"ticket_desk/internal/core"
	"ticket_desk/pkg/concurrency"
	apperrors "ticket_desk/pkg/errors"
	"ticket_desk/pkg/telemetry"
	"time"

	"github.com/shopspring/decimal"
)

// Simulator implements core.IPriceFeed with a per-symbol random walk. It
// stands in for the upstream price feed the frontend mocks; consumers only
// see "most recent value known".
type Simulator struct {
	symbols  []string
	interval time.Duration
	maxDrift float64
	logger   core.ILogger

	// Last tick per symbol (atomic for concurrent access)
	ticks map[string]*atomic.Value // holds *core.PriceTick

	// Tick broadcasting
	subscribers []chan *core.PriceTick
	pool        *concurrency.WorkerPool

	isRunning int32 // atomic bool

	rngMu sync.Mutex
	rng   *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex

	lastUpdate atomic.Value // holds time.Time
}

// NewSimulator creates a price-feed simulator. initialPrices must carry a
// positive price for every symbol.
func NewSimulator(
	symbols []string,
	initialPrices map[string]float64,
	interval time.Duration,
	maxDrift float64,
	pool *concurrency.WorkerPool,
	logger core.ILogger,
) (*Simulator, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Simulator{
		symbols:     symbols,
		interval:    interval,
		maxDrift:    maxDrift,
		logger:      logger.WithField("component", "price_simulator"),
		ticks:       make(map[string]*atomic.Value, len(symbols)),
		subscribers: make([]chan *core.PriceTick, 0),
		pool:        pool,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:         ctx,
		cancel:      cancel,
	}

	now := time.Now()
	for _, sym := range symbols {
		p, ok := initialPrices[sym]
		if !ok || p <= 0 {
			cancel()
			return nil, fmt.Errorf("missing initial price for symbol %s", sym)
		}
		v := &atomic.Value{}
		v.Store(&core.PriceTick{
			Symbol:    sym,
			Price:     decimal.NewFromFloat(p),
			Timestamp: now,
		})
		s.ticks[sym] = v
	}
	s.lastUpdate.Store(time.Time{})

	return s, nil
}

// Start begins emitting price ticks
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if atomic.LoadInt32(&s.isRunning) == 1 {
		return fmt.Errorf("price simulator is already running")
	}

	s.logger.Info("Starting price simulator",
		"symbols", s.symbols,
		"interval", s.interval.String())
	atomic.StoreInt32(&s.isRunning, 1)

	s.wg.Add(1)
	go s.tickLoop(ctx)

	return nil
}

// Stop stops the simulator
func (s *Simulator) Stop() error {
	s.mu.Lock()
	if atomic.LoadInt32(&s.isRunning) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.logger.Info("Stopping price simulator")
	atomic.StoreInt32(&s.isRunning, 0)
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.logger.Warn("Price simulator stop timed out")
	}

	s.mu.Lock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.mu.Unlock()

	return nil
}

// GetLatestPrice returns the most recent price for a symbol
func (s *Simulator) GetLatestPrice(symbol string) (decimal.Decimal, error) {
	tick, err := s.GetLatestTick(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return tick.Price, nil
}

// GetLatestTick returns the most recent tick for a symbol
func (s *Simulator) GetLatestTick(symbol string) (*core.PriceTick, error) {
	v, ok := s.ticks[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
	}
	tick := v.Load().(*core.PriceTick)
	if tick == nil || !tick.Price.IsPositive() {
		return nil, apperrors.ErrNoPriceAvailable
	}
	return tick, nil
}

// Subscribe returns a channel receiving every emitted tick. Slow consumers
// drop ticks instead of blocking the feed.
func (s *Simulator) Subscribe() <-chan *core.PriceTick {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *core.PriceTick, 16)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// CheckHealth returns an error when the feed has stopped emitting
func (s *Simulator) CheckHealth() error {
	if atomic.LoadInt32(&s.isRunning) == 0 {
		return apperrors.ErrFeedNotRunning
	}
	last := s.lastUpdate.Load().(time.Time)
	if !last.IsZero() && time.Since(last) > 10*s.interval {
		return fmt.Errorf("stale feed: last update %s ago", time.Since(last))
	}
	return nil
}

func (s *Simulator) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// step advances every symbol's random walk by one tick and broadcasts
func (s *Simulator) step() {
	now := time.Now()
	metrics := telemetry.GetGlobalMetrics()

	for _, sym := range s.symbols {
		v := s.ticks[sym]
		prev := v.Load().(*core.PriceTick)

		next := &core.PriceTick{
			Symbol:    sym,
			Price:     s.walk(prev.Price),
			Timestamp: now,
		}
		v.Store(next)

		if metrics.PriceTicksTotal != nil {
			metrics.PriceTicksTotal.Add(s.ctx, 1)
		}

		s.broadcast(next)
	}
	s.lastUpdate.Store(now)
}

// walk applies a bounded uniform fractional move, floored to stay positive
func (s *Simulator) walk(price decimal.Decimal) decimal.Decimal {
	s.rngMu.Lock()
	drift := (s.rng.Float64()*2 - 1) * s.maxDrift
	s.rngMu.Unlock()

	factor := decimal.NewFromFloat(1 + drift)
	next := price.Mul(factor)
	if !next.IsPositive() {
		return price
	}
	return next
}

func (s *Simulator) broadcast(tick *core.PriceTick) {
	s.mu.RLock()
	subs := make([]chan *core.PriceTick, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	task := func() {
		for _, ch := range subs {
			select {
			case ch <- tick:
			default:
				// Subscriber buffer full, drop the tick
			}
		}
	}

	if s.pool != nil {
		if err := s.pool.Submit(task); err != nil {
			s.logger.Warn("Broadcast pool rejected tick", "symbol", tick.Symbol, "error", err)
		}
		return
	}
	task()
}
