// Package mockfeed provides a synthetic MarketStream for local runs
// and demos. Prices follow a slow random walk around fixed bases.
package mockfeed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	applogger "DipWatch/pkg/logger"
)

var basePrices = map[models.Underlying]float64{
	models.UnderlyingBitcoin:  92000,
	models.UnderlyingEthereum: 3500,
}

// Config holds the mock feed settings.
type Config struct {
	Underlyings []models.Underlying
	Interval    time.Duration
	// Drift is the max per-tick price change as a fraction of the
	// current price.
	Drift float64
}

// Feed is an in-process MarketStream emitting synthetic ticks.
type Feed struct {
	cfg Config
	log *applogger.Logger

	mu        sync.Mutex
	prices    map[models.Underlying]float64
	connected bool
	cancel    context.CancelFunc
}

// New creates a mock feed.
func New(cfg Config, log *applogger.Logger) drepo.MarketStream {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.Drift <= 0 {
		cfg.Drift = 0.004
	}
	if len(cfg.Underlyings) == 0 {
		cfg.Underlyings = models.Underlyings
	}
	prices := make(map[models.Underlying]float64, len(cfg.Underlyings))
	for _, u := range cfg.Underlyings {
		prices[u] = basePrices[u]
	}
	return &Feed{cfg: cfg, log: log, prices: prices}
}

func (f *Feed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	f.log.Info("mock feed connected")
	return nil
}

func (f *Feed) Subscribe(ctx context.Context) error { return nil }

func (f *Feed) Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error) {
	ticks := make(chan *models.PriceTick, 64)
	errs := make(chan error, 1)

	runCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	go func() {
		defer close(ticks)
		defer close(errs)
		ticker := time.NewTicker(f.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				for _, t := range f.nextTicks() {
					select {
					case ticks <- t:
					default:
					}
				}
			}
		}
	}()

	return ticks, errs
}

func (f *Feed) nextTicks() []*models.PriceTick {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UnixMilli()
	out := make([]*models.PriceTick, 0, len(f.cfg.Underlyings))
	for _, u := range f.cfg.Underlyings {
		price := f.prices[u]
		price *= 1 + (rand.Float64()*2-1)*f.cfg.Drift
		f.prices[u] = price
		base := basePrices[u]
		out = append(out, &models.PriceTick{
			Underlying: u,
			Price:      price,
			Change24h:  (price - base) / base * 100,
			Timestamp:  now,
		})
	}
	return out
}

func (f *Feed) Reconnect(ctx context.Context) error {
	_ = f.Close()
	return f.Connect(ctx)
}

func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	return nil
}

func (f *Feed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Snapshot serves the walk's base quotes, standing in for the REST
// snapshot endpoint when the mock feed is enabled.
type Snapshot struct{}

func (Snapshot) Fetch(_ context.Context, underlyings []models.Underlying) (map[models.Underlying]models.Quote, error) {
	out := make(map[models.Underlying]models.Quote, len(underlyings))
	for _, u := range underlyings {
		if base, ok := basePrices[u]; ok {
			out[u] = models.Quote{Price: base}
		}
	}
	return out, nil
}
