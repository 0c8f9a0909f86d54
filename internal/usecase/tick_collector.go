package usecase

import (
	"context"
	"sync"
	"time"

	"DipWatch/internal/detector"
	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	"DipWatch/pkg/cache"
	applogger "DipWatch/pkg/logger"
)

const snapshotCacheKey = "snapshot:quotes"

// CollectorConfig holds the ingestion settings.
type CollectorConfig struct {
	Underlyings    []models.Underlying
	ReconnectDelay time.Duration
	SnapshotPoll   time.Duration
	SnapshotTTL    time.Duration
}

func (c CollectorConfig) withDefaults() CollectorConfig {
	if len(c.Underlyings) == 0 {
		c.Underlyings = models.Underlyings
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 1500 * time.Millisecond
	}
	if c.SnapshotPoll <= 0 {
		c.SnapshotPoll = 30 * time.Second
	}
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = 5 * time.Minute
	}
	return c
}

// TickCollector drives the feed lifecycle: connect, seed from a
// snapshot, stream ticks into the detector, and recover from stream
// failures with unlimited retries.
type TickCollector struct {
	cfg      CollectorConfig
	stream   drepo.MarketStream
	snapshot drepo.SnapshotSource
	engine   *detector.Engine
	cache    cache.Service
	metrics  drepo.Metrics
	log      *applogger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewTickCollector creates a new TickCollector instance. cache may be
// nil when no snapshot cache is configured.
func NewTickCollector(cfg CollectorConfig, stream drepo.MarketStream, snapshot drepo.SnapshotSource, engine *detector.Engine, cacheSvc cache.Service, metrics drepo.Metrics, log *applogger.Logger) *TickCollector {
	return &TickCollector{
		cfg:      cfg.withDefaults(),
		stream:   stream,
		snapshot: snapshot,
		engine:   engine,
		cache:    cacheSvc,
		metrics:  metrics,
		log:      log,
	}
}

// IsConnected returns true if the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects the stream and begins consuming. A failed initial
// connect is not fatal: recovery keeps retrying in the background.
func (c *TickCollector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.pollLoop(runCtx)

	c.engine.SetConnecting()
	if err := c.stream.Connect(runCtx); err != nil {
		c.log.Warn("feed connect failed", applogger.Error(err))
		c.metrics.RecordError("connect")
		c.engine.SetError()
		go c.reconnectLoop(runCtx)
		return nil
	}
	if err := c.stream.Subscribe(runCtx); err != nil {
		c.log.Warn("feed subscribe failed", applogger.Error(err))
		c.metrics.RecordError("subscribe")
		c.engine.SetError()
		go c.reconnectLoop(runCtx)
		return nil
	}

	c.seed(runCtx)
	c.engine.SetListening()
	tkCh, errCh := c.stream.Read(runCtx)
	go c.consume(runCtx, tkCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tkCh <-chan *models.PriceTick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.log.Warn("feed stream failed", applogger.Error(err))
			}
			c.metrics.RecordError("stream")
			c.engine.SetError()
			go c.reconnectLoop(ctx)
			return
		case t, ok := <-tkCh:
			if !ok {
				c.engine.SetError()
				go c.reconnectLoop(ctx)
				return
			}
			if t == nil {
				continue
			}
			c.engine.HandleTick(t)
		}
	}
}

// reconnectLoop retries until the stream is back or the context ends.
// The stream's own Reconnect paces each attempt.
func (c *TickCollector) reconnectLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.engine.SetConnecting()
		if err := c.stream.Reconnect(ctx); err != nil {
			c.log.Warn("feed reconnect failed", applogger.Error(err))
			c.metrics.RecordError("reconnect")
			c.engine.SetError()
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectDelay):
			}
			continue
		}
		c.seed(ctx)
		c.engine.SetListening()
		tkCh, errCh := c.stream.Read(ctx)
		go c.consume(ctx, tkCh, errCh)
		return
	}
}

// seed fills current prices from a REST snapshot, falling back to the
// cached copy when the fetch fails.
func (c *TickCollector) seed(ctx context.Context) {
	quotes, err := c.snapshot.Fetch(ctx, c.cfg.Underlyings)
	if err != nil {
		c.log.Warn("snapshot fetch failed", applogger.Error(err))
		c.metrics.RecordError("snapshot")
		quotes = c.cachedQuotes(ctx)
		if quotes == nil {
			return
		}
	} else if c.cache != nil {
		if cerr := c.cache.Set(ctx, snapshotCacheKey, quotes, c.cfg.SnapshotTTL); cerr != nil {
			c.log.Debug("snapshot cache store failed", applogger.Error(cerr))
		}
	}

	now := time.Now().UnixMilli()
	for u, q := range quotes {
		c.engine.HandleTick(&models.PriceTick{
			Underlying: u,
			Price:      q.Price,
			Change24h:  q.Change24h,
			Timestamp:  now,
		})
	}
}

func (c *TickCollector) cachedQuotes(ctx context.Context) map[models.Underlying]models.Quote {
	if c.cache == nil {
		return nil
	}
	var quotes map[models.Underlying]models.Quote
	if err := c.cache.Get(ctx, snapshotCacheKey, &quotes); err != nil {
		return nil
	}
	c.log.Info("seeded prices from stale snapshot cache")
	return quotes
}

// pollLoop refreshes prices over REST while the push channel is down.
func (c *TickCollector) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SnapshotPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.stream.IsConnected() {
				continue
			}
			c.seed(ctx)
		}
	}
}

// ForceReconnect tears the push channel down. The consume loop sees
// the failure and runs the normal recovery path.
func (c *TickCollector) ForceReconnect() error {
	return c.stream.Close()
}

// Shutdown cancels recovery and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	return c.stream.Close()
}
