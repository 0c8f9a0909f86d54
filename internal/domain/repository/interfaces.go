package repository

import (
	"context"

	"DipWatch/internal/domain/models"
)

// MarketStream delivers asynchronous upstream price ticks.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SnapshotSource returns a bulk price snapshot for a set of
// underlyings. Used for the initial fill and as a fallback poll when
// the push channel is unavailable.
type SnapshotSource interface {
	Fetch(ctx context.Context, underlyings []models.Underlying) (map[models.Underlying]models.Quote, error)
}

// AlertPublisher fans fired alerts out to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, alert *models.DipAlert) error
	Close() error
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordTick(underlying, outcome string) // outcome: accepted, throttled, malformed
	RecordLastPrice(symbol string, price float64)
	RecordDip(symbol string, pct float64)
	RecordAlert(symbol, outcome string) // outcome: fired, queued, evicted
	RecordSlots(active int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
