package detector

import (
	"testing"
	"time"

	"DipWatch/internal/domain/models"
	applogger "DipWatch/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordTick(string, string)        {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordDip(string, float64)        {}
func (nopMetrics) RecordAlert(string, string)       {}
func (nopMetrics) RecordSlots(int)                  {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLatency(string, float64)    {}

func newTestEngine(cfg Config) *Engine {
	return NewEngine(cfg, applogger.Nop(), nopMetrics{}, nil)
}

func tick(u models.Underlying, price float64) *models.PriceTick {
	return &models.PriceTick{
		Underlying: u,
		Price:      price,
		Change24h:  -1,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// feed applies ticks with enough spacing to clear a nanosecond
// throttle interval.
func feed(e *Engine, ticks ...*models.PriceTick) {
	for _, tk := range ticks {
		e.HandleTick(tk)
		time.Sleep(10 * time.Microsecond)
	}
}

func TestEngineThrottleDiscardsBurst(t *testing.T) {
	e := newTestEngine(Config{ThrottleInterval: 100 * time.Millisecond})
	defer e.Close()
	e.SetListening()

	e.HandleTick(tick(models.UnderlyingBitcoin, 100000))
	e.HandleTick(tick(models.UnderlyingBitcoin, 90000))
	e.HandleTick(tick(models.UnderlyingBitcoin, 80000))

	p, ok := e.Prices()[models.SymbolIBIT]
	if !ok {
		t.Fatal("expected IBIT price")
	}
	if p.Price != 100 {
		t.Fatalf("only the first burst tick should apply; price = %v, want 100", p.Price)
	}
}

func TestEngineFiresOnCrossing(t *testing.T) {
	e := newTestEngine(Config{ThrottleInterval: time.Nanosecond})
	defer e.Close()
	e.SetListening()

	feed(e,
		tick(models.UnderlyingBitcoin, 100000), // session high: IBIT 100
		tick(models.UnderlyingBitcoin, 88000),  // dip 12%
	)

	if got := e.Status(); got != models.StatusAlertFiring {
		t.Fatalf("status = %s, want alert_firing", got)
	}
	a := e.ActiveAlert()
	if a == nil {
		t.Fatal("expected active alert")
	}
	if a.Symbol != models.SymbolIBIT || a.DipPercentage != 12 {
		t.Fatalf("alert = %s %v%%, want IBIT 12%%", a.Symbol, a.DipPercentage)
	}
	if a.HighPrice != 100 || a.Price != 88 {
		t.Fatalf("alert prices = %v/%v, want 88/100", a.Price, a.HighPrice)
	}
	if a.AlertID == "" {
		t.Fatal("alert must carry an id")
	}
}

func TestEngineQueuesWhileAlertActive(t *testing.T) {
	e := newTestEngine(Config{ThrottleInterval: time.Nanosecond})
	defer e.Close()
	e.SetListening()

	feed(e,
		tick(models.UnderlyingBitcoin, 100000),
		tick(models.UnderlyingBitcoin, 88000), // IBIT fires, becomes active
		tick(models.UnderlyingEthereum, 3000), // highs: ETHA/STCE 30
		tick(models.UnderlyingEthereum, 2600), // both dip 13.3%
	)

	if got := e.Status(); got != models.StatusAlertFiring {
		t.Fatalf("status = %s, want alert_firing", got)
	}
	q := e.QueuedAlerts()
	if len(q) != 2 {
		t.Fatalf("queued = %d, want 2", len(q))
	}
	if q[0].Symbol != models.SymbolETHA || q[1].Symbol != models.SymbolSTCE {
		t.Fatalf("unexpected queue order: %s, %s", q[0].Symbol, q[1].Symbol)
	}
}

func TestEngineQueueBoundEvictsOldest(t *testing.T) {
	e := newTestEngine(Config{ThrottleInterval: time.Nanosecond, QueueCapacity: 10})
	defer e.Close()
	e.SetListening()

	e.HandleTick(tick(models.UnderlyingBitcoin, 100000)) // session high 100
	time.Sleep(10 * time.Microsecond)
	e.SetError()                                         // every firing now queues

	for i := 0; i < 12; i++ {
		dip := 11 + 0.5*float64(i)
		feed(e,
			tick(models.UnderlyingBitcoin, 100000*(1-dip/100)),
			tick(models.UnderlyingBitcoin, 95000), // recover for the next firing
		)
	}

	q := e.QueuedAlerts()
	if len(q) != 10 {
		t.Fatalf("queued = %d, want 10", len(q))
	}
	// the two oldest (11.0, 11.5) must be gone
	if q[0].DipPercentage != 12 {
		t.Fatalf("oldest retained dip = %v, want 12", q[0].DipPercentage)
	}
	if q[9].DipPercentage != 16.5 {
		t.Fatalf("newest retained dip = %v, want 16.5", q[9].DipPercentage)
	}
}

func TestEngineAlertLifecycle(t *testing.T) {
	e := newTestEngine(Config{
		ThrottleInterval: time.Nanosecond,
		AlertTTL:         30 * time.Millisecond,
		CooldownDelay:    20 * time.Millisecond,
	})
	defer e.Close()
	e.SetListening()

	feed(e,
		tick(models.UnderlyingBitcoin, 100000),
		tick(models.UnderlyingBitcoin, 88000),
	)
	if e.Status() != models.StatusAlertFiring {
		t.Fatal("expected alert_firing")
	}

	time.Sleep(40 * time.Millisecond) // TTL elapsed
	if got := e.Status(); got != models.StatusCooldown {
		t.Fatalf("after TTL: status = %s, want cooldown", got)
	}
	if e.ActiveAlert() != nil {
		t.Fatal("active alert should be cleared after TTL")
	}

	time.Sleep(30 * time.Millisecond) // cooldown elapsed
	if got := e.Status(); got != models.StatusListening {
		t.Fatalf("after cooldown: status = %s, want listening", got)
	}
}

func TestEngineDismissPromotesQueued(t *testing.T) {
	e := newTestEngine(Config{
		ThrottleInterval: time.Nanosecond,
		AlertTTL:         time.Minute, // dismissal drives this test, not TTL
		CooldownDelay:    10 * time.Millisecond,
	})
	defer e.Close()
	e.SetListening()

	feed(e,
		tick(models.UnderlyingBitcoin, 100000),
		tick(models.UnderlyingBitcoin, 88000), // active: IBIT
		tick(models.UnderlyingEthereum, 3000),
		tick(models.UnderlyingEthereum, 2600), // queued: ETHA, STCE
	)

	e.Dismiss()
	if got := e.Status(); got != models.StatusCooldown {
		t.Fatalf("after dismiss: status = %s, want cooldown", got)
	}

	time.Sleep(30 * time.Millisecond)
	if got := e.Status(); got != models.StatusAlertFiring {
		t.Fatalf("queued alert should be promoted; status = %s", got)
	}
	a := e.ActiveAlert()
	if a == nil || a.Symbol != models.SymbolETHA {
		t.Fatalf("promoted alert should be the oldest queued (ETHA), got %+v", a)
	}
	if len(e.QueuedAlerts()) != 1 {
		t.Fatalf("one alert should remain queued, got %d", len(e.QueuedAlerts()))
	}
}

func TestEngineStaleExpiryKeepsPromotedAlert(t *testing.T) {
	e := newTestEngine(Config{
		ThrottleInterval: time.Nanosecond,
		AlertTTL:         time.Minute,
		CooldownDelay:    10 * time.Millisecond,
	})
	defer e.Close()
	e.SetListening()

	feed(e,
		tick(models.UnderlyingBitcoin, 100000),
		tick(models.UnderlyingBitcoin, 88000), // active: IBIT
		tick(models.UnderlyingEthereum, 3000),
		tick(models.UnderlyingEthereum, 2600), // queued: ETHA, STCE
	)
	staleID := e.ActiveAlert().AlertID

	e.Dismiss()
	time.Sleep(30 * time.Millisecond) // cooldown ends, ETHA promoted
	promoted := e.ActiveAlert()
	if promoted == nil || promoted.Symbol != models.SymbolETHA {
		t.Fatalf("expected promoted ETHA alert, got %+v", promoted)
	}

	// a TTL timer armed for the dismissed alert firing late must not
	// clear its successor
	e.expireActive(staleID)
	if a := e.ActiveAlert(); a == nil || a.AlertID != promoted.AlertID {
		t.Fatalf("stale expiry cleared the promoted alert; active = %+v", a)
	}
	if got := e.Status(); got != models.StatusAlertFiring {
		t.Fatalf("status = %s, want alert_firing", got)
	}

	e.expireActive(promoted.AlertID)
	if e.ActiveAlert() != nil {
		t.Fatal("matching expiry should clear the active alert")
	}
}

func TestEngineDismissWithoutActiveIsNoop(t *testing.T) {
	e := newTestEngine(Config{})
	defer e.Close()
	e.SetListening()
	e.Dismiss()
	if got := e.Status(); got != models.StatusListening {
		t.Fatalf("status = %s, want listening", got)
	}
}

func TestEngineCloseCancelsTimers(t *testing.T) {
	e := newTestEngine(Config{
		ThrottleInterval: time.Nanosecond,
		AlertTTL:         20 * time.Millisecond,
	})
	e.SetListening()

	feed(e,
		tick(models.UnderlyingBitcoin, 100000),
		tick(models.UnderlyingBitcoin, 88000),
	)
	e.Close()

	time.Sleep(40 * time.Millisecond)
	if got := e.Status(); got != models.StatusAlertFiring {
		t.Fatalf("no transition may happen after Close; status = %s", got)
	}
}

func TestEngineResetSession(t *testing.T) {
	e := newTestEngine(Config{ThrottleInterval: time.Nanosecond})
	defer e.Close()
	e.SetListening()

	e.HandleTick(tick(models.UnderlyingBitcoin, 100000))
	e.ResetSession(models.SymbolIBIT)
	time.Sleep(10 * time.Microsecond)
	e.HandleTick(tick(models.UnderlyingBitcoin, 88000)) // new session high, no dip

	if got := e.Status(); got != models.StatusListening {
		t.Fatalf("reset high should suppress firing; status = %s", got)
	}
	p := e.Prices()[models.SymbolIBIT]
	if p.SessionHigh != 88 {
		t.Fatalf("session high = %v, want 88", p.SessionHigh)
	}
}
