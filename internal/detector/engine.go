package detector

import (
	"context"
	"sync"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	"DipWatch/internal/pricing"
	applogger "DipWatch/pkg/logger"
)

// Config holds the tunables of the dip detection engine.
type Config struct {
	Threshold        float64       // firing threshold in percent
	HysteresisWindow float64       // recovery margin in percent
	ThrottleInterval time.Duration // min spacing between accepted ticks per underlying
	QueueCapacity    int           // max pending alerts; oldest evicted beyond this
	AlertTTL         time.Duration // display lifetime of the active alert
	CooldownDelay    time.Duration // quiet period after an alert clears
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = 10
	}
	if c.HysteresisWindow <= 0 {
		c.HysteresisWindow = 2
	}
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = time.Second
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 10
	}
	if c.AlertTTL <= 0 {
		c.AlertTTL = 5 * time.Second
	}
	if c.CooldownDelay <= 0 {
		c.CooldownDelay = time.Second
	}
	return c
}

// Engine owns all per-symbol detection state: derived prices, session
// highs, hysteresis flags, the single active alert and the bounded
// pending queue. All mutation happens synchronously under one lock, so
// each event (tick, timer, dismissal) runs to completion before the
// next is applied.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	log     *applogger.Logger
	metrics drepo.Metrics
	pub     drepo.AlertPublisher // optional fan-out on activation

	status       models.Status
	prices       map[models.Symbol]*models.DerivedPrice
	highs        *HighTracker
	gate         *HysteresisGate
	lastAccepted map[models.Underlying]time.Time

	active *models.DipAlert
	queue  []*models.DipAlert

	alertTimer    *time.Timer
	cooldownTimer *time.Timer
	closed        bool
}

func NewEngine(cfg Config, log *applogger.Logger, metrics drepo.Metrics, pub drepo.AlertPublisher) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:          cfg,
		log:          log,
		metrics:      metrics,
		pub:          pub,
		status:       models.StatusIdle,
		prices:       make(map[models.Symbol]*models.DerivedPrice),
		highs:        NewHighTracker(),
		gate:         NewHysteresisGate(cfg.Threshold, cfg.HysteresisWindow),
		lastAccepted: make(map[models.Underlying]time.Time),
	}
}

// Threshold returns the firing threshold in percent.
func (e *Engine) Threshold() float64 { return e.cfg.Threshold }

// SetConnecting marks the feed subscription as in progress.
func (e *Engine) SetConnecting() { e.setStatus(models.StatusConnecting) }

// SetError marks an upstream failure. Alerts firing while in error are
// queued, not discarded; the state is always recoverable.
func (e *Engine) SetError() { e.setStatus(models.StatusError) }

// SetListening marks the steady state. Entering it drains the pending
// queue.
func (e *Engine) SetListening() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.status = models.StatusListening
	e.drainLocked()
}

func (e *Engine) setStatus(s models.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.status = s
}

// HandleTick applies one upstream tick: throttle, normalize, update
// per-symbol state, and run the threshold gate. Never returns an
// error; malformed data was already dropped upstream and anything the
// engine itself constructs wrong is logged loudly.
func (e *Engine) HandleTick(tick *models.PriceTick) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if last, ok := e.lastAccepted[tick.Underlying]; ok && start.Sub(last) < e.cfg.ThrottleInterval {
		e.metrics.RecordTick(string(tick.Underlying), "throttled")
		return
	}
	e.lastAccepted[tick.Underlying] = start
	e.metrics.RecordTick(string(tick.Underlying), "accepted")

	for _, up := range pricing.Normalize(tick) {
		high := e.highs.Observe(up.Symbol, up.Price)
		e.prices[up.Symbol] = &models.DerivedPrice{
			Symbol:      up.Symbol,
			Price:       up.Price,
			Change24h:   up.Change24h,
			SessionHigh: high,
			Timestamp:   up.Timestamp,
		}
		e.metrics.RecordLastPrice(string(up.Symbol), up.Price)

		dip := CalcDip(up.Price, high)
		e.metrics.RecordDip(string(up.Symbol), dip)
		if e.gate.Evaluate(up.Symbol, dip) {
			e.fireLocked(up.Symbol, up.Price, high, dip)
		}
	}
	e.metrics.RecordLatency("handle_tick", time.Since(start).Seconds())
}

func (e *Engine) fireLocked(symbol models.Symbol, price, high, dip float64) {
	alert, err := models.NewDipAlert(symbol, dip, price, high)
	if err != nil {
		// Out-of-range alert data is a detector defect, not input noise.
		e.log.Error("dip alert rejected", applogger.String("symbol", string(symbol)), applogger.Error(err))
		e.metrics.RecordError("alert_invalid")
		return
	}

	e.log.Info("dip detected",
		applogger.String("symbol", string(symbol)),
		applogger.Any("dip_pct", dip),
		applogger.Any("price", price),
	)

	if e.status == models.StatusListening && e.active == nil {
		e.activateLocked(alert)
		return
	}
	e.enqueueLocked(alert)
}

func (e *Engine) activateLocked(alert *models.DipAlert) {
	e.active = alert
	e.status = models.StatusAlertFiring
	e.metrics.RecordAlert(string(alert.Symbol), "fired")
	id := alert.AlertID
	e.alertTimer = time.AfterFunc(e.cfg.AlertTTL, func() { e.expireActive(id) })

	if e.pub != nil {
		go func(a *models.DipAlert) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.pub.Publish(ctx, a); err != nil {
				e.log.Warn("alert publish failed", applogger.Error(err))
				e.metrics.RecordError("alert_publish")
			}
		}(alert)
	}
}

func (e *Engine) enqueueLocked(alert *models.DipAlert) {
	e.queue = append(e.queue, alert)
	e.metrics.RecordAlert(string(alert.Symbol), "queued")
	if len(e.queue) > e.cfg.QueueCapacity {
		evicted := e.queue[0]
		e.queue = e.queue[1:]
		e.metrics.RecordAlert(string(evicted.Symbol), "evicted")
	}
}

// expireActive fires when an alert's display lifetime elapses. The
// timer is armed for one specific alert: if that alert was already
// dismissed and a successor promoted, a late firing must not clear the
// successor.
func (e *Engine) expireActive(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.active == nil || e.active.AlertID != id {
		return
	}
	e.clearActiveLocked()
}

func (e *Engine) clearActiveLocked() {
	e.active = nil
	e.status = models.StatusCooldown
	e.cooldownTimer = time.AfterFunc(e.cfg.CooldownDelay, e.finishCooldown)
}

func (e *Engine) finishCooldown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.status != models.StatusCooldown {
		return
	}
	e.status = models.StatusListening
	e.drainLocked()
}

// drainLocked promotes queued alerts while the engine sits in
// listening with no active alert.
func (e *Engine) drainLocked() {
	for e.status == models.StatusListening && e.active == nil && len(e.queue) > 0 {
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.activateLocked(next)
	}
}

// Dismiss clears the active alert ahead of its lifetime, entering
// cooldown. A no-op when nothing is active.
func (e *Engine) Dismiss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.active == nil {
		return
	}
	if e.alertTimer != nil {
		e.alertTimer.Stop()
	}
	e.clearActiveLocked()
}

// ResetSession clears the session high and hysteresis state for a
// symbol. Session-boundary maintenance; not part of the tick flow.
func (e *Engine) ResetSession(symbol models.Symbol) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.highs.Reset(symbol)
	e.gate.Reset(symbol)
}

// Status returns the current state name.
func (e *Engine) Status() models.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Prices returns a copy of the current per-symbol derived prices.
func (e *Engine) Prices() map[models.Symbol]models.DerivedPrice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[models.Symbol]models.DerivedPrice, len(e.prices))
	for sym, p := range e.prices {
		out[sym] = *p
	}
	return out
}

// ActiveAlert returns a copy of the active alert, or nil.
func (e *Engine) ActiveAlert() *models.DipAlert {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	cp := *e.active
	return &cp
}

// QueuedAlerts returns a copy of the pending queue, oldest first.
func (e *Engine) QueuedAlerts() []models.DipAlert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.DipAlert, 0, len(e.queue))
	for _, a := range e.queue {
		out = append(out, *a)
	}
	return out
}

// Close cancels all pending timers. No state mutates after Close; a
// timer firing afterwards is swallowed by the closed flag.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.alertTimer != nil {
		e.alertTimer.Stop()
	}
	if e.cooldownTimer != nil {
		e.cooldownTimer.Stop()
	}
}
