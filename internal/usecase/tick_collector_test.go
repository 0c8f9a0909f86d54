package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"DipWatch/internal/detector"
	"DipWatch/internal/domain/models"
	"DipWatch/pkg/cache"
	applogger "DipWatch/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordTick(string, string)       {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordDip(string, float64)       {}
func (nopMetrics) RecordAlert(string, string)      {}
func (nopMetrics) RecordSlots(int)                 {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}

type fakeStream struct {
	mu         sync.Mutex
	connected  bool
	connects   int
	reconnects int
	ticks      chan *models.PriceTick
	errs       chan error
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		ticks: make(chan *models.PriceTick, 16),
		errs:  make(chan error, 1),
	}
}

func (s *fakeStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.connects++
	return nil
}

func (s *fakeStream) Subscribe(context.Context) error { return nil }

func (s *fakeStream) Read(context.Context) (<-chan *models.PriceTick, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks, s.errs
}

func (s *fakeStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.connected = true
	s.ticks = make(chan *models.PriceTick, 16)
	s.errs = make(chan error, 1)
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *fakeStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeStream) emit(t *models.PriceTick) {
	s.mu.Lock()
	ch := s.ticks
	s.mu.Unlock()
	ch <- t
}

func (s *fakeStream) fail(err error) {
	s.mu.Lock()
	ch := s.errs
	s.mu.Unlock()
	ch <- err
}

func (s *fakeStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

type fakeSnapshot struct {
	mu      sync.Mutex
	fetches int
	quotes  map[models.Underlying]models.Quote
	err     error
}

func (s *fakeSnapshot) Fetch(context.Context, []models.Underlying) (map[models.Underlying]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

func (s *fakeSnapshot) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func newTestEngine() *detector.Engine {
	return detector.NewEngine(detector.Config{
		ThrottleInterval: time.Nanosecond,
	}, applogger.Nop(), nopMetrics{}, nil)
}

func newTestCollector(stream *fakeStream, snap *fakeSnapshot, engine *detector.Engine, cacheSvc cache.Service) *TickCollector {
	return NewTickCollector(CollectorConfig{
		ReconnectDelay: 5 * time.Millisecond,
		SnapshotPoll:   time.Hour,
	}, stream, snap, engine, cacheSvc, nopMetrics{}, applogger.Nop())
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestStartSeedsFromSnapshot(t *testing.T) {
	stream := newFakeStream()
	snap := &fakeSnapshot{quotes: map[models.Underlying]models.Quote{
		models.UnderlyingBitcoin: {Price: 100000, Change24h: -1.2},
	}}
	engine := newTestEngine()
	defer engine.Close()

	coll := newTestCollector(stream, snap, engine, nil)
	if err := coll.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer coll.Shutdown(context.Background())

	waitFor(t, func() bool { return engine.Status() == models.StatusListening }, "listening")
	if got := snap.fetchCount(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
	p, ok := engine.Prices()[models.SymbolIBIT]
	if !ok || p.Price != 100 {
		t.Fatalf("IBIT price = %+v, want 100", p)
	}
}

func TestTicksFlowIntoEngine(t *testing.T) {
	stream := newFakeStream()
	snap := &fakeSnapshot{err: errors.New("upstream down")}
	engine := newTestEngine()
	defer engine.Close()

	coll := newTestCollector(stream, snap, engine, nil)
	if err := coll.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer coll.Shutdown(context.Background())

	stream.emit(&models.PriceTick{
		Underlying: models.UnderlyingEthereum,
		Price:      3000,
		Timestamp:  time.Now().UnixMilli(),
	})

	waitFor(t, func() bool {
		p, ok := engine.Prices()[models.SymbolETHA]
		return ok && p.Price == 30
	}, "ETHA price from live tick")
}

func TestStreamErrorTriggersRecovery(t *testing.T) {
	stream := newFakeStream()
	snap := &fakeSnapshot{quotes: map[models.Underlying]models.Quote{}}
	engine := newTestEngine()
	defer engine.Close()

	coll := newTestCollector(stream, snap, engine, nil)
	if err := coll.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer coll.Shutdown(context.Background())

	waitFor(t, func() bool { return engine.Status() == models.StatusListening }, "listening")
	stream.fail(errors.New("ws closed"))

	waitFor(t, func() bool { return stream.reconnectCount() >= 1 }, "reconnect")
	waitFor(t, func() bool { return engine.Status() == models.StatusListening }, "listening after recovery")
	if got := snap.fetchCount(); got < 2 {
		t.Fatalf("fetches = %d, want at least 2 (seed reruns after reconnect)", got)
	}

	// ticks on the replaced channel still reach the engine
	stream.emit(&models.PriceTick{
		Underlying: models.UnderlyingBitcoin,
		Price:      95000,
		Timestamp:  time.Now().UnixMilli(),
	})
	waitFor(t, func() bool {
		p, ok := engine.Prices()[models.SymbolIBIT]
		return ok && p.Price == 95
	}, "IBIT price after recovery")
}

func TestSeedFallsBackToCachedSnapshot(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	warm := map[models.Underlying]models.Quote{
		models.UnderlyingBitcoin: {Price: 90000},
	}
	if err := mem.Set(context.Background(), snapshotCacheKey, warm, time.Minute); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	stream := newFakeStream()
	snap := &fakeSnapshot{err: errors.New("upstream down")}
	engine := newTestEngine()
	defer engine.Close()

	coll := newTestCollector(stream, snap, engine, mem)
	if err := coll.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer coll.Shutdown(context.Background())

	waitFor(t, func() bool {
		p, ok := engine.Prices()[models.SymbolIBIT]
		return ok && p.Price == 90
	}, "IBIT price from cached snapshot")
}
