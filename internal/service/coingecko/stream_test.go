package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"DipWatch/internal/domain/models"
	applogger "DipWatch/pkg/logger"

	"github.com/gorilla/websocket"
)

func newTestStream() *Stream {
	return &Stream{
		cfg: StreamConfig{Underlyings: models.Underlyings},
		log: applogger.Nop(),
	}
}

func TestParseFrameSingleTick(t *testing.T) {
	s := newTestStream()
	frame := []byte(`{"underlyingId":"bitcoin","price":92000.5,"change24h":-2.3,"timestamp":1700000000000,"volume":1234.5}`)

	ticks := s.parseFrame(frame)
	if len(ticks) != 1 {
		t.Fatalf("ticks = %d, want 1", len(ticks))
	}
	tick := ticks[0]
	if tick.Underlying != models.UnderlyingBitcoin || tick.Price != 92000.5 {
		t.Fatalf("tick = %+v", tick)
	}
	if tick.Timestamp != 1700000000000 || tick.Volume != 1234.5 {
		t.Fatalf("tick = %+v", tick)
	}
}

func TestParseFrameBulkSnapshot(t *testing.T) {
	s := newTestStream()
	frame := []byte(`{"prices":{"bitcoin":{"price":92000,"change24h":-1.1},"ethereum":{"price":3500,"change24h":0.4}}}`)

	ticks := s.parseFrame(frame)
	if len(ticks) != 2 {
		t.Fatalf("ticks = %d, want 2", len(ticks))
	}
	seen := map[models.Underlying]float64{}
	for _, tick := range ticks {
		seen[tick.Underlying] = tick.Price
		if tick.Timestamp <= 0 {
			t.Errorf("snapshot tick missing timestamp: %+v", tick)
		}
	}
	if seen[models.UnderlyingBitcoin] != 92000 || seen[models.UnderlyingEthereum] != 3500 {
		t.Fatalf("prices = %v", seen)
	}
}

func TestParseFrameDropsMalformed(t *testing.T) {
	s := newTestStream()
	cases := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"underlyingId":"dogecoin","price":1,"timestamp":1700000000000}`),
		[]byte(`{"underlyingId":"bitcoin","price":-5,"timestamp":1700000000000}`),
		[]byte(`{"underlyingId":"bitcoin","price":92000}`),
	}
	for i, frame := range cases {
		if got := s.parseFrame(frame); len(got) != 0 {
			t.Errorf("case %d: frame accepted: %+v", i, got)
		}
	}
}

func TestParseFrameSkipsBadSnapshotEntries(t *testing.T) {
	s := newTestStream()
	frame := []byte(`{"prices":{"bitcoin":{"price":92000},"dogecoin":{"price":1},"ethereum":{"price":0}}}`)

	ticks := s.parseFrame(frame)
	if len(ticks) != 1 || ticks[0].Underlying != models.UnderlyingBitcoin {
		t.Fatalf("ticks = %+v", ticks)
	}
}

// newFeedServer serves a WebSocket endpoint that accepts connections
// and drains client messages until the peer goes away.
func newFeedServer(t *testing.T) (url string) {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// readLoopCount counts live goroutines spawned by Stream.Read across
// the whole process.
func readLoopCount() int {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	return strings.Count(string(buf[:n]), "(*Stream).Read.func")
}

func waitForCount(t *testing.T, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if readLoopCount() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("read/ping goroutines = %d, want %d", readLoopCount(), want)
}

func TestReconnectRetiresPreviousLoops(t *testing.T) {
	url := newFeedServer(t)
	s := &Stream{
		cfg: StreamConfig{
			URL:            url,
			Underlyings:    models.Underlyings,
			ReconnectDelay: time.Millisecond,
			PingInterval:   time.Hour,
		},
		log: applogger.Nop(),
	}
	ctx := context.Background()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Read(ctx)

	for i := 0; i < 3; i++ {
		if err := s.Reconnect(ctx); err != nil {
			t.Fatalf("Reconnect %d: %v", i, err)
		}
		s.Read(ctx)
	}

	// one read loop plus one ping loop for the live connection only
	waitForCount(t, 2)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitForCount(t, 0)
}

func TestReadWithoutConnectFailsFast(t *testing.T) {
	s := newTestStream()
	ticks, errs := s.Read(context.Background())
	if err := <-errs; err == nil {
		t.Fatal("expected error from disconnected stream")
	}
	if _, ok := <-ticks; ok {
		t.Fatal("tick channel should be closed")
	}
	waitForCount(t, 0)
}
