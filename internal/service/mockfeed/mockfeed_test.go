package mockfeed

import (
	"context"
	"testing"
	"time"

	"DipWatch/internal/domain/models"
	applogger "DipWatch/pkg/logger"
)

func TestFeedEmitsTicksForAllUnderlyings(t *testing.T) {
	feed := New(Config{Interval: time.Millisecond}, applogger.Nop())
	ctx := context.Background()
	if err := feed.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer feed.Close()

	ticks, _ := feed.Read(ctx)

	seen := map[models.Underlying]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < len(models.Underlyings) {
		select {
		case tick := <-ticks:
			if tick.Price <= 0 {
				t.Fatalf("non-positive price: %+v", tick)
			}
			if err := tick.Validate(); err != nil {
				t.Fatalf("invalid tick: %v", err)
			}
			seen[tick.Underlying] = true
		case <-deadline:
			t.Fatalf("timed out, seen %v", seen)
		}
	}
}

func TestFeedCloseStopsEmission(t *testing.T) {
	feed := New(Config{Interval: time.Millisecond}, applogger.Nop())
	ctx := context.Background()
	_ = feed.Connect(ctx)
	ticks, _ := feed.Read(ctx)

	if err := feed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if feed.IsConnected() {
		t.Fatal("still connected after Close")
	}

	// channel closes once the run loop observes cancellation
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ticks:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("tick channel never closed")
		}
	}
}

func TestSnapshotServesBaseQuotes(t *testing.T) {
	quotes, err := Snapshot{}.Fetch(context.Background(), models.Underlyings)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if quotes[models.UnderlyingBitcoin].Price != 92000 || quotes[models.UnderlyingEthereum].Price != 3500 {
		t.Fatalf("quotes = %v", quotes)
	}
}
