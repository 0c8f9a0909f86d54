package detector

import (
	"testing"

	"DipWatch/internal/domain/models"
)

func TestHighTrackerMonotonic(t *testing.T) {
	tr := NewHighTracker()
	if got := tr.Observe(models.SymbolIBIT, 95); got != 95 {
		t.Fatalf("first observation should become high, got %v", got)
	}
	if got := tr.Observe(models.SymbolIBIT, 100); got != 100 {
		t.Fatalf("rising price should raise high, got %v", got)
	}
	if got := tr.Observe(models.SymbolIBIT, 80); got != 100 {
		t.Fatalf("falling price must not lower high, got %v", got)
	}
	if got := tr.High(models.SymbolIBIT); got != 100 {
		t.Fatalf("High() = %v, want 100", got)
	}
}

func TestHighTrackerPerSymbol(t *testing.T) {
	tr := NewHighTracker()
	tr.Observe(models.SymbolIBIT, 100)
	if got := tr.High(models.SymbolETHA); got != 0 {
		t.Fatalf("unobserved symbol should be 0, got %v", got)
	}
}

func TestHighTrackerReset(t *testing.T) {
	tr := NewHighTracker()
	tr.Observe(models.SymbolETHA, 40)
	tr.Reset(models.SymbolETHA)
	if got := tr.Observe(models.SymbolETHA, 30); got != 30 {
		t.Fatalf("after reset first observation should win, got %v", got)
	}
}
