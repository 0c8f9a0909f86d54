package detector

import (
	"testing"

	"DipWatch/internal/domain/models"
)

func TestHysteresisSequence(t *testing.T) {
	g := NewHysteresisGate(10, 2)

	seq := []struct {
		dip  float64
		want bool
	}{
		{9.5, false},  // under threshold, never fired
		{10.2, true},  // first crossing fires
		{9.8, false},  // inside [8,10): no re-fire
		{7.5, false},  // recovery region resets state
		{10.5, true},  // new excursion fires again
	}
	for i, step := range seq {
		if got := g.Evaluate(models.SymbolIBIT, step.dip); got != step.want {
			t.Fatalf("step %d (dip=%v): got %v, want %v", i, step.dip, got, step.want)
		}
	}
}

func TestHysteresisBoundaryEquality(t *testing.T) {
	g := NewHysteresisGate(10, 2)
	if !g.Evaluate(models.SymbolETHA, 10) {
		t.Fatal("equality at threshold should count as a crossing")
	}
	if g.Evaluate(models.SymbolETHA, 10) {
		t.Fatal("repeat at threshold must not re-fire")
	}
	// equality at the recovery boundary counts as recovered
	if g.Evaluate(models.SymbolETHA, 8) {
		t.Fatal("recovery boundary itself must not fire")
	}
	if !g.Evaluate(models.SymbolETHA, 10) {
		t.Fatal("crossing after recovery should fire")
	}
}

func TestHysteresisPerSymbolIsolation(t *testing.T) {
	g := NewHysteresisGate(10, 2)
	if !g.Evaluate(models.SymbolIBIT, 12) {
		t.Fatal("IBIT should fire")
	}
	if !g.Evaluate(models.SymbolETHA, 12) {
		t.Fatal("ETHA state must be independent of IBIT")
	}
}
