package detector

import "DipWatch/internal/domain/models"

// HighTracker keeps the per-symbol maximum observed price for the
// lifetime of the session. No decay or windowing; see Reset.
type HighTracker struct {
	highs map[models.Symbol]float64
}

func NewHighTracker() *HighTracker {
	return &HighTracker{highs: make(map[models.Symbol]float64)}
}

// Observe records a price and returns the current session high for the
// symbol. The first observation becomes the high.
func (t *HighTracker) Observe(symbol models.Symbol, price float64) float64 {
	if price > t.highs[symbol] {
		t.highs[symbol] = price
	}
	return t.highs[symbol]
}

// High returns the current session high, 0 if never observed.
func (t *HighTracker) High(symbol models.Symbol) float64 {
	return t.highs[symbol]
}

// Reset clears the session high for a symbol. Used at long-running
// session boundaries and in tests; not part of the ordinary tick flow.
func (t *HighTracker) Reset(symbol models.Symbol) {
	delete(t.highs, symbol)
}
