package detector

import "DipWatch/internal/domain/models"

// HysteresisGate decides whether a dip percentage crossing the
// threshold should fire a new alert. Edge-triggered: after a firing,
// the symbol must recover to threshold-window or below before another
// crossing fires. Equality at the threshold counts as a crossing;
// equality at the recovery boundary counts as recovered.
type HysteresisGate struct {
	threshold float64
	window    float64
	blocked   map[models.Symbol]bool // set after a firing, cleared on recovery
}

func NewHysteresisGate(threshold, window float64) *HysteresisGate {
	return &HysteresisGate{
		threshold: threshold,
		window:    window,
		blocked:   make(map[models.Symbol]bool),
	}
}

// Threshold returns the configured firing threshold in percent.
func (g *HysteresisGate) Threshold() float64 { return g.threshold }

// Evaluate feeds a dip percentage for a symbol and reports whether a
// new alert fires.
func (g *HysteresisGate) Evaluate(symbol models.Symbol, dipPercentage float64) bool {
	switch {
	case dipPercentage <= g.threshold-g.window:
		g.blocked[symbol] = false
		return false
	case dipPercentage >= g.threshold && !g.blocked[symbol]:
		g.blocked[symbol] = true
		return true
	default:
		return false
	}
}

// Reset clears the per-symbol recovery state.
func (g *HysteresisGate) Reset(symbol models.Symbol) {
	delete(g.blocked, symbol)
}
