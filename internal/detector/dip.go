// Package detector implements dip detection: per-symbol session highs,
// a hysteresis-guarded threshold gate, and the alert state machine
// that ties them together.
package detector

import "math"

// CalcDip returns the percentage drop of price below high, rounded to
// one decimal place. Clamped to 0 when high is non-positive or the
// price sits at or above the high.
func CalcDip(price, high float64) float64 {
	if high <= 0 {
		return 0
	}
	pct := (high - price) / high * 100
	if pct < 0 {
		return 0
	}
	return math.Round(pct*10) / 10
}
