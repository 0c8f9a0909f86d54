package detector

import "testing"

func TestCalcDip(t *testing.T) {
	if got := CalcDip(90, 100); got != 10 {
		t.Fatalf("CalcDip(90,100) = %v, want 10", got)
	}
	if got := CalcDip(85, 100); got != 15 {
		t.Fatalf("CalcDip(85,100) = %v, want 15", got)
	}
}

func TestCalcDipRoundsToOneDecimal(t *testing.T) {
	if got := CalcDip(87.66, 100); got != 12.3 {
		t.Fatalf("got %v, want 12.3", got)
	}
}

func TestCalcDipClamped(t *testing.T) {
	if got := CalcDip(50, 0); got != 0 {
		t.Fatalf("non-positive high: got %v, want 0", got)
	}
	if got := CalcDip(110, 100); got != 0 {
		t.Fatalf("price above high: got %v, want 0", got)
	}
}
