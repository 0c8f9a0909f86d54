package models

// Symbol identifies a derived tradable instrument.
type Symbol string

const (
	SymbolIBIT Symbol = "IBIT"
	SymbolETHA Symbol = "ETHA"
	SymbolSTCE Symbol = "STCE"
)

// Symbols lists every derived instrument in a fixed order.
var Symbols = []Symbol{SymbolIBIT, SymbolETHA, SymbolSTCE}

// DerivedPrice is the current value of one derived instrument. One
// value is retained per symbol and overwritten on each accepted tick.
// Invariant: SessionHigh >= Price, and SessionHigh is non-decreasing
// for a symbol unless explicitly reset.
type DerivedPrice struct {
	Symbol      Symbol  `json:"symbol"`
	Price       float64 `json:"price"`
	Change24h   float64 `json:"change24h"`
	SessionHigh float64 `json:"sessionHigh"`
	Timestamp   int64   `json:"timestamp"` // unix ms
}
