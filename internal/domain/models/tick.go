package models

// Underlying identifies an upstream asset whose ticks drive derived
// instrument prices.
type Underlying string

const (
	UnderlyingBitcoin  Underlying = "bitcoin"
	UnderlyingEthereum Underlying = "ethereum"
)

// Underlyings lists every supported upstream asset.
var Underlyings = []Underlying{UnderlyingBitcoin, UnderlyingEthereum}

// Known reports whether the underlying is one of the supported assets.
func (u Underlying) Known() bool {
	for _, known := range Underlyings {
		if u == known {
			return true
		}
	}
	return false
}

// PriceTick is a single upstream price update. Ticks are ingested once
// and never stored.
type PriceTick struct {
	Underlying Underlying `json:"underlyingId" validate:"required,oneof=bitcoin ethereum"`
	Price      float64    `json:"price" validate:"required,gt=0"`
	Change24h  float64    `json:"change24h"`
	Timestamp  int64      `json:"timestamp" validate:"required,gt=0"` // unix ms
	Volume     float64    `json:"volume,omitempty"`
}

// Validate checks the tick against its field constraints.
func (t *PriceTick) Validate() error {
	return validate.Struct(t)
}

// Quote is one entry of a bulk snapshot response.
type Quote struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
}
