// Package pricing maps upstream underlying-asset ticks onto derived
// instrument prices using a fixed ratio table.
package pricing

import "DipWatch/internal/domain/models"

// ratio of derived-instrument price to its underlying's price.
type mapping struct {
	symbol models.Symbol
	ratio  float64
}

var mappings = map[models.Underlying][]mapping{
	models.UnderlyingBitcoin: {
		{symbol: models.SymbolIBIT, ratio: 0.001},
	},
	models.UnderlyingEthereum: {
		{symbol: models.SymbolETHA, ratio: 0.01},
		{symbol: models.SymbolSTCE, ratio: 0.01},
	},
}

// Update is one derived-instrument price produced from a tick. The
// session high is filled in later by the detector.
type Update struct {
	Symbol    models.Symbol
	Price     float64
	Change24h float64
	Timestamp int64
}

// Normalize converts an upstream tick into derived-instrument updates.
// Pure: the same tick always yields the same updates. An unrecognized
// underlying yields an empty result.
func Normalize(tick *models.PriceTick) []Update {
	ms, ok := mappings[tick.Underlying]
	if !ok {
		return nil
	}

	updates := make([]Update, 0, len(ms))
	for _, m := range ms {
		updates = append(updates, Update{
			Symbol:    m.symbol,
			Price:     tick.Price * m.ratio,
			Change24h: tick.Change24h,
			Timestamp: tick.Timestamp,
		})
	}
	return updates
}

// SymbolsFor returns the derived symbols mapped to an underlying.
func SymbolsFor(u models.Underlying) []models.Symbol {
	ms := mappings[u]
	symbols := make([]models.Symbol, 0, len(ms))
	for _, m := range ms {
		symbols = append(symbols, m.symbol)
	}
	return symbols
}
