package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// DipAlert records one detected downward excursion. Immutable once
// created; at most one alert is active in the engine at any instant.
type DipAlert struct {
	Symbol        Symbol  `json:"symbol" validate:"required,oneof=IBIT ETHA STCE"`
	DipPercentage float64 `json:"dipPercentage" validate:"gte=5,lte=50"`
	Price         float64 `json:"price" validate:"gt=0"`
	HighPrice     float64 `json:"highPrice" validate:"gt=0"`
	Timestamp     int64   `json:"timestamp" validate:"required,gt=0"` // unix ms
	AlertID       string  `json:"alertId" validate:"required,uuid"`
}

// NewDipAlert builds a validated alert with a fresh id and the current
// timestamp. A validation error here means the detector produced
// out-of-range data and is a logic defect, not a malformed-input case.
func NewDipAlert(symbol Symbol, dipPercentage, price, highPrice float64) (*DipAlert, error) {
	a := &DipAlert{
		Symbol:        symbol,
		DipPercentage: dipPercentage,
		Price:         price,
		HighPrice:     highPrice,
		Timestamp:     time.Now().UnixMilli(),
		AlertID:       uuid.NewString(),
	}
	if err := validate.Struct(a); err != nil {
		return nil, fmt.Errorf("invalid dip alert: %w", err)
	}
	return a, nil
}
