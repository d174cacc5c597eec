package types

import (
	"fmt"
	"slices"
	"time"

	"github.com/angas/spotprice-go/types/maybe"
	"github.com/shopspring/decimal"
)

// PricePoint is the price of one delivery bucket [Begin, End).
type PricePoint struct {
	Begin          time.Time                    `json:"begin"`
	End            time.Time                    `json:"end"`
	AmountOriginal decimal.Decimal              `json:"amountOriginal"` // Original currency, configured unit
	AmountTarget   maybe.Maybe[decimal.Decimal] `json:"amountTarget"`   // Only set when a rate was applied
	ExchangeRate   maybe.Maybe[decimal.Decimal] `json:"exchangeRate"`
}

func (p PricePoint) String() string {
	target := "-"
	if p.AmountTarget.IsValid() {
		target = p.AmountTarget.Value().String()
	}
	return fmt.Sprintf("Price [begin=%s, end=%s, original=%s, target=%s]",
		p.Begin.Format(time.RFC3339), p.End.Format(time.RFC3339), p.AmountOriginal, target)
}

// Contains reports whether t falls inside the bucket.
func (p PricePoint) Contains(t time.Time) bool {
	return !t.Before(p.Begin) && t.Before(p.End)
}

type PriceSeries struct {
	AreaCode         string                       `json:"areaCode"`
	OriginalCurrency string                       `json:"originalCurrency"`
	TargetCurrency   string                       `json:"targetCurrency"`
	MeasurementUnit  string                       `json:"measurementUnit"`
	IntervalStart    time.Time                    `json:"intervalStart"`
	IntervalEnd      time.Time                    `json:"intervalEnd"`
	Resolution       time.Duration                `json:"resolution"`
	ExchangeRate     maybe.Maybe[decimal.Decimal] `json:"exchangeRate"`
	Points           []PricePoint                 `json:"points"`
}

// Clone returns a copy that shares no slice memory with s.
func (s PriceSeries) Clone() PriceSeries {
	s.Points = slices.Clone(s.Points)
	return s
}

// PriceAt returns the first point whose bucket contains t.
func (s PriceSeries) PriceAt(t time.Time) (PricePoint, bool) {
	for _, p := range s.Points {
		if p.Contains(t) {
			return p, true
		}
	}
	return PricePoint{}, false
}
