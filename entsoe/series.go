package entsoe

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// RawPrice is one priced bucket before any normalization.
type RawPrice struct {
	Begin  time.Time
	End    time.Time
	Amount decimal.Decimal
}

// BuildSeries places every raw point in its time bucket, computed from the
// position and never from the order in the document. Duplicate and missing
// positions are passed through as is. The result is stably sorted by Begin.
func BuildSeries(doc MarketDocument) []RawPrice {
	prices := make([]RawPrice, len(doc.RawPoints))
	for i, p := range doc.RawPoints {
		begin := doc.IntervalStart.Add(time.Duration(p.Position-1) * doc.Resolution)
		prices[i] = RawPrice{
			Begin:  begin,
			End:    begin.Add(doc.Resolution),
			Amount: p.Amount,
		}
	}

	slices.SortStableFunc(prices, func(a, b RawPrice) int {
		return a.Begin.Compare(b.Begin)
	})
	return prices
}
