// Package forex applies exchange rates to price points and wraps the external
// rate sources that supply them.
package forex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angas/spotprice-go/types"
	"github.com/angas/spotprice-go/types/maybe"
	"github.com/shopspring/decimal"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ErrTransport covers network failures, timeouts and unexpected HTTP status
// codes from a rate source. It is transient and not retried here.
var ErrTransport = errors.New("transport failure")

// Provider returns rates for converting one unit of base into quote currencies.
// Implementations may return rates for more currencies than requested.
type Provider interface {
	GetRate(ctx context.Context, base, quote string) (map[string]decimal.Decimal, error)
}

// LookupRate picks the quote currency out of a rate mapping.
func LookupRate(rates map[string]decimal.Decimal, quote string) (decimal.Decimal, error) {
	if rate, ok := rates[quote]; ok {
		return rate, nil
	}
	for cur, rate := range rates {
		if strings.EqualFold(cur, quote) {
			return rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no rate for %s", ErrRateUnavailable, quote)
}

// FetchRate asks the provider for base->quote and extracts the quote rate.
// Transport errors pass through, anything else is ErrRateUnavailable.
func FetchRate(ctx context.Context, p Provider, base, quote string) (decimal.Decimal, error) {
	rates, err := p.GetRate(ctx, base, quote)
	if errors.Is(err, ErrTransport) {
		return decimal.Zero, fmt.Errorf("%s->%s: %w", base, quote, err)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: %w", ErrRateUnavailable, base, quote, err)
	}
	return LookupRate(rates, quote)
}

// ApplyRate returns a copy of points with the target amount and rate set on
// every point, or cleared on every point when rate is None.
func ApplyRate(points []types.PricePoint, rate maybe.Maybe[decimal.Decimal]) []types.PricePoint {
	result := make([]types.PricePoint, len(points))
	for i, p := range points {
		p.ExchangeRate = rate
		p.AmountTarget = maybe.Map(rate, p.AmountOriginal.Mul)
		result[i] = p
	}
	return result
}
