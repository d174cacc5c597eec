package www

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/spotprice-go/database"
	"github.com/angas/spotprice-go/hours"
	"github.com/angas/spotprice-go/types"
	"github.com/angas/spotprice-go/types/maybe"
	"github.com/shopspring/decimal"
)

const maxPriceRange = 31 * 24 * time.Hour

type PriceReader interface {
	GetSpotPrices(ctx context.Context, area string, from, to time.Time) ([]database.SpotPriceRow, error)
}

// SeriesSource is the live day-ahead session.
type SeriesSource interface {
	Area() string
	Series() (types.PriceSeries, bool)
}

type priceRow struct {
	Begin          time.Time                    `json:"begin"`
	End            time.Time                    `json:"end"`
	Currency       string                       `json:"currency"`
	Unit           string                       `json:"unit"`
	Amount         decimal.Decimal              `json:"amount"`
	TargetCurrency string                       `json:"targetCurrency"`
	TargetAmount   maybe.Maybe[decimal.Decimal] `json:"targetAmount"`
	ExchangeRate   maybe.Maybe[decimal.Decimal] `json:"exchangeRate"`
}

// NewPricesHandler serves stored prices with begin in [from, to). Both
// parameters default to the current UTC day.
func NewPricesHandler(logger *slog.Logger, db PriceReader, area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		dayStart, dayEnd := hours.DayInterval(time.Now())
		from, err := timeOrDefault(r.URL, "from", dayStart)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		to, err := timeOrDefault(r.URL, "to", dayEnd)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		if !from.Before(to) || to.Sub(from) > maxPriceRange {
			http.Error(w, "invalid range", http.StatusBadRequest)
			return
		}

		rows, err := db.GetSpotPrices(r.Context(), area, from, to)
		if err != nil {
			logger.Error("handling prices request", slog.Any("error", err))
			http.Error(w, "failed to read prices", http.StatusInternalServerError)
			return
		}

		prices := make([]priceRow, len(rows))
		for i, row := range rows {
			prices[i] = priceRow{
				Begin:          row.Begin,
				End:            row.End,
				Currency:       row.Currency,
				Unit:           row.Unit,
				Amount:         row.Amount,
				TargetCurrency: row.TargetCurrency,
				TargetAmount:   row.TargetAmount,
				ExchangeRate:   row.ExchangeRate,
			}
		}
		writeJSON(logger, w, http.StatusOK, prices)
	}
}

// NewCurrentSeriesHandler serves the series held by the session.
func NewCurrentSeriesHandler(logger *slog.Logger, session SeriesSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		series, ok := session.Series()
		if !ok {
			http.Error(w, "no prices available yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(logger, w, http.StatusOK, series)
	}
}

// NewPriceNowHandler serves the point of the session series covering the current time.
func NewPriceNowHandler(logger *slog.Logger, session SeriesSource, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		series, ok := session.Series()
		if !ok {
			http.Error(w, "no prices available yet", http.StatusServiceUnavailable)
			return
		}
		point, ok := series.PriceAt(now())
		if !ok {
			http.Error(w, "no price for current time", http.StatusNotFound)
			return
		}
		writeJSON(logger, w, http.StatusOK, point)
	}
}
