package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/angas/spotprice-go/database"
	"github.com/angas/spotprice-go/entsoe"
	"github.com/angas/spotprice-go/hours"
	"github.com/angas/spotprice-go/types"
	"github.com/google/uuid"
)

type PriceStore interface {
	SaveSpotPrices(ctx context.Context, updateId string, series types.PriceSeries) error
	GetSpotPriceAt(ctx context.Context, area string, t time.Time) (database.SpotPriceRow, error)
}

// SeriesListener is called with every series that was stored.
type SeriesListener func(series types.PriceSeries)

func NewPriceTask(
	logger *slog.Logger,
	store PriceStore,
	session *entsoe.DayAhead,
	timeout time.Duration,
	listeners ...SeriesListener,
) func() {
	startPriceTask(logger, store, session, timeout, time.Now(), listeners)
	return func() { runPriceTask(logger, store, session, timeout, time.Now(), listeners) }
}

// startPriceTask runs the full task when the store lacks upcoming prices,
// otherwise it only loads today into the session so it can serve requests.
func startPriceTask(
	logger *slog.Logger,
	store PriceStore,
	session *entsoe.DayAhead,
	timeout time.Duration,
	now time.Time,
	listeners []SeriesListener,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if needImmediatePriceUpdate(ctx, store, session.Area(), now) {
		logger.Info("need an immediate update of spot prices")
		runPriceTask(logger, store, session, timeout, now, listeners)
		return
	}

	logger.Debug("no need for immediate update of spot prices, loading today")
	if _, err := updateDay(session, timeout, hours.DayStart(now)); err != nil {
		logger.Error("spot price task error, loading today", slog.Any("error", err))
	}
}

// runPriceTask updates the next delivery day once published, then today.
// Today goes last so the session ends up holding the live prices.
// It returns the number of days stored.
func runPriceTask(
	logger *slog.Logger,
	store PriceStore,
	session *entsoe.DayAhead,
	timeout time.Duration,
	now time.Time,
	listeners []SeriesListener,
) int {
	logger.Debug("running spot price task...")

	today := hours.DayStart(now)
	var days []time.Time
	if latest := hours.LatestDeliveryDay(now); latest.After(today) {
		days = append(days, latest)
	}
	days = append(days, today)

	stored := 0
	for _, day := range days {
		dayLogger := logger.With(slog.String("day", hours.FormatDate(day)))

		series, err := updateDay(session, timeout, day)
		if err != nil {
			// The next day is often simply not published yet
			if !day.Equal(today) && errors.Is(err, entsoe.ErrMalformedDocument) {
				dayLogger.Warn("spot prices not available yet", slog.Any("error", err))
			} else {
				dayLogger.Error("spot price task error, updating prices", slog.Any("error", err))
			}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err = store.SaveSpotPrices(ctx, uuid.NewString(), series)
		cancel()
		if err != nil {
			dayLogger.Error("spot price task error, saving prices", slog.Any("error", err))
			continue
		}

		for _, listener := range listeners {
			listener(series)
		}
		stored++
	}

	if stored == 0 {
		logger.Error("spot price task error, no prices stored")
		return 0
	}

	logger.Info("spot price task done", slog.Int("noOfDaysUpdated", stored))
	return stored
}

func updateDay(session *entsoe.DayAhead, timeout time.Duration, day time.Time) (types.PriceSeries, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := session.Update(ctx, day); err != nil {
		return types.PriceSeries{}, err
	}
	series, _ := session.Series()
	return series, nil
}

func needImmediatePriceUpdate(ctx context.Context, store PriceStore, area string, now time.Time) bool {
	if _, err := store.GetSpotPriceAt(ctx, area, now.Add(12*time.Hour)); err != nil {
		return true
	}
	return false
}
