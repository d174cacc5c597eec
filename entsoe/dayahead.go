package entsoe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/angas/spotprice-go/forex"
	"github.com/angas/spotprice-go/hours"
	"github.com/angas/spotprice-go/types"
	"github.com/angas/spotprice-go/types/maybe"
	"github.com/angas/spotprice-go/units"
	"github.com/shopspring/decimal"
)

// CurrencyAuto keeps prices in the currency of the document, no conversion is attempted.
const CurrencyAuto = "auto"

// DayAhead holds the most recent normalized price series for one bidding area.
// The series is replaced as a whole on every successful Update.
type DayAhead struct {
	logger   *slog.Logger
	fetcher  DocumentFetcher
	area     string
	currency string
	unit     string
	forex    forex.Provider
	now      func() time.Time

	updateMu sync.Mutex // one update in flight
	mu       sync.RWMutex
	series   *types.PriceSeries
}

type Option func(*DayAhead)

// WithCurrency sets the target currency, CurrencyAuto disables conversion.
func WithCurrency(currency string) Option {
	return func(d *DayAhead) { d.currency = currency }
}

func WithMeasurementUnit(unit string) Option {
	return func(d *DayAhead) { d.unit = unit }
}

func WithForex(provider forex.Provider) Option {
	return func(d *DayAhead) { d.forex = provider }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *DayAhead) { d.logger = logger }
}

func NewDayAhead(fetcher DocumentFetcher, area string, opts ...Option) (*DayAhead, error) {
	d := &DayAhead{
		logger:   slog.Default().With("module", "entsoe"),
		fetcher:  fetcher,
		area:     area,
		currency: CurrencyAuto,
		unit:     "kWh",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	unit, err := units.Canonical(d.unit)
	if err != nil {
		return nil, fmt.Errorf("measurement unit: %w", err)
	}
	d.unit = unit
	if strings.TrimSpace(d.currency) == "" {
		d.currency = CurrencyAuto
	}

	return d, nil
}

func (d *DayAhead) Area() string {
	return d.area
}

// Ready reports whether at least one update has succeeded.
func (d *DayAhead) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.series != nil
}

// Series returns a copy of the current series, false until the first successful update.
func (d *DayAhead) Series() (types.PriceSeries, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.series == nil {
		return types.PriceSeries{}, false
	}
	return d.series.Clone(), true
}

// UpdateLatest updates with the most recent delivery day that has published prices.
func (d *DayAhead) UpdateLatest(ctx context.Context) error {
	return d.Update(ctx, hours.LatestDeliveryDay(d.now()))
}

// Update fetches and normalizes prices for the UTC day containing referenceDay.
// On error the previous series is kept untouched.
func (d *DayAhead) Update(ctx context.Context, referenceDay time.Time) error {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	start, end := hours.DayInterval(referenceDay)
	logger := d.logger.With(slog.String("area", d.area), slog.String("day", hours.FormatDate(start)))

	raw, err := d.fetcher.FetchDocument(ctx, d.area, start, end)
	if err != nil {
		return fmt.Errorf("fetching day-ahead prices: %w", err)
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		return fmt.Errorf("parsing day-ahead prices: %w", err)
	}
	if _, err := units.Multiplier(doc.UnitName); err != nil {
		return fmt.Errorf("normalizing day-ahead prices: %w", err)
	}

	rate := maybe.None[decimal.Decimal]()
	if d.needsConversion(doc.CurrencyCode) {
		r, err := forex.FetchRate(ctx, d.forex, doc.CurrencyCode, d.currency)
		if err != nil {
			return fmt.Errorf("converting day-ahead prices: %w", err)
		}
		rate = maybe.Some(r)
	}

	series, err := Normalize(doc, d.unit, d.targetCurrency(doc.CurrencyCode), rate)
	if err != nil {
		return fmt.Errorf("normalizing day-ahead prices: %w", err)
	}

	d.mu.Lock()
	d.series = series
	d.mu.Unlock()

	logger.Info("day-ahead prices updated",
		slog.Int("points", len(series.Points)),
		slog.String("currency", series.OriginalCurrency),
		slog.Bool("converted", rate.IsValid()))
	return nil
}

func (d *DayAhead) needsConversion(original string) bool {
	if d.forex == nil || strings.EqualFold(d.currency, CurrencyAuto) {
		return false
	}
	return !strings.EqualFold(original, d.currency)
}

func (d *DayAhead) targetCurrency(original string) string {
	if strings.EqualFold(d.currency, CurrencyAuto) {
		return original
	}
	return d.currency
}

// Normalize turns a parsed document into a price series expressed per unit,
// with rate applied when present. It does no I/O.
func Normalize(doc MarketDocument, unit, targetCurrency string, rate maybe.Maybe[decimal.Decimal]) (*types.PriceSeries, error) {
	raws := BuildSeries(doc)

	points := make([]types.PricePoint, len(raws))
	for i, r := range raws {
		amount, err := units.Convert(r.Amount, doc.UnitName, unit)
		if err != nil {
			return nil, err
		}
		points[i] = types.PricePoint{
			Begin:          r.Begin,
			End:            r.End,
			AmountOriginal: amount,
		}
	}

	return &types.PriceSeries{
		AreaCode:         doc.AreaCode,
		OriginalCurrency: doc.CurrencyCode,
		TargetCurrency:   targetCurrency,
		MeasurementUnit:  unit,
		IntervalStart:    doc.IntervalStart,
		IntervalEnd:      doc.IntervalEnd,
		Resolution:       doc.Resolution,
		ExchangeRate:     rate,
		Points:           forex.ApplyRate(points, rate),
	}, nil
}
