package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/angas/spotprice-go/types"
	"github.com/angas/spotprice-go/types/maybe"
	"github.com/shopspring/decimal"
)

type SpotPriceRow struct {
	Area           string
	Begin          time.Time
	End            time.Time
	Currency       string
	Unit           string
	Amount         decimal.Decimal
	TargetCurrency string
	TargetAmount   maybe.Maybe[decimal.Decimal]
	ExchangeRate   maybe.Maybe[decimal.Decimal]
	UpdateId       string
}

// SaveSpotPrices stores a complete series in one transaction. Rows are keyed
// on area and begin, so when a series carries duplicate buckets the last one wins.
func (d *Database) SaveSpotPrices(ctx context.Context, updateId string, series types.PriceSeries) error {
	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin saving spot prices: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())

	_, err = tx.ExecContext(ctx, `
		INSERT INTO price_update (id, area, interval_start, interval_end, resolution_sec, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		updateId,
		series.AreaCode,
		formatTime(series.IntervalStart),
		formatTime(series.IntervalEnd),
		int64(series.Resolution/time.Second),
		len(series.Points),
		now)
	if err != nil {
		return fmt.Errorf("saving price update: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spot_price (area, begin_at, end_at, currency, unit, amount, target_currency, target_amount, exchange_rate, update_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(area, begin_at) DO UPDATE SET
			end_at = excluded.end_at,
			currency = excluded.currency,
			unit = excluded.unit,
			amount = excluded.amount,
			target_currency = excluded.target_currency,
			target_amount = excluded.target_amount,
			exchange_rate = excluded.exchange_rate,
			update_id = excluded.update_id,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing spot price insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		_, err := stmt.ExecContext(ctx,
			series.AreaCode,
			formatTime(p.Begin),
			formatTime(p.End),
			series.OriginalCurrency,
			series.MeasurementUnit,
			p.AmountOriginal.String(),
			series.TargetCurrency,
			nullDecimal(p.AmountTarget),
			nullDecimal(p.ExchangeRate),
			updateId,
			now)
		if err != nil {
			return fmt.Errorf("saving spot price %s: %w", formatTime(p.Begin), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spot prices: %w", err)
	}
	return nil
}

// GetSpotPrices returns prices with begin in [from, to), ordered by begin.
func (d *Database) GetSpotPrices(ctx context.Context, area string, from, to time.Time) ([]SpotPriceRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT area, begin_at, end_at, currency, unit, amount, target_currency, target_amount, exchange_rate, update_id
		FROM spot_price
		WHERE area = ? AND begin_at >= ? AND begin_at < ?
		ORDER BY begin_at ASC`,
		area, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("fetching spot prices: %w", err)
	}
	defer rows.Close()

	var prices []SpotPriceRow
	for rows.Next() {
		r, err := scanSpotPrice(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading spot price rows: %w", err)
	}

	return prices, nil
}

// GetSpotPriceAt returns the price whose bucket contains t, sql.ErrNoRows if there is none.
func (d *Database) GetSpotPriceAt(ctx context.Context, area string, t time.Time) (SpotPriceRow, error) {
	row := d.read.QueryRowContext(ctx, `
		SELECT area, begin_at, end_at, currency, unit, amount, target_currency, target_amount, exchange_rate, update_id
		FROM spot_price
		WHERE area = ? AND begin_at <= ? AND end_at > ?
		ORDER BY begin_at DESC
		LIMIT 1`,
		area, formatTime(t), formatTime(t))

	r, err := scanSpotPrice(row)
	if err != nil {
		return SpotPriceRow{}, err
	}
	return r, nil
}

func (d *Database) PurgeSpotPrices(ctx context.Context, retentionDays int) error {
	if err := d.purgeBefore(ctx, "spot_price", "end_at", retentionDays); err != nil {
		return err
	}
	return d.purgeBefore(ctx, "price_update", "created_at", retentionDays)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpotPrice(s scanner) (SpotPriceRow, error) {
	var r SpotPriceRow
	var begin, end, amount string
	var target, rate sql.NullString

	err := s.Scan(&r.Area, &begin, &end, &r.Currency, &r.Unit, &amount, &r.TargetCurrency, &target, &rate, &r.UpdateId)
	if err != nil {
		return SpotPriceRow{}, fmt.Errorf("scanning spot price row: %w", err)
	}

	if r.Begin, err = parseTime(begin); err != nil {
		return SpotPriceRow{}, err
	}
	if r.End, err = parseTime(end); err != nil {
		return SpotPriceRow{}, err
	}
	if r.Amount, err = decimal.NewFromString(amount); err != nil {
		return SpotPriceRow{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if r.TargetAmount, err = scanDecimal(target); err != nil {
		return SpotPriceRow{}, err
	}
	if r.ExchangeRate, err = scanDecimal(rate); err != nil {
		return SpotPriceRow{}, err
	}

	return r, nil
}

func nullDecimal(m maybe.Maybe[decimal.Decimal]) sql.NullString {
	if !m.IsValid() {
		return sql.NullString{}
	}
	return sql.NullString{String: m.Value().String(), Valid: true}
}

func scanDecimal(s sql.NullString) (maybe.Maybe[decimal.Decimal], error) {
	if !s.Valid {
		return maybe.None[decimal.Decimal](), nil
	}
	v, err := decimal.NewFromString(s.String)
	if err != nil {
		return maybe.None[decimal.Decimal](), fmt.Errorf("parsing decimal %q: %w", s.String, err)
	}
	return maybe.SqlNull(v, true), nil
}
