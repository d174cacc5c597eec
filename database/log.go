package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type LogEntryRow struct {
	Timestamp time.Time
	Level     slog.Level
	Message   string
	Attrs     string // Formatted by the log handler, TEXT or JSON
}

func (d *Database) SaveLogEntry(ctx context.Context, r LogEntryRow) error {
	if _, err := d.write.ExecContext(ctx,
		`INSERT INTO log (timestamp, level, message, attrs) VALUES (?, ?, ?, ?)`,
		formatTime(r.Timestamp), int(r.Level), r.Message, r.Attrs); err != nil {
		return fmt.Errorf("saving log entry: %w", err)
	}
	return nil
}

// GetLogEntries pages through entries at or above minLvl, newest first. Pages start at 1.
func (d *Database) GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]LogEntryRow, error) {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 10
	}

	rows, err := d.read.QueryContext(ctx,
		`SELECT timestamp, level, message, attrs FROM log
		WHERE level >= ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`,
		int(minLvl), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching log entries: %w", err)
	}
	defer rows.Close()

	entries := make([]LogEntryRow, 0, pageSize)
	for rows.Next() {
		var (
			ts  string
			lvl int
			e   LogEntryRow
		)
		if err := rows.Scan(&ts, &lvl, &e.Message, &e.Attrs); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		e.Level = slog.Level(lvl)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading log rows: %w", err)
	}

	return entries, nil
}

// PurgeLog keeps the newest maxLogEntries entries.
func (d *Database) PurgeLog(ctx context.Context, maxLogEntries int) error {
	d.logger.Debug("purging log", slog.Int("keep", maxLogEntries))
	if _, err := d.write.ExecContext(ctx,
		`DELETE FROM log WHERE id NOT IN (SELECT id FROM log ORDER BY id DESC LIMIT ?)`,
		maxLogEntries); err != nil {
		return fmt.Errorf("purging log: %w", err)
	}
	return nil
}
