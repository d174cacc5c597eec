package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/angas/spotprice-go/config"
	"github.com/angas/spotprice-go/database"
	"github.com/angas/spotprice-go/entsoe"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	PriceTask       func()
	MaintenanceTask func()
}

func NewTasks(
	db *database.Database,
	session *entsoe.DayAhead,
	cnfg *config.AppConfig,
	listeners ...SeriesListener,
) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		PriceTask:       NewPriceTask(logger.With(slog.String("task", "spot_price")), db, session, cnfg.Entsoe.GetTimeout(), listeners...),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.Entsoe.RunAt, t.PriceTask); err != nil {
		return fmt.Errorf("scheduling spot price task %q: %w", t.cnfg.Entsoe.RunAt, err)
	}
	// Retry during the afternoon in case the publication was late
	if _, err := t.cron.AddFunc("45 14-17 * * *", t.PriceTask); err != nil {
		return fmt.Errorf("scheduling spot price retry: %w", err)
	}
	// Load the new UTC day into the session shortly after it starts
	if _, err := t.cron.AddFunc("CRON_TZ=UTC 5 0 * * *", t.PriceTask); err != nil {
		return fmt.Errorf("scheduling spot price day change: %w", err)
	}
	if _, err := t.cron.AddFunc("30 2 * * *", t.MaintenanceTask); err != nil {
		return fmt.Errorf("scheduling maintenance task: %w", err)
	}
	t.cron.Start()
	return nil
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
