package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/angas/spotprice-go/config"
	"github.com/angas/spotprice-go/entsoe"
	"github.com/angas/spotprice-go/hours"
	"github.com/lmittmann/tint"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dayArg := flag.String("day", "", "delivery day as YYYY-MM-DD, default: latest published day")
	flag.Parse()

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339Nano,
		}),
	))

	if err := run(*configPath, *dayArg); err != nil {
		slog.Error("fetching spot prices failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, dayArg string) error {
	cnfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var day time.Time
	if dayArg != "" {
		if day, err = hours.ParseDate(dayArg); err != nil {
			return err
		}
	}

	provider, err := cnfg.Forex.NewProvider()
	if err != nil {
		return err
	}

	session, err := entsoe.NewDayAhead(
		entsoe.NewClient(cnfg.Entsoe.Token, cnfg.Entsoe.GetUrl()),
		cnfg.Entsoe.Area,
		entsoe.WithCurrency(cnfg.Entsoe.GetCurrency()),
		entsoe.WithMeasurementUnit(cnfg.Entsoe.GetMeasurementUnit()),
		entsoe.WithForex(provider))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cnfg.Entsoe.GetTimeout())
	defer cancel()
	if day.IsZero() {
		err = session.UpdateLatest(ctx)
	} else {
		err = session.Update(ctx, day)
	}
	if err != nil {
		return err
	}

	series, _ := session.Series()
	fmt.Printf("%s %s/%s -> %s/%s, %s - %s\n",
		series.AreaCode,
		series.OriginalCurrency, series.MeasurementUnit,
		series.TargetCurrency, series.MeasurementUnit,
		series.IntervalStart.Format(time.RFC3339), series.IntervalEnd.Format(time.RFC3339))
	for _, p := range series.Points {
		fmt.Println(p)
	}
	return nil
}
