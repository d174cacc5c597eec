package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/angas/spotprice-go/config"
	"github.com/angas/spotprice-go/database"
	"github.com/angas/spotprice-go/entsoe"
	"github.com/angas/spotprice-go/logging"
	"github.com/angas/spotprice-go/mqttpub"
	"github.com/angas/spotprice-go/task"
	"github.com/angas/spotprice-go/types"
	"github.com/angas/spotprice-go/www"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("spotprice is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Database operations are logged through the database from here on
	db.SetLogger(logger.With("module", "database"))

	provider, err := cnfg.Forex.NewProvider()
	if err != nil {
		panic(fmt.Sprintf("failed to create forex provider: %v", err))
	}

	session, err := entsoe.NewDayAhead(
		entsoe.NewClient(cnfg.Entsoe.Token, cnfg.Entsoe.GetUrl()),
		cnfg.Entsoe.Area,
		entsoe.WithCurrency(cnfg.Entsoe.GetCurrency()),
		entsoe.WithMeasurementUnit(cnfg.Entsoe.GetMeasurementUnit()),
		entsoe.WithForex(provider))
	if err != nil {
		panic(fmt.Sprintf("failed to create day-ahead session: %v", err))
	}

	server := www.NewServer(db, session, cnfg.Api)
	listeners := []task.SeriesListener{server.BroadcastSeries}

	if cnfg.Mqtt.Enabled {
		publisher := mqttpub.New(
			cnfg.Mqtt.Host,
			cnfg.Mqtt.Port,
			cnfg.Mqtt.Username,
			cnfg.Mqtt.Password,
			cnfg.Mqtt.GetTopic())
		if err := publisher.Connect(); err != nil {
			panic(fmt.Sprintf("mqtt connection error: %v", err))
		}
		defer publisher.Disconnect()

		listeners = append(listeners, func(series types.PriceSeries) {
			if err := publisher.Publish(series); err != nil {
				logger.Error("failed to publish spot prices", slog.Any("error", err))
			}
		})
	}

	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		tasks := task.NewTasks(db, session, cnfg, listeners...)
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
