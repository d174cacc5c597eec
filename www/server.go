package www

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/spotprice-go/config"
	"github.com/angas/spotprice-go/types"
)

type Store interface {
	PriceReader
	LogReader
}

type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	db      Store
	session SeriesSource
	hub     *Hub
	handler http.Handler
}

func NewServer(db Store, session SeriesSource, config config.AppConfigApi) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger:  logger,
		config:  config,
		db:      db,
		session: session,
		hub:     NewHub(logger),
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()

	mux.Handle("/api/prices", logReqMW(NewPricesHandler(
		logger.With(slog.String("handler", "prices")),
		s.db,
		session.Area())))

	mux.Handle("/api/prices/current", logReqMW(NewCurrentSeriesHandler(
		logger.With(slog.String("handler", "prices_current")),
		session)))

	mux.Handle("/api/prices/now", logReqMW(NewPriceNowHandler(
		logger.With(slog.String("handler", "prices_now")),
		session,
		time.Now)))

	mux.Handle("/api/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		s.db)))

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	})

	s.handler = mux
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// BroadcastSeries pushes a freshly stored series to every websocket client.
func (s *Server) BroadcastSeries(series types.PriceSeries) {
	if err := s.hub.Publish("series", series); err != nil {
		s.logger.Error("broadcasting series failed", slog.Any("error", err))
	}
}

// Run serves http until ctx is cancelled. Every minute the price of the
// current bucket is pushed to websocket clients when it has changed.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastBegin time.Time
	for {
		select {
		case err := <-srvErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("server error", slog.Any("error", err))
			}
			return

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case now := <-ticker.C:
			lastBegin = s.publishCurrentPrice(now, lastBegin)
		}
	}
}

func (s *Server) publishCurrentPrice(now, lastBegin time.Time) time.Time {
	series, ok := s.session.Series()
	if !ok {
		return lastBegin
	}
	point, ok := series.PriceAt(now)
	if !ok || point.Begin.Equal(lastBegin) {
		return lastBegin
	}
	if err := s.hub.Publish("price", point); err != nil {
		s.logger.Error("broadcasting price failed", slog.Any("error", err))
		return lastBegin
	}
	return point.Begin
}
