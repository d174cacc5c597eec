package www

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/angas/spotprice-go/database"
	"github.com/angas/spotprice-go/logging"
)

type LogReader interface {
	GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]database.LogEntryRow, error)
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Attrs     string `json:"attrs,omitempty"`
}

func NewLogHandler(logger *slog.Logger, db LogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		page := intOrDefault(r.URL, "page", 1)
		pageSize := intOrDefault(r.URL, "pageSize", 25)
		minLevel := slog.LevelDebug
		if lvl := r.URL.Query().Get("level"); lvl != "" {
			minLevel = logging.LevelFromString(&lvl)
		}

		rows, err := db.GetLogEntries(r.Context(), minLevel, page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, "failed to read log", http.StatusInternalServerError)
			return
		}

		entries := make([]logEntry, len(rows))
		for i, row := range rows {
			entries[i] = logEntry{
				Timestamp: row.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
				Level:     row.Level.String(),
				Message:   row.Message,
				Attrs:     row.Attrs,
			}
		}
		writeJSON(logger, w, http.StatusOK, entries)
	}
}
