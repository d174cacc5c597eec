package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angas/spotprice-go/hours"
)

func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// timeOrDefault accepts a date (YYYY-MM-DD) or an ISO 8601 timestamp.
func timeOrDefault(u *url.URL, key string, defaultValue time.Time) (time.Time, error) {
	v := u.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	if t, err := hours.ParseDate(v); err == nil {
		return t, nil
	}
	return hours.ParseIso(v)
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing json response", slog.Any("error", err))
	}
}
