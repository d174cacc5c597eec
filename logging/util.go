package logging

import (
	"log/slog"
	"strings"
)

// LevelFromString maps DEBUG, INFO, WARN and ERROR (any case) to a level, INFO otherwise.
func LevelFromString(str *string) slog.Level {
	if str == nil {
		return slog.LevelInfo
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(*str))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
