package logger

import (
	"log/slog"
	"time"
)

// LogRequest logs an inbound API request.
func LogRequest(method, path string, status int, duration time.Duration) {
	slog.Info("Request handled",
		slog.String("type", "api"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("took", duration),
	)
}

// LogSearch logs a marketplace search attempt.
func LogSearch(query string, count int, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "ebay"),
		slog.String("query", query),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Warn("Search failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Search completed", append(attrs, slog.Int("listings", count))...)
	}
}

// LogQuery logs database operations.
func LogQuery(query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs,
			slog.String("query", query),
			slog.Any("error", err),
		)...)
	} else {
		slog.Info("Query executed", append(attrs,
			slog.String("query", query),
		)...)
	}
}

// LogSystem logs system events.
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events.
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
