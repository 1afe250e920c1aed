package app

import (
	"log/slog"
	"os"

	"service-dispatch-go/internal/logx"
)

// NewLogger builds the process-wide structured logger writing JSON to stdout.
func NewLogger() logx.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return logx.NewSlogAdapter(slog.New(h))
}
