package observability

import (
	"log/slog"
	"os"

	"github.com/zaizaiboom/futureu913/internal/config"
)

// SetupLogger builds the process logger. Dev runs get a human-readable text
// handler at debug level; everywhere else logs are JSON at info so they can
// be shipped as-is. Every line carries the service and environment.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}
