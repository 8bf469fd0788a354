package observability

import (
	"log/slog"
	"os"
	"strings"

	"github.com/neptunehub/campus-errand-engine/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields.
func SetupLogger(cfg config.Config) *slog.Logger {
	SetAppEnv(cfg.AppEnv)
	opts := &slog.HandlerOptions{}
	// In dev, show debug level; in prod, default to info
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
	return logger
}

// appEnv mirrors the process's configured environment outside of the
// config.Config value itself, so job handlers deep in the queue bridge
// (which don't carry a config.Config reference) can still tell dev from
// prod when deciding how loudly to log a failure.
var appEnv string

// SetAppEnv records the process-wide environment name. Call once at
// startup from the env config.
func SetAppEnv(env string) {
	appEnv = strings.ToLower(env)
}

// isDevEnv reports whether the process-wide environment set by SetAppEnv
// is a development environment.
func isDevEnv() bool {
	return appEnv == "dev" || appEnv == "development"
}
