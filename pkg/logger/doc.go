// Package logger builds configured slog.Logger instances with consistent
// output formats and a small set of attribute helpers shared across the
// codebase.
//
// The factory favors production-safe defaults (JSON output, INFO level) and
// is configured either programmatically through functional options or from
// environment variables via Config:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg, logger.WithService("storekit"))
//	logger.SetAsDefault(log)
//
// Attribute helpers keep log keys uniform, e.g. logger.UserID, logger.ConnID,
// logger.Room, logger.TaskID, logger.Error.
package logger
