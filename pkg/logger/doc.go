// Package logger builds slog loggers with a consistent format and level
// for the engine and its host.
//
// Example:
//
//	log := logger.New(
//		logger.WithFormat(logger.FormatJSON),
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithAttr(slog.String("component", "gatekit")),
//	)
package logger
