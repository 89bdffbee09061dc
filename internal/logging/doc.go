// Package logging provides structured logging with per-module log level
// configuration.
//
// The logging system uses Go's slog package with automatic output routing:
// stdout (text or json), systemd journal when available, and an in-memory
// ring buffer that backs the /api/logs endpoint.
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"stream": "debug",
//			"camera": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("stream")
//	logger.Info("Session started", "remote", addr)
//
// Module-specific levels override the global level for that module only.
// When running under systemd, logs can be filtered with:
//
//	journalctl -t espcam MODULE=stream
package logging
