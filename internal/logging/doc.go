// Package logging provides structured logging for the daelim tools.
//
// This package wraps a zap logger with convenience functions for common
// logging patterns. It is silent by default so that CLI output stays clean;
// set DAELIM_LOG_LEVEL (or pass --log-level) to enable it.
//
// # Log Levels
//
//   - Debug: frame hex dumps, pins, bridge message bodies
//   - Info: connections, login tiers, relogins, state refreshes
//   - Warn: server error codes, dropped connections, retries
//   - Error: failures that abort a command
//
// # Structured Logging
//
//	logging.Info("Login succeeded",
//	    zap.String("host", "10.0.0.2"),
//	    zap.String("tier", "saved_cert_pin"),
//	)
//
// # Protocol Logging
//
//	logging.LogFrame("sent", 3, 1, 0, raw)
//	logging.LogConnection(addr, "connected")
//	logging.LogBridgeMessage(remote, "received", data)
//
// Logs are written to stderr in console format.
package logging
