// Package logger provides the structured logging interface used across
// igstories.
//
// It wraps zerolog with a small interface so components can be handed a
// TestLogger or a nop logger in tests. The global logger is configured once
// from config.LoggingConfig:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("account", "natgeo")
//	log.Info("Opening story viewer")
//
// Console output is colored and goes to stderr so that command output on
// stdout stays clean. Setting format to "json" switches to JSON lines. When a
// log file is configured it always receives JSON lines.
package logger
