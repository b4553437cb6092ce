package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogTransition records a batch controller state change for an account.
func LogTransition(l Logger, account, from, to string) {
	l.DebugWithFields("Batch state changed", map[string]interface{}{
		"account": account,
		"from":    from,
		"to":      to,
	})
}

// LogArtifact logs the outcome of one save attempt.
func LogArtifact(l Logger, account, filename string, size int64, err error) {
	fields := map[string]interface{}{
		"account":  account,
		"filename": filename,
		"bytes":    size,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Artifact not saved", fields)
		return
	}
	l.InfoWithFields("Artifact saved", fields)
}

// LogBatchSummary logs the terminal outcome of an account batch.
func LogBatchSummary(l Logger, account, outcome string, saved int, elapsed time.Duration) {
	l.InfoWithFields("Batch finished", map[string]interface{}{
		"account":  account,
		"outcome":  outcome,
		"saved":    saved,
		"duration": elapsed,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
