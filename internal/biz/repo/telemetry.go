package repo

import (
	"context"
	"time"
)

// UsageRecord is one command execution, successful or not
type UsageRecord struct {
	Command      string
	Args         []string
	GroupID      string
	UserID       string
	Success      bool
	ResponseTime time.Duration
	ErrorMessage string
}

// ErrorRecord is one logged handler or infrastructure failure
type ErrorRecord struct {
	ErrorType    string
	ErrorMessage string
	StackTrace   string
	Context      string
}

// AnalyticsRepo records command usage telemetry. Writes are fire-and-
// forget: a failure to record must never block or fail the reply path.
type AnalyticsRepo interface {
	RecordUsage(ctx context.Context, rec *UsageRecord) error
}

// ErrorLogRepo records application errors with full context
type ErrorLogRepo interface {
	RecordError(ctx context.Context, rec *ErrorRecord) error
}
