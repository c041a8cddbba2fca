package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/repo"

	"github.com/google/uuid"
)

// analyticsRepo persists command usage records
type analyticsRepo struct {
	db *sql.DB
}

// NewAnalyticsRepo creates a usage telemetry repository
func NewAnalyticsRepo(db *sql.DB) (repo.AnalyticsRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS command_usage (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			args TEXT NOT NULL DEFAULT '',
			group_id TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL,
			success INTEGER NOT NULL,
			response_ms INTEGER NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			recorded_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create command_usage table: %w", err)
	}
	return &analyticsRepo{db: db}, nil
}

// RecordUsage records one command execution
func (r *analyticsRepo) RecordUsage(ctx context.Context, rec *repo.UsageRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO command_usage (id, command, args, group_id, user_id, success, response_ms, error_message, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		rec.Command,
		strings.Join(rec.Args, " "),
		rec.GroupID,
		rec.UserID,
		success,
		rec.ResponseTime.Milliseconds(),
		rec.ErrorMessage,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// errorLogRepo persists application error records
type errorLogRepo struct {
	db *sql.DB
}

// NewErrorLogRepo creates an error log repository
func NewErrorLogRepo(db *sql.DB) (repo.ErrorLogRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS error_log (
			id TEXT PRIMARY KEY,
			error_type TEXT NOT NULL,
			error_message TEXT NOT NULL,
			stack_trace TEXT NOT NULL DEFAULT '',
			context TEXT NOT NULL DEFAULT '',
			recorded_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create error_log table: %w", err)
	}
	return &errorLogRepo{db: db}, nil
}

// RecordError records one error with its context
func (r *errorLogRepo) RecordError(ctx context.Context, rec *repo.ErrorRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO error_log (id, error_type, error_message, stack_trace, context, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		rec.ErrorType,
		rec.ErrorMessage,
		rec.StackTrace,
		rec.Context,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	return nil
}
