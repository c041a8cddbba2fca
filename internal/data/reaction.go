package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
	"github.com/anthropics/signal-command-bot/internal/biz/repo"
)

// reactionRepo persists reaction counts per (target message, emoji)
type reactionRepo struct {
	db *sql.DB
}

// NewReactionRepo creates a reaction repository
func NewReactionRepo(db *sql.DB) (repo.ReactionRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reactions (
			target_author TEXT NOT NULL,
			target_timestamp INTEGER NOT NULL,
			emoji TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (target_author, target_timestamp, emoji)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create reactions table: %w", err)
	}
	return &reactionRepo{db: db}, nil
}

// Apply records one reaction add or removal
func (r *reactionRepo) Apply(ctx context.Context, reaction *domain.Reaction) error {
	delta := 1
	if reaction.Remove {
		delta = -1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reactions (target_author, target_timestamp, emoji, count)
		VALUES (?, ?, ?, MAX(0, ?))
		ON CONFLICT(target_author, target_timestamp, emoji)
		DO UPDATE SET count = MAX(0, count + ?)
	`,
		reaction.TargetAuthor,
		reaction.TargetTimestamp.Unix(),
		reaction.Emoji,
		delta,
		delta,
	)
	if err != nil {
		return fmt.Errorf("apply reaction: %w", err)
	}
	return nil
}

// Count returns the current count for a (target, emoji) pair
func (r *reactionRepo) Count(ctx context.Context, targetAuthor string, targetTimestamp int64, emoji string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT count FROM reactions
		WHERE target_author = ? AND target_timestamp = ? AND emoji = ?
	`, targetAuthor, targetTimestamp, emoji)

	var count int
	err := row.Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query reaction count: %w", err)
	}
	return count, nil
}
