package repo

import (
	"context"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
)

// MessageRepo is the message history repository interface
type MessageRepo interface {
	// Save persists one inbound message
	Save(ctx context.Context, msg *domain.InboundMessage) error

	// Recent returns the newest messages for a conversation, oldest
	// first. The conversation key is a group id, or the per-sender
	// direct-message key (domain.ConversationKey).
	Recent(ctx context.Context, conversation string, limit int) ([]*domain.InboundMessage, error)

	// PurgeOlderThan deletes persisted messages received before the
	// cutoff, returning how many were removed
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)

	// Close releases the underlying store
	Close() error
}

// ReactionRepo tracks emoji reaction counts per target message
type ReactionRepo interface {
	// Apply records one reaction add or removal
	Apply(ctx context.Context, r *domain.Reaction) error

	// Count returns the current count for a (target, emoji) pair
	Count(ctx context.Context, targetAuthor string, targetTimestamp int64, emoji string) (int, error)
}
