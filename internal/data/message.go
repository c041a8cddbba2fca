package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
	"github.com/anthropics/signal-command-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

const recentCacheSize = 50

// messageRepo implements the message history repository over SQLite with
// a bounded in-memory recent cache per conversation
type messageRepo struct {
	db *sql.DB

	cacheMu sync.Mutex
	cache   map[string][]*domain.InboundMessage // conversation key -> newest last
}

// NewMessageRepo creates a message history repository
func NewMessageRepo(db *sql.DB) (repo.MessageRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			sender_name TEXT NOT NULL,
			group_id TEXT NOT NULL DEFAULT '',
			group_name TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			mentions TEXT NOT NULL DEFAULT '',
			received_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create messages table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_time ON messages(conversation, received_at)
	`)
	if err != nil {
		return nil, fmt.Errorf("create messages index: %w", err)
	}

	return &messageRepo{
		db:    db,
		cache: make(map[string][]*domain.InboundMessage),
	}, nil
}

// Save persists one inbound message and appends it to the recent cache
func (r *messageRepo) Save(ctx context.Context, msg *domain.InboundMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (conversation, sender_id, sender_name, group_id, group_name, text, mentions, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.Conversation(),
		msg.SenderID,
		msg.SenderName,
		msg.GroupID,
		msg.GroupName,
		msg.Text,
		strings.Join(msg.Mentions, ","),
		msg.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	r.cacheMu.Lock()
	key := msg.Conversation()
	recent := append(r.cache[key], msg)
	if len(recent) > recentCacheSize {
		recent = recent[len(recent)-recentCacheSize:]
	}
	r.cache[key] = recent
	r.cacheMu.Unlock()

	return nil
}

// Recent returns the newest messages for a conversation, oldest first
func (r *messageRepo) Recent(ctx context.Context, conversation string, limit int) ([]*domain.InboundMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	// Serve from the cache when it already holds enough
	r.cacheMu.Lock()
	cached := r.cache[conversation]
	if len(cached) >= limit {
		out := make([]*domain.InboundMessage, limit)
		copy(out, cached[len(cached)-limit:])
		r.cacheMu.Unlock()
		return out, nil
	}
	r.cacheMu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT sender_id, sender_name, group_id, group_name, text, mentions, received_at
		FROM messages
		WHERE conversation = ?
		ORDER BY received_at DESC
		LIMIT ?
	`, conversation, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.InboundMessage
	for rows.Next() {
		var msg domain.InboundMessage
		var mentions string
		var receivedAt int64
		if err := rows.Scan(&msg.SenderID, &msg.SenderName, &msg.GroupID, &msg.GroupName, &msg.Text, &mentions, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Timestamp = time.Unix(receivedAt, 0)
		if mentions != "" {
			msg.Mentions = strings.Split(mentions, ",")
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Newest-first from the query; callers get oldest first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// PurgeOlderThan deletes persisted messages received before the cutoff
func (r *messageRepo) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM messages WHERE received_at < ?
	`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (r *messageRepo) Close() error {
	return r.db.Close()
}

// OpenDB opens (creating if needed) the bot database
func OpenDB(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
