package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/repo"
)

// CleanupScheduler purges old persisted messages on a fixed interval so
// the history table stays bounded.
type CleanupScheduler struct {
	messageRepo repo.MessageRepo
	retention   time.Duration
	interval    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCleanupScheduler creates a scheduler keeping retention worth of history
func NewCleanupScheduler(messageRepo repo.MessageRepo, retention, interval time.Duration) *CleanupScheduler {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupScheduler{
		messageRepo: messageRepo,
		retention:   retention,
		interval:    interval,
	}
}

// Start starts the scheduler
func (s *CleanupScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.cleanupLoop()

	fmt.Printf("[Scheduler] Started, retention %v, interval %v\n", s.retention, s.interval)
}

// Stop stops the scheduler
func (s *CleanupScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	fmt.Println("[Scheduler] Stopped")
}

func (s *CleanupScheduler) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *CleanupScheduler) purge() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	removed, err := s.messageRepo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		fmt.Printf("[Scheduler] Purge failed: %v\n", err)
		return
	}
	if removed > 0 {
		fmt.Printf("[Scheduler] Purged %d messages older than %v\n", removed, cutoff.Format(time.RFC3339))
	}
}
