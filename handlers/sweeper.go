package handlers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"entregacerta.com.br/backend/models"
)

// RetentionSweeper deletes consumed notifications after a retention
// window. Consumed entries are already delivered; keeping them forever
// only grows the table the clients poll.
//
// Run owns its ticker and stops when ctx is cancelled, so main can tear
// the loop down deterministically at shutdown.
type RetentionSweeper struct {
	db       *gorm.DB
	interval time.Duration
	maxAge   time.Duration
}

// NewRetentionSweeper creates a sweeper bound to db.
func NewRetentionSweeper(db *gorm.DB, interval, maxAge time.Duration) *RetentionSweeper {
	return &RetentionSweeper{db: db, interval: interval, maxAge: maxAge}
}

// Run blocks until ctx is cancelled, sweeping on each tick.
func (s *RetentionSweeper) Run(ctx context.Context) {
	log.Printf("[SWEEP] notification sweeper running every %s, retention %s", s.interval, s.maxAge)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SWEEP] notification sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes read notifications older than the retention window.
// Unread entries are never touched: they stay until a poll consumes them.
func (s *RetentionSweeper) Sweep() {
	cutoff := time.Now().Add(-s.maxAge)
	res := s.db.Where("read = ? AND timestamp < ?", true, cutoff).
		Delete(&models.AppNotification{})
	if res.Error != nil {
		log.Printf("[SWEEP] failed to purge notifications: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("[SWEEP] purged %d consumed notifications", res.RowsAffected)
	}
}
