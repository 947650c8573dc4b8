package handlers

import (
	"log"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"entregacerta.com.br/backend/models"
)

// NotificationService is the per-recipient mailbox: publish appends an
// unread entry, consume atomically drains the unread set.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a notification service bound to db.
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Publish appends an unread entry to a recipient's mailbox. Delivery
// failures are logged, not propagated: a lost notification must never fail
// the domain action that raised it.
func (ns *NotificationService) Publish(recipientID, title, message string, kind models.NotificationKind) {
	n := models.AppNotification{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Kind:        kind,
		Read:        false,
		Timestamp:   time.Now(),
	}
	if err := ns.db.Create(&n).Error; err != nil {
		log.Printf("[NOTIFY] failed to create notification for %s: %v", recipientID, err)
		return
	}
}

// Consume marks all unread entries for a recipient as read and returns
// them, oldest first. The mark-and-select is a single conditional UPDATE
// with RETURNING, so two clients polling the same mailbox concurrently
// never double-deliver: each entry goes to whichever poll flips its flag.
func (ns *NotificationService) Consume(recipientID string) ([]models.AppNotification, error) {
	var delivered []models.AppNotification
	err := ns.db.Model(&delivered).
		Clauses(clause.Returning{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error
	if err != nil {
		return nil, err
	}
	sort.Slice(delivered, func(i, j int) bool {
		return delivered[i].Timestamp.Before(delivered[j].Timestamp)
	})
	return delivered, nil
}

// UnreadCount returns how many entries are waiting for a recipient.
func (ns *NotificationService) UnreadCount(recipientID string) (int64, error) {
	var count int64
	err := ns.db.Model(&models.AppNotification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}
