package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationKind defines the type of notification
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "INFO"
	NotificationSuccess NotificationKind = "SUCCESS"
	NotificationWarning NotificationKind = "WARNING"
)

// AdminRecipient is the mailbox shared by the manager console. Driver
// mailboxes are keyed by the driver's id.
const AdminRecipient = "ADMIN"

// AppNotification is one mailbox entry. It stays unread until a consume
// call flips the flag, so a missed poll picks it up on the next cycle.
type AppNotification struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID string           `gorm:"size:64;index;not null" json:"recipientId"`
	Title       string           `gorm:"size:200;not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	Kind        NotificationKind `gorm:"size:10;default:'INFO'" json:"type"`
	Read        bool             `gorm:"default:false;index" json:"read"`
	Timestamp   time.Time        `gorm:"not null" json:"timestamp"`
}

func (n *AppNotification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// TableName specifies the table name
func (AppNotification) TableName() string {
	return "notifications"
}
