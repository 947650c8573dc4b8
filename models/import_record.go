package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImportRecord is the audit trail of one XML batch import: the counters
// plus the per-file details, kept as JSON since the detail shape follows
// the summary payload the console already renders.
type ImportRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FileCount  int            `json:"fileCount"`
	Success    int            `json:"success"`
	Duplicates int            `json:"duplicates"`
	Errors     int            `json:"errors"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (ir *ImportRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if ir.ID == uuid.Nil {
		ir.ID = uuid.New()
	}
	return
}
