package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is assigned per-invoice, not per-driver: the same driver may run
// different vehicles on different deliveries.
type Vehicle struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Plate string    `gorm:"size:10;uniqueIndex;not null" json:"plate"`
	Model string    `gorm:"size:100" json:"model"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}
