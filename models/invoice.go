package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryStatus is the lifecycle state of an invoice.
//
// PENDING and IN_PROGRESS are non-terminal; DELIVERED and FAILED are
// terminal and nothing transitions out of them.
type DeliveryStatus string

const (
	StatusPending    DeliveryStatus = "PENDING"
	StatusInProgress DeliveryStatus = "IN_PROGRESS"
	StatusDelivered  DeliveryStatus = "DELIVERED"
	StatusFailed     DeliveryStatus = "FAILED"
)

// Terminal reports whether no further status transition is defined.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// Invoice is one NF-e imported into the system and tracked until its
// delivery is proven or fails. The access key is the 44-digit fiscal
// identifier; uniqueness is enforced by the database, not only by the
// client-side duplicate check.
type Invoice struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccessKey string    `gorm:"size:44;uniqueIndex;not null" json:"accessKey"`
	Number    string    `gorm:"size:20;not null" json:"number"`
	Series    string    `gorm:"size:5" json:"series"`

	CustomerName    string  `gorm:"size:200;not null" json:"customerName"`
	CustomerDoc     string  `gorm:"size:20" json:"customerDoc"`
	CustomerAddress string  `gorm:"type:text" json:"customerAddress"`
	CustomerZip     string  `gorm:"size:10" json:"customerZip"`
	Value           float64 `json:"value"`

	Status    DeliveryStatus `gorm:"size:20;default:'PENDING';index" json:"status"`
	DriverID  *uuid.UUID     `gorm:"type:uuid;index" json:"driverId"`
	VehicleID *uuid.UUID     `gorm:"type:uuid;index" json:"vehicleId"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	return
}

// InvoiceItem is one det/prod line of the source XML, kept in source order
// via Idx so partial-return selections stay addressable.
type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null" json:"invoiceId"`
	Idx       int       `gorm:"not null" json:"idx"`
	Code      string    `gorm:"size:60" json:"code"`
	Name      string    `gorm:"size:200" json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `gorm:"size:10" json:"unit"`
	Value     float64   `json:"value"`
}

func (it *InvoiceItem) BeforeCreate(tx *gorm.DB) (err error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return
}
