package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ReturnType says how much of a failed delivery came back.
type ReturnType string

const (
	ReturnTotal   ReturnType = "TOTAL"
	ReturnPartial ReturnType = "PARTIAL"
)

// FullReturnItems is the fixed return_items sentence written for a TOTAL
// return.
const FullReturnItems = "DEVOLUÇÃO TOTAL DA CARGA"

// DeliveryProof is the evidentiary record captured at the point of delivery
// or failed delivery. Keyed by invoice id: at most one proof per invoice,
// created exactly once, never updated, deleted only with its invoice.
//
// GeoLat/GeoLng are the coordinates observed when the capture screen first
// rendered (the client freezes them), not re-sampled at submit time.
type DeliveryProof struct {
	InvoiceID uuid.UUID `gorm:"type:uuid;primaryKey" json:"invoiceId"`

	ReceiverName  string `gorm:"size:200" json:"receiverName"`
	ReceiverDoc   string `gorm:"size:20" json:"receiverDoc"`
	SignatureData string `gorm:"type:text" json:"signatureData"`
	PhotoURL      string `gorm:"type:text" json:"photoUrl"`
	// Photographed physical receipt stub ("canhoto"), optional.
	PhotoStubURL string         `gorm:"type:text" json:"photoStubUrl,omitempty"`
	ExtraPhotos  pq.StringArray `gorm:"type:text[]" json:"extraPhotos,omitempty"`

	FailureReason string     `gorm:"type:text" json:"failureReason,omitempty"`
	ReturnType    ReturnType `gorm:"size:10" json:"returnType,omitempty"`
	ReturnItems   string     `gorm:"type:text" json:"returnItems,omitempty"`
	// Advisory loss amount for financial reporting. Zero on success, the
	// full invoice value on TOTAL returns, the sum of the selected item
	// values on PARTIAL returns.
	LossAmount float64 `json:"lossAmount"`

	GeoLat      *float64  `json:"geoLat"`
	GeoLng      *float64  `json:"geoLng"`
	DeliveredAt time.Time `gorm:"not null" json:"deliveredAt"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Failed reports whether this proof records a failed delivery.
func (p *DeliveryProof) Failed() bool {
	return p.FailureReason != ""
}
