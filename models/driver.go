package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a driver's last known position, stored as a single jsonb
// column and overwritten by each GPS ping while a route is active.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scan implements the sql.Scanner interface
func (l *Location) Scan(value interface{}) error {
	if value == nil {
		*l = Location{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*l = Location{}
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Value implements the driver.Valuer interface
func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// GormDataType defines the data type for GORM
func (Location) GormDataType() string {
	return "jsonb"
}

// Zero reports whether no position was ever recorded.
func (l Location) Zero() bool {
	return l.UpdatedAt.IsZero()
}

// Driver executes routes and captures delivery evidence.
//
// Password is optional legacy plaintext: drivers created before the
// credential screen existed have none, and a blank stored password accepts
// any input.
type Driver struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Password     string    `gorm:"size:100" json:"-"`
	LastLocation *Location `gorm:"type:jsonb" json:"lastLocation,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (d *Driver) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}

// CheckPassword applies the legacy rule: no stored password means any
// input is accepted.
func (d *Driver) CheckPassword(input string) bool {
	if d.Password == "" {
		return true
	}
	return d.Password == input
}
