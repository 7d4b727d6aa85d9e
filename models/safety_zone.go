package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Coordinate is a polygon vertex
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CoordinateList is the polygon column serialized as JSON text
type CoordinateList []Coordinate

// Value implements driver.Valuer
func (l CoordinateList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *CoordinateList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for CoordinateList")
	}

	return json.Unmarshal(data, l)
}

// SafetyZone is a guardian-authored geofence polygon
type SafetyZone struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	BraceletID          uint   `gorm:"not null;index" json:"bracelet_id"`
	CreatedByGuardianID uint   `gorm:"not null" json:"created_by_guardian_id"`
	Name                string `gorm:"type:varchar(255);not null" json:"name"`
	Icon                string `gorm:"type:varchar(50)" json:"icon,omitempty"`
	Type                string `gorm:"type:varchar(10);default:'polygon'" json:"type"`

	Coordinates CoordinateList `gorm:"type:text;not null" json:"coordinates"`

	NotifyOnEntry bool `gorm:"default:true" json:"notify_on_entry"`
	NotifyOnExit  bool `gorm:"default:true" json:"notify_on_exit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Bracelet  *Bracelet `gorm:"foreignKey:BraceletID" json:"bracelet,omitempty"`
	CreatedBy *Guardian `gorm:"foreignKey:CreatedByGuardianID" json:"created_by,omitempty"`
}
