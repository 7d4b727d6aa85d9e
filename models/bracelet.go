package models

import (
	"time"
)

// BraceletStatus represents the lifecycle status of a bracelet
type BraceletStatus string

const (
	BraceletStatusInactive  BraceletStatus = "inactive"
	BraceletStatusActive    BraceletStatus = "active"
	BraceletStatusLost      BraceletStatus = "lost"
	BraceletStatusEmergency BraceletStatus = "emergency"
)

// Bracelet represents a tracked wearable safety bracelet
type Bracelet struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UniqueCode string         `gorm:"type:varchar(64);unique;not null" json:"unique_code"`
	Name       string         `gorm:"type:varchar(100);not null" json:"name"`
	Alias      string         `gorm:"type:varchar(255)" json:"alias,omitempty"`
	Status     BraceletStatus `gorm:"type:varchar(20);default:'inactive'" json:"status"`

	BatteryLevel    int  `gorm:"default:0" json:"battery_level"`
	EmergencyMode   bool `gorm:"default:false" json:"emergency_mode"`
	FirmwareVersion string `gorm:"type:varchar(32)" json:"firmware_version,omitempty"`

	// Last known location snapshot
	LastLatitude       *float64   `json:"last_latitude,omitempty"`
	LastLongitude      *float64   `json:"last_longitude,omitempty"`
	LastAccuracy       *int       `json:"last_accuracy,omitempty"`
	LastLocationUpdate *time.Time `json:"last_location_update,omitempty"`
	LastPingAt         *time.Time `json:"last_ping_at,omitempty"`

	// Pairing
	IsPaired bool       `gorm:"default:false" json:"is_paired"`
	PairedAt *time.Time `json:"paired_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Guardians   []BraceletGuardian `gorm:"foreignKey:BraceletID" json:"guardians,omitempty"`
	Events      []BraceletEvent    `gorm:"foreignKey:BraceletID" json:"events,omitempty"`
	Commands    []BraceletCommand  `gorm:"foreignKey:BraceletID" json:"commands,omitempty"`
	SafetyZones []SafetyZone       `gorm:"foreignKey:BraceletID" json:"safety_zones,omitempty"`
}

// DisplayName prefers the guardian-chosen alias over the factory name
func (b *Bracelet) DisplayName() string {
	if b.Alias != "" {
		return b.Alias
	}
	return b.Name
}

// HasLocation reports whether a last known location is recorded
func (b *Bracelet) HasLocation() bool {
	return b.LastLatitude != nil && b.LastLongitude != nil
}
