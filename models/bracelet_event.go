package models

import (
	"time"
)

// EventType classifies a bracelet event
type EventType string

const (
	EventHeartbeat EventType = "heartbeat"
	EventArrived   EventType = "arrived"
	EventLost      EventType = "lost"
	EventDanger    EventType = "danger"
	EventZoneEntry EventType = "zone_entry"
	EventZoneExit  EventType = "zone_exit"
)

// BraceletEvent is an immutable fact record. Only the resolved flag is
// ever mutated after creation.
type BraceletEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BraceletID uint      `gorm:"not null;index" json:"bracelet_id"`
	EventType  EventType `gorm:"type:varchar(20);not null;index" json:"event_type"`

	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Accuracy     *int     `json:"accuracy,omitempty"`
	BatteryLevel int      `json:"battery_level"`

	Resolved   bool       `gorm:"default:false;index" json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Zone metadata for zone_entry/zone_exit events
	Metadata JSONMap `gorm:"type:text" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Bracelet *Bracelet `gorm:"foreignKey:BraceletID" json:"bracelet,omitempty"`
}
