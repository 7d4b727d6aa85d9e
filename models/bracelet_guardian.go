package models

import (
	"time"
)

// GuardianRole distinguishes the single owner from shared guardians
type GuardianRole string

const (
	RoleOwner  GuardianRole = "owner"
	RoleShared GuardianRole = "shared"
)

// Capability names the four independent permission flags
type Capability string

const (
	CapEdit         Capability = "can_edit"
	CapViewLocation Capability = "can_view_location"
	CapViewEvents   Capability = "can_view_events"
	CapSendCommands Capability = "can_send_commands"
)

// BraceletGuardian ties a bracelet to a guardian with a role and capability flags.
// A nil AcceptedAt marks a pending invitation. Exactly one owner row exists per
// bracelet; the owner always holds all four capabilities.
type BraceletGuardian struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	BraceletID uint         `gorm:"not null;uniqueIndex:idx_bracelet_guardian" json:"bracelet_id"`
	GuardianID uint         `gorm:"not null;uniqueIndex:idx_bracelet_guardian" json:"guardian_id"`
	Role       GuardianRole `gorm:"type:varchar(10);default:'shared';index" json:"role"`

	CanEdit         bool `gorm:"default:false" json:"can_edit"`
	CanViewLocation bool `gorm:"default:true" json:"can_view_location"`
	CanViewEvents   bool `gorm:"default:true" json:"can_view_events"`
	CanSendCommands bool `gorm:"default:false" json:"can_send_commands"`

	SharedAt   time.Time  `json:"shared_at"`
	AcceptedAt *time.Time `gorm:"index" json:"accepted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Bracelet *Bracelet `gorm:"foreignKey:BraceletID" json:"bracelet,omitempty"`
	Guardian *Guardian `gorm:"foreignKey:GuardianID" json:"guardian,omitempty"`
}

// TableName keeps the pivot naming of the mobile API
func (BraceletGuardian) TableName() string {
	return "bracelet_guardian"
}

// HasCapability reports whether the relationship grants the given capability
func (bg *BraceletGuardian) HasCapability(cap Capability) bool {
	switch cap {
	case CapEdit:
		return bg.CanEdit
	case CapViewLocation:
		return bg.CanViewLocation
	case CapViewEvents:
		return bg.CanViewEvents
	case CapSendCommands:
		return bg.CanSendCommands
	default:
		return false
	}
}

// IsAccepted reports whether the invitation has been accepted
func (bg *BraceletGuardian) IsAccepted() bool {
	return bg.AcceptedAt != nil
}
