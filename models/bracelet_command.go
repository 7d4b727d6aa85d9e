package models

import (
	"time"
)

// CommandType identifies a guardian-issued device instruction
type CommandType string

const (
	CommandVibrateShort         CommandType = "vibrate_short"
	CommandVibrateMedium        CommandType = "vibrate_medium"
	CommandVibrateSOS           CommandType = "vibrate_sos"
	CommandLEDOn                CommandType = "led_on"
	CommandLEDOff               CommandType = "led_off"
	CommandEnableEmergencyMode  CommandType = "enable_emergency_mode"
	CommandDisableEmergencyMode CommandType = "disable_emergency_mode"
	CommandUpdateFirmware       CommandType = "update_firmware"
	CommandSyncTime             CommandType = "sync_time"
	CommandConfigureGPS         CommandType = "configure_gps"
)

// CommandStatus tracks the delivery lifecycle of a command.
// Transitions are monotonic: pending -> sent -> executed|failed.
type CommandStatus string

const (
	CommandStatusPending  CommandStatus = "pending"
	CommandStatusSent     CommandStatus = "sent"
	CommandStatusExecuted CommandStatus = "executed"
	CommandStatusFailed   CommandStatus = "failed"
)

// BraceletCommand is a guardian-issued instruction delivered to the device
type BraceletCommand struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	BraceletID  uint          `gorm:"not null;index" json:"bracelet_id"`
	CommandType CommandType   `gorm:"type:varchar(30);not null" json:"command_type"`
	Status      CommandStatus `gorm:"type:varchar(10);default:'pending';index" json:"status"`

	LEDColor   string  `gorm:"type:varchar(20)" json:"led_color,omitempty"`
	LEDPattern string  `gorm:"type:varchar(20)" json:"led_pattern,omitempty"`
	Metadata   JSONMap `gorm:"type:text" json:"metadata,omitempty"`

	ExecutedAt *time.Time `json:"executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Bracelet *Bracelet `gorm:"foreignKey:BraceletID" json:"bracelet,omitempty"`
}

// IsTerminal reports whether the command reached a final status
func (c *BraceletCommand) IsTerminal() bool {
	return c.Status == CommandStatusExecuted || c.Status == CommandStatusFailed
}

// ValidCommandType reports whether t is a known command type
func ValidCommandType(t CommandType) bool {
	switch t {
	case CommandVibrateShort, CommandVibrateMedium, CommandVibrateSOS,
		CommandLEDOn, CommandLEDOff,
		CommandEnableEmergencyMode, CommandDisableEmergencyMode,
		CommandUpdateFirmware, CommandSyncTime, CommandConfigureGPS:
		return true
	}
	return false
}
