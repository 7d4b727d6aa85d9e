package services

import (
	"errors"
	"fmt"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

// Emergency mode reporting intervals pushed to the device, in milliseconds
const (
	emergencyGPSIntervalMs       = 10000
	emergencyHeartbeatIntervalMs = 60000
)

// defaultGPSIntervalSeconds is used when configure_gps carries no interval
const defaultGPSIntervalSeconds = 60

var (
	// ErrCommandForbidden is returned when the guardian lacks the
	// can_send_commands capability on the bracelet
	ErrCommandForbidden = errors.New("guardian is not allowed to send commands to this bracelet")

	// ErrInvalidCommandType is returned for unknown command types
	ErrInvalidCommandType = errors.New("invalid command type")
)

// CommandPublisher pushes a command payload to a device channel.
// Implemented by the MQTT service; tests substitute a fake.
type CommandPublisher interface {
	PublishCommand(braceletCode string, payload map[string]interface{}) error
}

// CommandParams carries optional per-type command parameters
type CommandParams struct {
	LEDColor        string `json:"led_color,omitempty"`
	LEDPattern      string `json:"led_pattern,omitempty"`
	FirmwareURL     string `json:"firmware_url,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	GPSInterval     int    `json:"gps_interval,omitempty"`
}

// InterfaceCommandService defines the command queue service interface
type InterfaceCommandService interface {
	CreateCommand(guardianID, braceletID uint, cmdType models.CommandType, params CommandParams) (*models.BraceletCommand, error)
	QueueCommand(braceletID uint, cmdType models.CommandType, params CommandParams) (*models.BraceletCommand, error)
	Dispatch(cmd *models.BraceletCommand) error
	BuildPayload(cmd *models.BraceletCommand) map[string]interface{}
	PollPending(braceletID uint) (*models.BraceletCommand, error)
	Acknowledge(braceletID, commandID uint, success bool, errMsg string) (*models.BraceletCommand, error)
	GetCommandsByBracelet(guardianID, braceletID uint, pagination *models.PaginationQuery) ([]models.BraceletCommand, *models.PaginationResult, error)
	SetPublisher(publisher CommandPublisher)
}

// CommandService manages the guardian-to-device command queue.
// Commands are delivered over MQTT when the broker link is up and
// drained by device HTTP polls otherwise.
type CommandService struct {
	DB        *gorm.DB
	Config    *config.Config
	Publisher CommandPublisher
}

// NewCommandService creates a new command service. The publisher is
// injected afterwards because the MQTT service itself needs the command
// service for acknowledgements.
func NewCommandService(db *gorm.DB, cfg *config.Config) InterfaceCommandService {
	return &CommandService{
		DB:     db,
		Config: cfg,
	}
}

// SetPublisher wires the delivery channel
func (s *CommandService) SetPublisher(publisher CommandPublisher) {
	s.Publisher = publisher
}

// CreateCommand validates the guardian's capability, persists a pending
// command and attempts immediate delivery. A failed delivery leaves the
// command pending for the device poll fallback.
func (s *CommandService) CreateCommand(guardianID, braceletID uint, cmdType models.CommandType, params CommandParams) (*models.BraceletCommand, error) {
	if !models.ValidCommandType(cmdType) {
		return nil, ErrInvalidCommandType
	}

	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommandForbidden
		}
		return nil, err
	}
	if !link.CanSendCommands {
		return nil, ErrCommandForbidden
	}

	return s.QueueCommand(braceletID, cmdType, params)
}

// QueueCommand persists and dispatches a command without a capability
// check. Used internally for system-generated commands such as the
// danger response.
func (s *CommandService) QueueCommand(braceletID uint, cmdType models.CommandType, params CommandParams) (*models.BraceletCommand, error) {
	cmd := &models.BraceletCommand{
		BraceletID:  braceletID,
		CommandType: cmdType,
		Status:      models.CommandStatusPending,
	}

	switch cmdType {
	case models.CommandLEDOn:
		cmd.LEDColor = params.LEDColor
		if cmd.LEDColor == "" {
			cmd.LEDColor = "blue"
		}
		cmd.LEDPattern = params.LEDPattern
		if cmd.LEDPattern == "" {
			cmd.LEDPattern = "solid"
		}
	case models.CommandUpdateFirmware:
		if params.FirmwareURL == "" {
			return nil, fmt.Errorf("%w: update_firmware requires a firmware URL", ErrInvalidCommandType)
		}
		cmd.Metadata = models.JSONMap{"firmware_url": params.FirmwareURL}
		if params.FirmwareVersion != "" {
			cmd.Metadata["version"] = params.FirmwareVersion
		}
	case models.CommandConfigureGPS:
		interval := params.GPSInterval
		if interval <= 0 {
			interval = defaultGPSIntervalSeconds
		}
		cmd.Metadata = models.JSONMap{"interval": interval}
	}

	if err := s.DB.Create(cmd).Error; err != nil {
		return nil, err
	}

	if err := s.Dispatch(cmd); err != nil {
		config.Warning("Command %d for bracelet %d not delivered, left pending for poll: %v", cmd.ID, cmd.BraceletID, err)
	}

	return cmd, nil
}

// Dispatch pushes a pending command to the device channel and marks it
// sent. The status update is guarded so a concurrent poll or ack cannot
// be overwritten.
func (s *CommandService) Dispatch(cmd *models.BraceletCommand) error {
	if s.Publisher == nil {
		return errors.New("no command publisher configured")
	}

	var bracelet models.Bracelet
	if err := s.DB.First(&bracelet, cmd.BraceletID).Error; err != nil {
		return err
	}

	payload := s.BuildPayload(cmd)
	if err := s.Publisher.PublishCommand(bracelet.UniqueCode, payload); err != nil {
		return err
	}

	result := s.DB.Model(&models.BraceletCommand{}).
		Where("id = ? AND status = ?", cmd.ID, models.CommandStatusPending).
		Update("status", models.CommandStatusSent)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		cmd.Status = models.CommandStatusSent
	}

	return nil
}

// BuildPayload renders the wire payload the device firmware expects
func (s *CommandService) BuildPayload(cmd *models.BraceletCommand) map[string]interface{} {
	payload := map[string]interface{}{
		"command_id": cmd.ID,
		"type":       string(cmd.CommandType),
	}

	switch cmd.CommandType {
	case models.CommandVibrateShort:
		payload["action"] = "vibrate"
		payload["duration_ms"] = 100
	case models.CommandVibrateMedium:
		payload["action"] = "vibrate"
		payload["duration_ms"] = 300
	case models.CommandVibrateSOS:
		payload["action"] = "vibrate"
		payload["pattern"] = "sos"
	case models.CommandLEDOn:
		payload["action"] = "led_on"
		payload["color"] = cmd.LEDColor
		payload["pattern"] = cmd.LEDPattern
	case models.CommandLEDOff:
		payload["action"] = "led_off"
	case models.CommandEnableEmergencyMode:
		payload["action"] = "emergency_mode"
		payload["enabled"] = true
		payload["gps_interval_ms"] = emergencyGPSIntervalMs
		payload["heartbeat_interval_ms"] = emergencyHeartbeatIntervalMs
	case models.CommandDisableEmergencyMode:
		payload["action"] = "emergency_mode"
		payload["enabled"] = false
	case models.CommandUpdateFirmware:
		payload["action"] = "update_firmware"
		if cmd.Metadata != nil {
			payload["firmware_url"] = cmd.Metadata["firmware_url"]
			if version, ok := cmd.Metadata["version"]; ok {
				payload["version"] = version
			}
		}
	case models.CommandSyncTime:
		now := time.Now()
		payload["action"] = "sync_time"
		payload["timestamp"] = now.Unix()
		payload["timezone"] = now.Location().String()
	case models.CommandConfigureGPS:
		payload["action"] = "configure_gps"
		interval := defaultGPSIntervalSeconds
		if cmd.Metadata != nil {
			switch v := cmd.Metadata["interval"].(type) {
			case int:
				interval = v
			case float64:
				interval = int(v)
			}
		}
		payload["interval_s"] = interval
	}

	return payload
}

// PollPending returns the oldest pending command for a bracelet and
// marks it sent, or nil when the queue is empty. The device drains its
// queue by polling repeatedly.
func (s *CommandService) PollPending(braceletID uint) (*models.BraceletCommand, error) {
	var cmd models.BraceletCommand
	err := s.DB.Where("bracelet_id = ? AND status = ?", braceletID, models.CommandStatusPending).
		Order("created_at ASC").
		First(&cmd).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result := s.DB.Model(&models.BraceletCommand{}).
		Where("id = ? AND status = ?", cmd.ID, models.CommandStatusPending).
		Update("status", models.CommandStatusSent)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race with a concurrent dispatch; the command was
		// already handed over
		return nil, nil
	}

	cmd.Status = models.CommandStatusSent
	return &cmd, nil
}

// Acknowledge records the device's execution result, keeping the error
// string the firmware reported on a failure. Terminal statuses are
// sticky: re-acknowledging an executed or failed command is a no-op so
// duplicate MQTT deliveries stay harmless. Acks for unknown command ids
// are discarded, not errors; a device may replay acks for commands that
// were purged long ago.
func (s *CommandService) Acknowledge(braceletID, commandID uint, success bool, errMsg string) (*models.BraceletCommand, error) {
	var cmd models.BraceletCommand
	err := s.DB.Where("id = ? AND bracelet_id = ?", commandID, braceletID).First(&cmd).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			config.Warning("Discarding ack for unknown command %d on bracelet %d", commandID, braceletID)
			return nil, nil
		}
		return nil, err
	}

	if cmd.IsTerminal() {
		return &cmd, nil
	}

	newStatus := models.CommandStatusExecuted
	if !success {
		newStatus = models.CommandStatusFailed
	}
	now := time.Now()

	updates := map[string]interface{}{
		"status":      newStatus,
		"executed_at": now,
	}
	if !success && errMsg != "" {
		meta := cmd.Metadata
		if meta == nil {
			meta = models.JSONMap{}
		}
		meta["error"] = errMsg
		updates["metadata"] = meta
		cmd.Metadata = meta
	}

	result := s.DB.Model(&models.BraceletCommand{}).
		Where("id = ? AND status IN ?", cmd.ID, []models.CommandStatus{models.CommandStatusPending, models.CommandStatusSent}).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Another ack won the race; reload and return the settled state
		if err := s.DB.First(&cmd, cmd.ID).Error; err != nil {
			return nil, err
		}
		return &cmd, nil
	}

	cmd.Status = newStatus
	cmd.ExecutedAt = &now

	if newStatus == models.CommandStatusExecuted {
		s.applyExecutedSideEffects(&cmd)
	}

	return &cmd, nil
}

// applyExecutedSideEffects mirrors executed mode switches onto the
// bracelet record
func (s *CommandService) applyExecutedSideEffects(cmd *models.BraceletCommand) {
	switch cmd.CommandType {
	case models.CommandEnableEmergencyMode:
		if err := s.DB.Model(&models.Bracelet{}).Where("id = ?", cmd.BraceletID).
			Update("emergency_mode", true).Error; err != nil {
			config.Error("Failed to flag emergency mode on bracelet %d: %v", cmd.BraceletID, err)
		}
	case models.CommandDisableEmergencyMode:
		if err := s.DB.Model(&models.Bracelet{}).Where("id = ?", cmd.BraceletID).
			Update("emergency_mode", false).Error; err != nil {
			config.Error("Failed to clear emergency mode on bracelet %d: %v", cmd.BraceletID, err)
		}
	}
}

// GetCommandsByBracelet lists the command history of a bracelet for a
// guardian that is linked to it
func (s *CommandService) GetCommandsByBracelet(guardianID, braceletID uint, pagination *models.PaginationQuery) ([]models.BraceletCommand, *models.PaginationResult, error) {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCommandForbidden
		}
		return nil, nil, err
	}

	query := s.DB.Model(&models.BraceletCommand{}).Where("bracelet_id = ?", braceletID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	pageNum, pageSize := normalizePagination(pagination)

	var commands []models.BraceletCommand
	if err := query.Order("created_at DESC").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Find(&commands).Error; err != nil {
		return nil, nil, err
	}

	result := models.NewPaginationResult(int(total), pageNum, pageSize)
	return commands, &result, nil
}

// normalizePagination applies the default page window
func normalizePagination(p *models.PaginationQuery) (pageNum, pageSize int) {
	pageNum, pageSize = 1, 20
	if p != nil {
		if p.PageNum > 0 {
			pageNum = p.PageNum
		}
		if p.PageSize > 0 && p.PageSize <= 100 {
			pageSize = p.PageSize
		}
	}
	return pageNum, pageSize
}
