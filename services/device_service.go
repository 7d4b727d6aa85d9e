package services

import (
	"errors"
	"fmt"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

// ErrBraceletNotFound is returned when a bracelet code resolves to nothing
var ErrBraceletNotFound = errors.New("bracelet not found")

// ErrInvalidEventType is returned for event types a device may not report
var ErrInvalidEventType = errors.New("invalid event type")

// ErrNotInAlert is returned when a reset is requested while the bracelet
// is neither lost nor in emergency
var ErrNotInAlert = errors.New("bracelet is not in an alert status")

// HeartbeatInput is the periodic telemetry a device reports
type HeartbeatInput struct {
	BatteryLevel    int
	Latitude        *float64
	Longitude       *float64
	Accuracy        *int
	FirmwareVersion string
}

// EventInput is a device-reported event
type EventInput struct {
	EventType    models.EventType
	Latitude     *float64
	Longitude    *float64
	Accuracy     *int
	BatteryLevel *int
	Metadata     models.JSONMap
}

// InterfaceDeviceService defines the device-facing telemetry service interface
type InterfaceDeviceService interface {
	ResolveByCode(code string) (*models.Bracelet, error)
	ProcessHeartbeat(code string, input HeartbeatInput) (*models.Bracelet, []models.BraceletEvent, error)
	ProcessEvent(code string, input EventInput) (*models.BraceletEvent, error)
	ResetStatus(code string) (*models.Bracelet, error)
	CheckAssociation(code string) (bool, *models.Bracelet, error)
}

// DeviceService handles everything the bracelet firmware talks to:
// registration, heartbeats, reported events and status resets
type DeviceService struct {
	DB           *gorm.DB
	Config       *config.Config
	Geofence     InterfaceGeofenceService
	Notification InterfaceNotificationService
}

// NewDeviceService creates a new device service
func NewDeviceService(db *gorm.DB, cfg *config.Config, geofence InterfaceGeofenceService, notification InterfaceNotificationService) InterfaceDeviceService {
	return &DeviceService{
		DB:           db,
		Config:       cfg,
		Geofence:     geofence,
		Notification: notification,
	}
}

// ResolveByCode finds a bracelet by its unique code, registering an
// inactive record on first contact. Factory-fresh devices announce
// themselves before any guardian has paired them.
func (s *DeviceService) ResolveByCode(code string) (*models.Bracelet, error) {
	if code == "" {
		return nil, ErrBraceletNotFound
	}

	var bracelet models.Bracelet
	err := s.DB.Where("unique_code = ?", code).First(&bracelet).Error
	if err == nil {
		return &bracelet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	bracelet = models.Bracelet{
		UniqueCode: code,
		Name:       fmt.Sprintf("Bracelet %s", code),
		Status:     models.BraceletStatusInactive,
	}
	if err := s.DB.Create(&bracelet).Error; err != nil {
		// A concurrent first contact may have inserted the row already
		if retryErr := s.DB.Where("unique_code = ?", code).First(&bracelet).Error; retryErr == nil {
			return &bracelet, nil
		}
		return nil, err
	}

	config.Info("Auto-registered bracelet %s", code)
	return &bracelet, nil
}

// ProcessHeartbeat updates the bracelet snapshot from periodic telemetry
// and runs geofence evaluation when a position is included. The status is
// never touched: a lost or emergency alert survives periodic pings and is
// only cleared by an arrived event, a reset or a guardian resolution.
func (s *DeviceService) ProcessHeartbeat(code string, input HeartbeatInput) (*models.Bracelet, []models.BraceletEvent, error) {
	bracelet, err := s.ResolveByCode(code)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"battery_level": input.BatteryLevel,
		"last_ping_at":  now,
	}
	if input.FirmwareVersion != "" {
		updates["firmware_version"] = input.FirmwareVersion
	}
	if input.Latitude != nil && input.Longitude != nil {
		updates["last_latitude"] = *input.Latitude
		updates["last_longitude"] = *input.Longitude
		updates["last_location_update"] = now
		if input.Accuracy != nil {
			updates["last_accuracy"] = *input.Accuracy
		}
	}
	if err := s.DB.Model(bracelet).Updates(updates).Error; err != nil {
		return nil, nil, err
	}

	// Reload so callers see the applied snapshot
	if err := s.DB.First(bracelet, bracelet.ID).Error; err != nil {
		return nil, nil, err
	}

	var transitions []models.BraceletEvent
	if bracelet.IsPaired && input.Latitude != nil && input.Longitude != nil && s.Geofence != nil {
		transitions, err = s.Geofence.ProcessLocation(bracelet, *input.Latitude, *input.Longitude, input.Accuracy)
		if err != nil {
			config.Error("Geofence evaluation failed for bracelet %s: %v", code, err)
		}
	}

	return bracelet, transitions, nil
}

// reportableEventTypes are the event types a device is allowed to report.
// Zone transitions are derived server side and never accepted from the wire.
func reportableEventType(t models.EventType) bool {
	switch t {
	case models.EventHeartbeat, models.EventArrived, models.EventLost, models.EventDanger:
		return true
	}
	return false
}

// ProcessEvent records a device-reported event. The event row and the
// resulting status change are committed in one transaction so an alert
// can never exist without its status, or the other way round.
func (s *DeviceService) ProcessEvent(code string, input EventInput) (*models.BraceletEvent, error) {
	if !reportableEventType(input.EventType) {
		return nil, ErrInvalidEventType
	}

	bracelet, err := s.ResolveByCode(code)
	if err != nil {
		return nil, err
	}

	event := models.BraceletEvent{
		BraceletID: bracelet.ID,
		EventType:  input.EventType,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		Accuracy:   input.Accuracy,
		Metadata:   input.Metadata,
	}
	if input.BatteryLevel != nil {
		event.BatteryLevel = *input.BatteryLevel
	} else {
		event.BatteryLevel = bracelet.BatteryLevel
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_ping_at": time.Now(),
		}
		if input.BatteryLevel != nil {
			updates["battery_level"] = *input.BatteryLevel
		}
		if input.Latitude != nil && input.Longitude != nil {
			updates["last_latitude"] = *input.Latitude
			updates["last_longitude"] = *input.Longitude
			updates["last_location_update"] = time.Now()
			if input.Accuracy != nil {
				updates["last_accuracy"] = *input.Accuracy
			}
		}

		switch input.EventType {
		case models.EventDanger:
			updates["status"] = models.BraceletStatusEmergency
		case models.EventLost:
			updates["status"] = models.BraceletStatusLost
		case models.EventArrived:
			updates["status"] = models.BraceletStatusActive
		}

		return tx.Model(&models.Bracelet{}).Where("id = ?", bracelet.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	if s.Notification != nil {
		s.Notification.NotifyEvent(bracelet, &event)
	}

	config.Info("Bracelet %s reported %s event", code, input.EventType)
	return &event, nil
}

// ResetStatus returns a bracelet to active after a device-side reset.
// Only lost and emergency can be reset this way; emergency mode is
// cleared as well.
func (s *DeviceService) ResetStatus(code string) (*models.Bracelet, error) {
	bracelet, err := s.ResolveByCode(code)
	if err != nil {
		return nil, err
	}

	if bracelet.Status != models.BraceletStatusLost && bracelet.Status != models.BraceletStatusEmergency {
		return nil, ErrNotInAlert
	}

	updates := map[string]interface{}{
		"status":         models.BraceletStatusActive,
		"emergency_mode": false,
	}
	if err := s.DB.Model(bracelet).Updates(updates).Error; err != nil {
		return nil, err
	}

	bracelet.Status = models.BraceletStatusActive
	bracelet.EmergencyMode = false
	return bracelet, nil
}

// CheckAssociation reports whether a bracelet has been paired with a
// guardian. Devices use this to decide whether to show the pairing screen.
func (s *DeviceService) CheckAssociation(code string) (bool, *models.Bracelet, error) {
	bracelet, err := s.ResolveByCode(code)
	if err != nil {
		return false, nil, err
	}
	return bracelet.IsPaired, bracelet, nil
}
