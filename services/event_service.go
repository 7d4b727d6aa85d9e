package services

import (
	"errors"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

var (
	// ErrEventNotFound is returned when an event does not exist
	ErrEventNotFound = errors.New("event not found")

	// ErrEventAlreadyResolved is returned when the event was resolved before
	ErrEventAlreadyResolved = errors.New("event already resolved")
)

// EventFilter narrows an event listing
type EventFilter struct {
	EventType models.EventType `form:"event_type"`
	Resolved  *bool            `form:"resolved"`
	Since     *time.Time       `form:"since"`
}

// InterfaceEventService defines the event history service interface
type InterfaceEventService interface {
	GetEventsByBracelet(guardianID, braceletID uint, filter EventFilter, pagination *models.PaginationQuery) ([]models.BraceletEvent, *models.PaginationResult, error)
	GetGuardianEvents(guardianID uint, unresolvedOnly bool, pagination *models.PaginationQuery) ([]models.BraceletEvent, *models.PaginationResult, error)
	ResolveEvent(guardianID, eventID uint) (*models.BraceletEvent, error)
	RespondToEvent(guardianID, eventID uint) (*models.BraceletEvent, []models.BraceletCommand, error)
}

// EventService exposes the event history to guardians and handles alert
// resolution
type EventService struct {
	DB      *gorm.DB
	Config  *config.Config
	Command InterfaceCommandService
}

// NewEventService creates a new event service
func NewEventService(db *gorm.DB, cfg *config.Config, command InterfaceCommandService) InterfaceEventService {
	return &EventService{
		DB:      db,
		Config:  cfg,
		Command: command,
	}
}

// requireViewEvents checks the can_view_events capability
func (s *EventService) requireViewEvents(guardianID, braceletID uint) error {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBraceletForbidden
		}
		return err
	}
	if !link.CanViewEvents {
		return ErrBraceletForbidden
	}
	return nil
}

// GetEventsByBracelet lists the event history of a bracelet, newest first
func (s *EventService) GetEventsByBracelet(guardianID, braceletID uint, filter EventFilter, pagination *models.PaginationQuery) ([]models.BraceletEvent, *models.PaginationResult, error) {
	if err := s.requireViewEvents(guardianID, braceletID); err != nil {
		return nil, nil, err
	}

	query := s.DB.Model(&models.BraceletEvent{}).Where("bracelet_id = ?", braceletID)
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Resolved != nil {
		query = query.Where("resolved = ?", *filter.Resolved)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	pageNum, pageSize := normalizePagination(pagination)

	var events []models.BraceletEvent
	if err := query.Order("created_at DESC").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error; err != nil {
		return nil, nil, err
	}

	result := models.NewPaginationResult(int(total), pageNum, pageSize)
	return events, &result, nil
}

// GetGuardianEvents lists events across every bracelet the guardian may
// see events for, newest first
func (s *EventService) GetGuardianEvents(guardianID uint, unresolvedOnly bool, pagination *models.PaginationQuery) ([]models.BraceletEvent, *models.PaginationResult, error) {
	visible := s.DB.Model(&models.BraceletGuardian{}).
		Select("bracelet_id").
		Where("guardian_id = ? AND accepted_at IS NOT NULL AND can_view_events = ?", guardianID, true)

	query := s.DB.Model(&models.BraceletEvent{}).Where("bracelet_id IN (?)", visible)
	if unresolvedOnly {
		query = query.Where("resolved = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	pageNum, pageSize := normalizePagination(pagination)

	var events []models.BraceletEvent
	if err := query.Preload("Bracelet").
		Order("created_at DESC").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error; err != nil {
		return nil, nil, err
	}

	result := models.NewPaginationResult(int(total), pageNum, pageSize)
	return events, &result, nil
}

// loadEventForGuardian loads an event and checks the guardian may act on it
func (s *EventService) loadEventForGuardian(guardianID, eventID uint) (*models.BraceletEvent, error) {
	var event models.BraceletEvent
	if err := s.DB.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if err := s.requireViewEvents(guardianID, event.BraceletID); err != nil {
		return nil, err
	}
	return &event, nil
}

// ResolveEvent marks an alert as handled. Resolving a lost alert returns
// the bracelet to active; resolving a danger alert does the same once no
// other unresolved danger remains.
func (s *EventService) ResolveEvent(guardianID, eventID uint) (*models.BraceletEvent, error) {
	event, err := s.loadEventForGuardian(guardianID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Resolved {
		return nil, ErrEventAlreadyResolved
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(event).Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": now,
		}).Error; err != nil {
			return err
		}

		switch event.EventType {
		case models.EventLost:
			return tx.Model(&models.Bracelet{}).
				Where("id = ? AND status = ?", event.BraceletID, models.BraceletStatusLost).
				Update("status", models.BraceletStatusActive).Error

		case models.EventDanger:
			var remaining int64
			if err := tx.Model(&models.BraceletEvent{}).
				Where("bracelet_id = ? AND event_type = ? AND resolved = ? AND id != ?",
					event.BraceletID, models.EventDanger, false, event.ID).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining > 0 {
				return nil
			}

			return tx.Model(&models.Bracelet{}).
				Where("id = ? AND status = ?", event.BraceletID, models.BraceletStatusEmergency).
				Update("status", models.BraceletStatusActive).Error
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Resolved = true
	event.ResolvedAt = &now

	config.Info("Guardian %d resolved event %d on bracelet %d", guardianID, eventID, event.BraceletID)
	return event, nil
}

// RespondToEvent resolves an alert and reassures the child through the
// device: a short vibration plus a fast blue LED blink.
func (s *EventService) RespondToEvent(guardianID, eventID uint) (*models.BraceletEvent, []models.BraceletCommand, error) {
	event, err := s.ResolveEvent(guardianID, eventID)
	if err != nil {
		return nil, nil, err
	}

	var commands []models.BraceletCommand

	vibrate, err := s.Command.QueueCommand(event.BraceletID, models.CommandVibrateShort, CommandParams{})
	if err != nil {
		config.Error("Failed to queue response vibration for bracelet %d: %v", event.BraceletID, err)
	} else {
		commands = append(commands, *vibrate)
	}

	led, err := s.Command.QueueCommand(event.BraceletID, models.CommandLEDOn, CommandParams{
		LEDColor:   "blue",
		LEDPattern: "fast",
	})
	if err != nil {
		config.Error("Failed to queue response LED for bracelet %d: %v", event.BraceletID, err)
	} else {
		commands = append(commands, *led)
	}

	return event, commands, nil
}
