package services

import (
	"errors"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

var (
	// ErrZoneNotFound is returned when a safety zone does not exist
	ErrZoneNotFound = errors.New("safety zone not found")

	// ErrInvalidPolygon is returned for polygons with fewer than three
	// vertices or out-of-range coordinates
	ErrInvalidPolygon = errors.New("invalid zone polygon")
)

// ZoneInput carries the writable fields of a safety zone
type ZoneInput struct {
	Name          string                `json:"name"`
	Icon          string                `json:"icon"`
	Coordinates   models.CoordinateList `json:"coordinates"`
	NotifyOnEntry *bool                 `json:"notify_on_entry"`
	NotifyOnExit  *bool                 `json:"notify_on_exit"`
}

// InterfaceZoneService defines the safety zone service interface
type InterfaceZoneService interface {
	CreateZone(guardianID, braceletID uint, input ZoneInput) (*models.SafetyZone, error)
	UpdateZone(guardianID, zoneID uint, input ZoneInput) (*models.SafetyZone, error)
	DeleteZone(guardianID, zoneID uint) error
	GetZones(guardianID, braceletID uint) ([]models.SafetyZone, error)
	GetZoneByID(guardianID, zoneID uint) (*models.SafetyZone, error)
}

// ZoneService manages the safety zone polygons of a bracelet
type ZoneService struct {
	DB     *gorm.DB
	Config *config.Config
	Redis  InterfaceRedisService
}

// NewZoneService creates a new zone service
func NewZoneService(db *gorm.DB, cfg *config.Config, redis InterfaceRedisService) InterfaceZoneService {
	return &ZoneService{
		DB:     db,
		Config: cfg,
		Redis:  redis,
	}
}

// validatePolygon checks vertex count and coordinate ranges
func validatePolygon(coords models.CoordinateList) error {
	if len(coords) < 3 {
		return ErrInvalidPolygon
	}
	for _, c := range coords {
		if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
			return ErrInvalidPolygon
		}
	}
	return nil
}

// requireEdit checks the can_edit capability on a bracelet
func (s *ZoneService) requireEdit(guardianID, braceletID uint) error {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBraceletForbidden
		}
		return err
	}
	if !link.CanEdit {
		return ErrBraceletForbidden
	}
	return nil
}

// requireLinked checks that the guardian is linked to the bracelet
func (s *ZoneService) requireLinked(guardianID, braceletID uint) error {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBraceletForbidden
		}
		return err
	}
	return nil
}

// CreateZone creates a safety zone on a bracelet. Requires can_edit.
func (s *ZoneService) CreateZone(guardianID, braceletID uint, input ZoneInput) (*models.SafetyZone, error) {
	if err := s.requireEdit(guardianID, braceletID); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, errors.New("zone name is required")
	}
	if err := validatePolygon(input.Coordinates); err != nil {
		return nil, err
	}

	zone := models.SafetyZone{
		BraceletID:          braceletID,
		CreatedByGuardianID: guardianID,
		Name:                input.Name,
		Icon:                input.Icon,
		Type:                "polygon",
		Coordinates:         input.Coordinates,
		NotifyOnEntry:       true,
		NotifyOnExit:        true,
	}
	if input.NotifyOnEntry != nil {
		zone.NotifyOnEntry = *input.NotifyOnEntry
	}
	if input.NotifyOnExit != nil {
		zone.NotifyOnExit = *input.NotifyOnExit
	}

	if err := s.DB.Create(&zone).Error; err != nil {
		return nil, err
	}

	config.Info("Guardian %d created zone %q on bracelet %d", guardianID, zone.Name, braceletID)
	return &zone, nil
}

// UpdateZone edits a safety zone. A changed polygon invalidates the
// cached membership state so the next position fix reseeds it instead of
// firing a phantom transition.
func (s *ZoneService) UpdateZone(guardianID, zoneID uint, input ZoneInput) (*models.SafetyZone, error) {
	var zone models.SafetyZone
	if err := s.DB.First(&zone, zoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZoneNotFound
		}
		return nil, err
	}

	if err := s.requireEdit(guardianID, zone.BraceletID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.Icon != "" {
		updates["icon"] = input.Icon
	}
	polygonChanged := false
	if input.Coordinates != nil {
		if err := validatePolygon(input.Coordinates); err != nil {
			return nil, err
		}
		updates["coordinates"] = input.Coordinates
		polygonChanged = true
	}
	if input.NotifyOnEntry != nil {
		updates["notify_on_entry"] = *input.NotifyOnEntry
	}
	if input.NotifyOnExit != nil {
		updates["notify_on_exit"] = *input.NotifyOnExit
	}

	if len(updates) > 0 {
		if err := s.DB.Model(&zone).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	if polygonChanged && s.Redis != nil {
		if err := s.Redis.ClearZoneMembership(zone.ID); err != nil {
			config.Warning("Failed to clear membership cache for zone %d: %v", zone.ID, err)
		}
	}

	if err := s.DB.First(&zone, zoneID).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

// DeleteZone removes a safety zone and its cached membership state
func (s *ZoneService) DeleteZone(guardianID, zoneID uint) error {
	var zone models.SafetyZone
	if err := s.DB.First(&zone, zoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrZoneNotFound
		}
		return err
	}

	if err := s.requireEdit(guardianID, zone.BraceletID); err != nil {
		return err
	}

	if err := s.DB.Delete(&zone).Error; err != nil {
		return err
	}

	if s.Redis != nil {
		if err := s.Redis.ClearZoneMembership(zone.ID); err != nil {
			config.Warning("Failed to clear membership cache for zone %d: %v", zone.ID, err)
		}
	}

	config.Info("Guardian %d deleted zone %d", guardianID, zoneID)
	return nil
}

// GetZones lists the safety zones of a bracelet
func (s *ZoneService) GetZones(guardianID, braceletID uint) ([]models.SafetyZone, error) {
	if err := s.requireLinked(guardianID, braceletID); err != nil {
		return nil, err
	}

	var zones []models.SafetyZone
	err := s.DB.Where("bracelet_id = ?", braceletID).Order("created_at ASC").Find(&zones).Error
	return zones, err
}

// GetZoneByID returns a single safety zone
func (s *ZoneService) GetZoneByID(guardianID, zoneID uint) (*models.SafetyZone, error) {
	var zone models.SafetyZone
	if err := s.DB.First(&zone, zoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZoneNotFound
		}
		return nil, err
	}
	if err := s.requireLinked(guardianID, zone.BraceletID); err != nil {
		return nil, err
	}
	return &zone, nil
}
