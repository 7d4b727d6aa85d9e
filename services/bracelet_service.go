package services

import (
	"errors"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

var (
	// ErrAlreadyPaired is returned when the bracelet already belongs to
	// a guardian
	ErrAlreadyPaired = errors.New("bracelet is already paired")

	// ErrBraceletForbidden is returned when the guardian is not linked to
	// the bracelet or lacks the required capability
	ErrBraceletForbidden = errors.New("no access to this bracelet")
)

// BraceletLocation is the last known position snapshot of a bracelet
type BraceletLocation struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Accuracy  *int       `json:"accuracy,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// InterfaceBraceletService defines the guardian-facing bracelet service interface
type InterfaceBraceletService interface {
	PairBracelet(guardianID uint, code, alias string) (*models.Bracelet, error)
	UnpairBracelet(guardianID, braceletID uint) error
	GetBracelets(guardianID uint) ([]models.BraceletGuardian, error)
	GetAvailableBracelets() ([]models.Bracelet, error)
	GetBracelet(guardianID, braceletID uint) (*models.Bracelet, *models.BraceletGuardian, error)
	UpdateBracelet(guardianID, braceletID uint, updates map[string]interface{}) (*models.Bracelet, error)
	GetLocation(guardianID, braceletID uint) (*BraceletLocation, error)
}

// BraceletService handles the guardian side of the bracelet lifecycle:
// pairing, profile edits and location reads
type BraceletService struct {
	DB     *gorm.DB
	Config *config.Config
	Redis  InterfaceRedisService
}

// NewBraceletService creates a new bracelet service
func NewBraceletService(db *gorm.DB, cfg *config.Config, redis InterfaceRedisService) InterfaceBraceletService {
	return &BraceletService{
		DB:     db,
		Config: cfg,
		Redis:  redis,
	}
}

// PairBracelet claims an unpaired bracelet by its printed code. The
// claiming guardian becomes the owner with full capabilities; the pairing
// flag and the owner row are committed together.
func (s *BraceletService) PairBracelet(guardianID uint, code, alias string) (*models.Bracelet, error) {
	var bracelet models.Bracelet
	err := s.DB.Where("unique_code = ?", code).First(&bracelet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBraceletNotFound
		}
		return nil, err
	}

	if bracelet.IsPaired {
		return nil, ErrAlreadyPaired
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Guard against a concurrent pairing of the same bracelet
		result := tx.Model(&models.Bracelet{}).
			Where("id = ? AND is_paired = ?", bracelet.ID, false).
			Updates(map[string]interface{}{
				"is_paired": true,
				"paired_at": now,
				"alias":     alias,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyPaired
		}

		owner := models.BraceletGuardian{
			BraceletID:      bracelet.ID,
			GuardianID:      guardianID,
			Role:            models.RoleOwner,
			CanEdit:         true,
			CanViewLocation: true,
			CanViewEvents:   true,
			CanSendCommands: true,
			SharedAt:        now,
			AcceptedAt:      &now,
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		return nil, err
	}

	bracelet.IsPaired = true
	bracelet.PairedAt = &now
	bracelet.Alias = alias

	config.Info("Guardian %d paired bracelet %s", guardianID, code)
	return &bracelet, nil
}

// UnpairBracelet releases a bracelet. Owner only. All guardian links and
// safety zones are removed and the device returns to its factory state.
func (s *BraceletService) UnpairBracelet(guardianID, braceletID uint) error {
	var owner models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND role = ?", braceletID, guardianID, models.RoleOwner).
		First(&owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBraceletForbidden
		}
		return err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bracelet_id = ?", braceletID).Delete(&models.BraceletGuardian{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bracelet_id = ?", braceletID).Delete(&models.SafetyZone{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bracelet{}).Where("id = ?", braceletID).
			Updates(map[string]interface{}{
				"is_paired":      false,
				"paired_at":      nil,
				"alias":          "",
				"status":         models.BraceletStatusInactive,
				"emergency_mode": false,
			}).Error
	})
	if err != nil {
		return err
	}

	if s.Redis != nil {
		if err := s.Redis.ClearBraceletMembership(braceletID); err != nil {
			config.Warning("Failed to clear membership cache for bracelet %d: %v", braceletID, err)
		}
	}

	config.Info("Guardian %d unpaired bracelet %d", guardianID, braceletID)
	return nil
}

// GetBracelets lists the accepted bracelet links of a guardian with the
// bracelet records preloaded
func (s *BraceletService) GetBracelets(guardianID uint) ([]models.BraceletGuardian, error) {
	var links []models.BraceletGuardian
	err := s.DB.Preload("Bracelet").
		Where("guardian_id = ? AND accepted_at IS NOT NULL", guardianID).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

// GetAvailableBracelets lists registered bracelets that no guardian has
// claimed yet. Shown in the pairing screen.
func (s *BraceletService) GetAvailableBracelets() ([]models.Bracelet, error) {
	var bracelets []models.Bracelet
	err := s.DB.Where("is_paired = ?", false).Order("created_at DESC").Find(&bracelets).Error
	return bracelets, err
}

// GetBracelet returns a bracelet and the requesting guardian's link to it
func (s *BraceletService) GetBracelet(guardianID, braceletID uint) (*models.Bracelet, *models.BraceletGuardian, error) {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrBraceletForbidden
		}
		return nil, nil, err
	}

	var bracelet models.Bracelet
	if err := s.DB.First(&bracelet, braceletID).Error; err != nil {
		return nil, nil, err
	}

	// Location is capability gated
	if !link.CanViewLocation {
		bracelet.LastLatitude = nil
		bracelet.LastLongitude = nil
		bracelet.LastAccuracy = nil
		bracelet.LastLocationUpdate = nil
	}

	return &bracelet, &link, nil
}

// UpdateBracelet edits bracelet profile fields. Requires the can_edit
// capability. Only the alias and name are editable.
func (s *BraceletService) UpdateBracelet(guardianID, braceletID uint, updates map[string]interface{}) (*models.Bracelet, error) {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBraceletForbidden
		}
		return nil, err
	}
	if !link.CanEdit {
		return nil, ErrBraceletForbidden
	}

	allowed := map[string]interface{}{}
	if alias, ok := updates["alias"].(string); ok {
		allowed["alias"] = alias
	}
	if name, ok := updates["name"].(string); ok && name != "" {
		allowed["name"] = name
	}
	if len(allowed) == 0 {
		return nil, errors.New("no editable fields in update")
	}

	if err := s.DB.Model(&models.Bracelet{}).Where("id = ?", braceletID).Updates(allowed).Error; err != nil {
		return nil, err
	}

	var bracelet models.Bracelet
	if err := s.DB.First(&bracelet, braceletID).Error; err != nil {
		return nil, err
	}
	return &bracelet, nil
}

// GetLocation returns the last known position. Requires the
// can_view_location capability.
func (s *BraceletService) GetLocation(guardianID, braceletID uint) (*BraceletLocation, error) {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBraceletForbidden
		}
		return nil, err
	}
	if !link.CanViewLocation {
		return nil, ErrBraceletForbidden
	}

	var bracelet models.Bracelet
	if err := s.DB.First(&bracelet, braceletID).Error; err != nil {
		return nil, err
	}
	if !bracelet.HasLocation() {
		return nil, nil
	}

	return &BraceletLocation{
		Latitude:  *bracelet.LastLatitude,
		Longitude: *bracelet.LastLongitude,
		Accuracy:  bracelet.LastAccuracy,
		UpdatedAt: bracelet.LastLocationUpdate,
	}, nil
}
