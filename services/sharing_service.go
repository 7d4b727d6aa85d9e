package services

import (
	"errors"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

var (
	// ErrShareUnauthorized is returned when the acting guardian lacks
	// the can_edit capability on the bracelet
	ErrShareUnauthorized = errors.New("not allowed to manage sharing for this bracelet")

	// ErrAlreadyShared is returned when the bracelet is already shared
	// with the target guardian
	ErrAlreadyShared = errors.New("bracelet already shared with this guardian")

	// ErrSelfShare is returned when a guardian tries to share with themselves
	ErrSelfShare = errors.New("cannot share a bracelet with yourself")

	// ErrInvitationNotFound is returned when an invitation does not exist
	// or belongs to someone else
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrGuardianNotFound is returned when no account matches the email
	ErrGuardianNotFound = errors.New("guardian not found")
)

// CapabilityFlags bundles the four share permission flags
type CapabilityFlags struct {
	CanEdit         bool `json:"can_edit"`
	CanViewLocation bool `json:"can_view_location"`
	CanViewEvents   bool `json:"can_view_events"`
	CanSendCommands bool `json:"can_send_commands"`
}

// InterfaceSharingService defines the bracelet sharing service interface
type InterfaceSharingService interface {
	ShareBracelet(guardianID, braceletID uint, email string, caps CapabilityFlags) (*models.BraceletGuardian, error)
	AcceptInvitation(guardianID, invitationID uint) (*models.BraceletGuardian, error)
	DeclineInvitation(guardianID, invitationID uint) error
	RevokeShare(guardianID, braceletID, targetGuardianID uint) error
	UpdateCapabilities(guardianID, braceletID, targetGuardianID uint, caps CapabilityFlags) (*models.BraceletGuardian, error)
	GetPendingInvitations(guardianID uint) ([]models.BraceletGuardian, error)
	GetBraceletGuardians(guardianID, braceletID uint) ([]models.BraceletGuardian, error)
	HasCapability(guardianID, braceletID uint, cap models.Capability) (bool, error)
}

// SharingService manages the guardian-bracelet relationships and their
// capability flags. Every bracelet has exactly one owner; shared
// guardians join through invitations.
type SharingService struct {
	DB           *gorm.DB
	Config       *config.Config
	Notification InterfaceNotificationService
}

// NewSharingService creates a new sharing service
func NewSharingService(db *gorm.DB, cfg *config.Config, notification InterfaceNotificationService) InterfaceSharingService {
	return &SharingService{
		DB:           db,
		Config:       cfg,
		Notification: notification,
	}
}

// editorLink loads the accepted relationship of the acting guardian and
// checks the can_edit capability, which gates all sharing management
func (s *SharingService) editorLink(guardianID, braceletID uint) (*models.BraceletGuardian, error) {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareUnauthorized
		}
		return nil, err
	}
	if !link.CanEdit {
		return nil, ErrShareUnauthorized
	}
	return &link, nil
}

// ShareBracelet invites another guardian by email. Requires the can_edit
// capability. The invitation stays pending until accepted; capabilities
// take effect only after acceptance.
func (s *SharingService) ShareBracelet(guardianID, braceletID uint, email string, caps CapabilityFlags) (*models.BraceletGuardian, error) {
	if _, err := s.editorLink(guardianID, braceletID); err != nil {
		return nil, err
	}

	var target models.Guardian
	if err := s.DB.Where("email = ?", email).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardianNotFound
		}
		return nil, err
	}

	if target.ID == guardianID {
		return nil, ErrSelfShare
	}

	var count int64
	if err := s.DB.Model(&models.BraceletGuardian{}).
		Where("bracelet_id = ? AND guardian_id = ?", braceletID, target.ID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyShared
	}

	link := models.BraceletGuardian{
		BraceletID:      braceletID,
		GuardianID:      target.ID,
		Role:            models.RoleShared,
		CanEdit:         caps.CanEdit,
		CanViewLocation: caps.CanViewLocation,
		CanViewEvents:   caps.CanViewEvents,
		CanSendCommands: caps.CanSendCommands,
		SharedAt:        time.Now(),
	}
	if err := s.DB.Create(&link).Error; err != nil {
		return nil, err
	}

	if s.Notification != nil {
		var bracelet models.Bracelet
		var from models.Guardian
		if err := s.DB.First(&bracelet, braceletID).Error; err == nil {
			if err := s.DB.First(&from, guardianID).Error; err == nil {
				s.Notification.NotifyInvitation(&bracelet, &from, &target)
			}
		}
	}

	config.Info("Guardian %d shared bracelet %d with guardian %d", guardianID, braceletID, target.ID)
	return &link, nil
}

// AcceptInvitation accepts a pending invitation addressed to the guardian
func (s *SharingService) AcceptInvitation(guardianID, invitationID uint) (*models.BraceletGuardian, error) {
	var link models.BraceletGuardian
	err := s.DB.Where("id = ? AND guardian_id = ? AND accepted_at IS NULL", invitationID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.DB.Model(&link).Update("accepted_at", now).Error; err != nil {
		return nil, err
	}
	link.AcceptedAt = &now

	return &link, nil
}

// DeclineInvitation removes a pending invitation addressed to the guardian
func (s *SharingService) DeclineInvitation(guardianID, invitationID uint) error {
	result := s.DB.Where("id = ? AND guardian_id = ? AND accepted_at IS NULL", invitationID, guardianID).
		Delete(&models.BraceletGuardian{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// RevokeShare removes a shared guardian from a bracelet. Requires the
// can_edit capability. The owner relationship itself can never be revoked.
func (s *SharingService) RevokeShare(guardianID, braceletID, targetGuardianID uint) error {
	if _, err := s.editorLink(guardianID, braceletID); err != nil {
		return err
	}

	result := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND role = ?", braceletID, targetGuardianID, models.RoleShared).
		Delete(&models.BraceletGuardian{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}

	config.Info("Guardian %d revoked bracelet %d access for guardian %d", guardianID, braceletID, targetGuardianID)
	return nil
}

// UpdateCapabilities adjusts the capability flags of a shared guardian.
// Requires the can_edit capability. Owner capabilities are fixed and
// cannot be changed.
func (s *SharingService) UpdateCapabilities(guardianID, braceletID, targetGuardianID uint, caps CapabilityFlags) (*models.BraceletGuardian, error) {
	if _, err := s.editorLink(guardianID, braceletID); err != nil {
		return nil, err
	}

	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND role = ?", braceletID, targetGuardianID, models.RoleShared).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"can_edit":          caps.CanEdit,
		"can_view_location": caps.CanViewLocation,
		"can_view_events":   caps.CanViewEvents,
		"can_send_commands": caps.CanSendCommands,
	}
	if err := s.DB.Model(&link).Updates(updates).Error; err != nil {
		return nil, err
	}

	link.CanEdit = caps.CanEdit
	link.CanViewLocation = caps.CanViewLocation
	link.CanViewEvents = caps.CanViewEvents
	link.CanSendCommands = caps.CanSendCommands
	return &link, nil
}

// GetPendingInvitations lists the invitations awaiting the guardian's answer
func (s *SharingService) GetPendingInvitations(guardianID uint) ([]models.BraceletGuardian, error) {
	var invitations []models.BraceletGuardian
	err := s.DB.Preload("Bracelet").
		Where("guardian_id = ? AND accepted_at IS NULL", guardianID).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// GetBraceletGuardians lists every guardian of a bracelet. Any linked,
// accepted guardian may see the list.
func (s *SharingService) GetBraceletGuardians(guardianID, braceletID uint) ([]models.BraceletGuardian, error) {
	var requester models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&requester).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareUnauthorized
		}
		return nil, err
	}

	var links []models.BraceletGuardian
	err = s.DB.Preload("Guardian").
		Where("bracelet_id = ?", braceletID).
		Order("role ASC, created_at ASC").
		Find(&links).Error
	return links, err
}

// HasCapability reports whether an accepted guardian holds a capability
// on a bracelet
func (s *SharingService) HasCapability(guardianID, braceletID uint, cap models.Capability) (bool, error) {
	var link models.BraceletGuardian
	err := s.DB.Where("bracelet_id = ? AND guardian_id = ? AND accepted_at IS NOT NULL", braceletID, guardianID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return link.HasCapability(cap), nil
}
