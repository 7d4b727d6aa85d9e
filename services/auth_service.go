package services

import (
	"errors"

	"leguardian-http-service/config"
	"leguardian-http-service/models"
	"leguardian-http-service/utils"

	"gorm.io/gorm"
)

var (
	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// InterfaceAuthService defines the guardian account service interface
type InterfaceAuthService interface {
	Register(name, email, password, phone string) (*models.Guardian, string, error)
	Login(email, password string) (*models.Guardian, string, error)
	GetProfile(guardianID uint) (*models.Guardian, error)
	UpdateProfile(guardianID uint, updates map[string]interface{}) (*models.Guardian, error)
	UpdatePushToken(guardianID uint, token string) error
}

// AuthService handles guardian registration, login and profile management
type AuthService struct {
	DB     *gorm.DB
	Config *config.Config
	JWT    InterfaceJWTService
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, cfg *config.Config, jwtService InterfaceJWTService) InterfaceAuthService {
	return &AuthService{
		DB:     db,
		Config: cfg,
		JWT:    jwtService,
	}
}

// Register creates a guardian account and returns a signed token
func (s *AuthService) Register(name, email, password, phone string) (*models.Guardian, string, error) {
	var count int64
	if err := s.DB.Model(&models.Guardian{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, "", err
	}
	if count > 0 {
		return nil, "", ErrEmailTaken
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	guardian := models.Guardian{
		Name:     name,
		Email:    email,
		Password: hash,
		Phone:    phone,
	}
	if err := s.DB.Create(&guardian).Error; err != nil {
		return nil, "", err
	}

	token, err := s.JWT.GenerateToken(guardian.ID, guardian.Email)
	if err != nil {
		return nil, "", err
	}

	config.Info("Registered guardian %d (%s)", guardian.ID, guardian.Email)
	return &guardian, token, nil
}

// Login authenticates a guardian and returns a signed token
func (s *AuthService) Login(email, password string) (*models.Guardian, string, error) {
	var guardian models.Guardian
	err := s.DB.Where("email = ?", email).First(&guardian).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !utils.CheckPasswordHash(password, guardian.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.JWT.GenerateToken(guardian.ID, guardian.Email)
	if err != nil {
		return nil, "", err
	}

	return &guardian, token, nil
}

// GetProfile returns a guardian account
func (s *AuthService) GetProfile(guardianID uint) (*models.Guardian, error) {
	var guardian models.Guardian
	if err := s.DB.First(&guardian, guardianID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardianNotFound
		}
		return nil, err
	}
	return &guardian, nil
}

// UpdateProfile edits the guardian's profile fields
func (s *AuthService) UpdateProfile(guardianID uint, updates map[string]interface{}) (*models.Guardian, error) {
	guardian, err := s.GetProfile(guardianID)
	if err != nil {
		return nil, err
	}

	allowed := map[string]interface{}{}
	if name, ok := updates["name"].(string); ok && name != "" {
		allowed["name"] = name
	}
	if phone, ok := updates["phone"].(string); ok {
		allowed["phone"] = phone
	}
	if password, ok := updates["password"].(string); ok && password != "" {
		hash, err := utils.HashPassword(password)
		if err != nil {
			return nil, err
		}
		allowed["password"] = hash
	}

	if len(allowed) > 0 {
		if err := s.DB.Model(guardian).Updates(allowed).Error; err != nil {
			return nil, err
		}
	}

	return s.GetProfile(guardianID)
}

// UpdatePushToken stores the Expo push token of the guardian's phone
func (s *AuthService) UpdatePushToken(guardianID uint, token string) error {
	return s.DB.Model(&models.Guardian{}).Where("id = ?", guardianID).
		Update("expo_push_token", token).Error
}
