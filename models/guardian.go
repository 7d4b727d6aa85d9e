package models

import (
	"time"
)

// Guardian represents an account authorized to manage bracelets
type Guardian struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"type:varchar(100);not null" json:"name"`
	Email         string `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password      string `gorm:"type:varchar(255);not null" json:"-"`
	Phone         string `gorm:"type:varchar(30)" json:"phone,omitempty"`
	ExpoPushToken string `gorm:"type:varchar(255)" json:"expo_push_token,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Bracelets []BraceletGuardian `gorm:"foreignKey:GuardianID" json:"bracelets,omitempty"`
}
