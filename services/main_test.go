package services

import (
	"testing"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Guardian{},
		&models.Bracelet{},
		&models.BraceletGuardian{},
		&models.BraceletEvent{},
		&models.BraceletCommand{},
		&models.SafetyZone{},
	)
	require.NoError(t, err)

	return db
}

// setupTestRedis starts a miniredis instance and wraps it in the service
func setupTestRedis(t *testing.T) *RedisService {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisServiceWithClient(client)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:      "test-secret",
		HeartbeatInterval: 120,
	}
}

func createGuardian(t *testing.T, db *gorm.DB, email string) *models.Guardian {
	t.Helper()

	guardian := &models.Guardian{
		Name:     "Guardian " + email,
		Email:    email,
		Password: "hashed",
	}
	require.NoError(t, db.Create(guardian).Error)
	return guardian
}

func createBracelet(t *testing.T, db *gorm.DB, code string) *models.Bracelet {
	t.Helper()

	bracelet := &models.Bracelet{
		UniqueCode: code,
		Name:       "Bracelet " + code,
		Status:     models.BraceletStatusActive,
	}
	require.NoError(t, db.Create(bracelet).Error)
	return bracelet
}

// linkGuardian creates an accepted guardian link with the given role and flags
func linkGuardian(t *testing.T, db *gorm.DB, braceletID, guardianID uint, role models.GuardianRole, caps CapabilityFlags) *models.BraceletGuardian {
	t.Helper()

	now := time.Now()
	link := &models.BraceletGuardian{
		BraceletID:      braceletID,
		GuardianID:      guardianID,
		Role:            role,
		CanEdit:         caps.CanEdit,
		CanViewLocation: caps.CanViewLocation,
		CanViewEvents:   caps.CanViewEvents,
		CanSendCommands: caps.CanSendCommands,
		SharedAt:        now,
		AcceptedAt:      &now,
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

func allCaps() CapabilityFlags {
	return CapabilityFlags{
		CanEdit:         true,
		CanViewLocation: true,
		CanViewEvents:   true,
		CanSendCommands: true,
	}
}
