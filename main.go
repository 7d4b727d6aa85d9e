// @title           LeGuardian HTTP Service API
// @version         1.0
// @description     Backend for the LeGuardian child safety bracelet: device telemetry, safety zones, command delivery and guardian sharing

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer: ` prefix
package main

import (
	"fmt"
	"log"
	"os"

	"leguardian-http-service/config"
	"leguardian-http-service/internal/infrastructure/database"
	"leguardian-http-service/models"
	"leguardian-http-service/routes"
	"leguardian-http-service/utils"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	if err := config.SetupLogger(); err != nil {
		fmt.Printf("Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	// A missing .env file is fine; the environment may already be set
	if err := godotenv.Load(); err != nil {
		config.Warning("Could not load .env file: %v", err)
	} else {
		config.Info("Loaded .env file")
	}

	cfg := config.GetConfig()

	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		log.Fatalf("Failed to create database connection pool: %v", err)
	}
	db := pool.GetDB()

	if err := autoMigrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if cfg.EnvType == "LOCAL" {
		seedDemoBracelets(db)
	}

	r := routes.SetupRouter(db, cfg)

	config.Info("Server listening on http://localhost:%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		config.Error("Failed to start server: %v", err)
		os.Exit(1)
	}
}

// autoMigrate creates missing tables and columns for all models
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Guardian{},
		&models.Bracelet{},
		&models.BraceletGuardian{},
		&models.BraceletEvent{},
		&models.BraceletCommand{},
		&models.SafetyZone{},
	)
	if err != nil {
		return err
	}

	config.Info("Database migration completed")
	return nil
}

// seedDemoBracelets provisions a couple of unpaired bracelets on an empty
// local database so the pairing flow can be exercised without real hardware
func seedDemoBracelets(db *gorm.DB) {
	var count int64
	if err := db.Model(&models.Bracelet{}).Count(&count).Error; err != nil || count > 0 {
		return
	}

	for i := 0; i < 2; i++ {
		code := utils.RandomBraceletCode()
		bracelet := models.Bracelet{
			UniqueCode: code,
			Name:       fmt.Sprintf("Bracelet %s", code),
			Status:     models.BraceletStatusInactive,
		}
		if err := db.Create(&bracelet).Error; err != nil {
			config.Warning("Failed to seed demo bracelet: %v", err)
			return
		}
		config.Info("Seeded demo bracelet %s", code)
	}
}
