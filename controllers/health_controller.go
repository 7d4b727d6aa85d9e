package controllers

import (
	"net/http"

	"leguardian-http-service/services"
	"leguardian-http-service/services/container"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthCheckController reports service health
type HealthCheckController struct {
	Container *container.ServiceContainer
}

// NewHealthCheckController creates a health check controller
func NewHealthCheckController(container *container.ServiceContainer) *HealthCheckController {
	return &HealthCheckController{Container: container}
}

// Ping is a liveness endpoint
func (h *HealthCheckController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"status":  "healthy",
	})
}

// Health reports the state of the database and Redis connections
func (h *HealthCheckController) Health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "up"
	redisStatus := "up"

	db := h.Container.GetService("db").(*gorm.DB)
	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
		status = http.StatusServiceUnavailable
	}

	redisService := h.Container.GetService("redis").(services.InterfaceRedisService)
	if err := redisService.Ping(); err != nil {
		redisStatus = "down"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"database": dbStatus,
		"redis":    redisStatus,
	})
}
