package container

import (
	"sync"

	"leguardian-http-service/config"
	"leguardian-http-service/services"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ServiceContainer wires all services together
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client

	// Base services
	jwtService   services.InterfaceJWTService
	redisService services.InterfaceRedisService

	// Device channel
	mqttService services.InterfaceMQTTService

	// Business services
	authService         services.InterfaceAuthService
	deviceService       services.InterfaceDeviceService
	braceletService     services.InterfaceBraceletService
	geofenceService     services.InterfaceGeofenceService
	commandService      services.InterfaceCommandService
	sharingService      services.InterfaceSharingService
	notificationService services.InterfaceNotificationService
	zoneService         services.InterfaceZoneService
	eventService        services.InterfaceEventService

	mu sync.RWMutex
}

// NewServiceContainer creates a new service container
func NewServiceContainer(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *ServiceContainer {
	if db == nil {
		panic("database connection is nil")
	}
	if cfg == nil {
		panic("config is nil")
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
		redis:  redisClient,
	}
	container.initializeServices()
	return container
}

// initializeServices builds the service graph. The command service and
// the MQTT service reference each other, so the publisher is injected
// after both exist.
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jwtService = services.NewJWTService(c.config)

	if c.redis != nil {
		c.redisService = services.NewRedisServiceWithClient(c.redis)
	} else {
		c.redisService = services.NewRedisService(c.config)
	}
	if err := c.redisService.Ping(); err != nil {
		config.Warning("Redis connection test failed: %v", err)
	}

	c.notificationService = services.NewNotificationService(c.db, c.config)
	c.geofenceService = services.NewGeofenceService(c.db, c.config, c.redisService, c.notificationService)
	c.commandService = services.NewCommandService(c.db, c.config)
	c.deviceService = services.NewDeviceService(c.db, c.config, c.geofenceService, c.notificationService)

	mqttService := services.NewMQTTService(c.db, c.config, c.deviceService, c.commandService)
	c.mqttService = mqttService
	c.commandService.SetPublisher(mqttService)

	// Connect in the background so a down broker never blocks startup;
	// commands fall back to device polling until the link is up
	go func() {
		if err := mqttService.Connect(); err != nil {
			config.Warning("MQTT connection failed, command delivery falls back to polling: %v", err)
		}
	}()

	c.authService = services.NewAuthService(c.db, c.config, c.jwtService)
	c.braceletService = services.NewBraceletService(c.db, c.config, c.redisService)
	c.sharingService = services.NewSharingService(c.db, c.config, c.notificationService)
	c.zoneService = services.NewZoneService(c.db, c.config, c.redisService)
	c.eventService = services.NewEventService(c.db, c.config, c.commandService)
}

// GetService returns a service by name
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "mqtt":
		return c.mqttService
	case "auth":
		return c.authService
	case "device":
		return c.deviceService
	case "bracelet":
		return c.braceletService
	case "geofence":
		return c.geofenceService
	case "command":
		return c.commandService
	case "sharing":
		return c.sharingService
	case "notification":
		return c.notificationService
	case "zone":
		return c.zoneService
	case "event":
		return c.eventService
	default:
		return nil
	}
}

// GetDB returns the database connection
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
