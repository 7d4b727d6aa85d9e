package routes

import (
	"leguardian-http-service/config"
	"leguardian-http-service/controllers"
	_ "leguardian-http-service/docs"
	"leguardian-http-service/middleware"
	"leguardian-http-service/services/container"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter initializes and returns the configured router
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With, X-Bracelet-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	serviceContainer := container.NewServiceContainer(db, cfg, nil)
	middleware.InitAuthMiddleware(cfg)

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes configures all API routes
func registerRoutes(r *gin.Engine, container *container.ServiceContainer) {
	api := r.Group("/api")

	registerPublicRoutes(api, container)
	registerDeviceRoutes(api, container)
	registerGuardianRoutes(api, container)
}

// registerPublicRoutes registers unauthenticated routes
func registerPublicRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	healthController := controllers.NewHealthCheckController(container)
	api.GET("/ping", healthController.Ping)
	api.GET("/health", healthController.Health)

	api.POST("/auth/register", controllers.HandleAuthFunc(container, "register"))
	api.POST("/auth/login", controllers.HandleAuthFunc(container, "login"))
}

// registerDeviceRoutes registers the HTTP side of the device protocol.
// Devices authenticate with the X-Bracelet-ID header, not a guardian token.
func registerDeviceRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	device := api.Group("/device")
	{
		device.POST("/register", controllers.HandleDeviceFunc(container, "register"))
		device.POST("/heartbeat", controllers.HandleDeviceFunc(container, "heartbeat"))
		device.POST("/events", controllers.HandleDeviceFunc(container, "reportEvent"))
		device.POST("/button/arrived", controllers.HandleDeviceFunc(container, "buttonArrived"))
		device.POST("/button/lost", controllers.HandleDeviceFunc(container, "buttonLost"))
		device.POST("/button/danger", controllers.HandleDeviceFunc(container, "buttonDanger"))
		device.POST("/danger/update", controllers.HandleDeviceFunc(container, "dangerUpdate"))
		device.GET("/commands/poll", controllers.HandleDeviceFunc(container, "pollCommand"))
		device.POST("/commands/:id/ack", controllers.HandleDeviceFunc(container, "ackCommand"))
		device.GET("/association", controllers.HandleDeviceFunc(container, "checkAssociation"))
		device.POST("/reset", controllers.HandleDeviceFunc(container, "resetStatus"))
	}
}

// registerGuardianRoutes registers the guardian-facing routes behind JWT auth
func registerGuardianRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	authenticated := api.Group("")
	authenticated.Use(middleware.AuthenticateGuardian())

	// Profile
	authenticated.POST("/auth/logout", controllers.HandleAuthFunc(container, "logout"))
	authenticated.GET("/auth/profile", controllers.HandleAuthFunc(container, "getProfile"))
	authenticated.PUT("/auth/profile", controllers.HandleAuthFunc(container, "updateProfile"))
	authenticated.PUT("/auth/push-token", controllers.HandleAuthFunc(container, "updatePushToken"))

	// Bracelets
	bracelets := authenticated.Group("/bracelets")
	{
		bracelets.POST("/pair", controllers.HandleBraceletFunc(container, "pair"))
		bracelets.GET("", controllers.HandleBraceletFunc(container, "getBracelets"))
		bracelets.GET("/available", controllers.HandleBraceletFunc(container, "getAvailable"))
		bracelets.GET("/:id", controllers.HandleBraceletFunc(container, "getBracelet"))
		bracelets.PUT("/:id", controllers.HandleBraceletFunc(container, "updateBracelet"))
		bracelets.DELETE("/:id", controllers.HandleBraceletFunc(container, "unpair"))
		bracelets.GET("/:id/location", controllers.HandleBraceletFunc(container, "getLocation"))

		// Commands
		bracelets.POST("/:id/commands", controllers.HandleBraceletFunc(container, "createCommand"))
		bracelets.GET("/:id/commands", controllers.HandleBraceletFunc(container, "getCommands"))

		// Events
		bracelets.GET("/:id/events", controllers.HandleBraceletFunc(container, "getEvents"))

		// Sharing
		bracelets.POST("/:id/share", controllers.HandleSharingFunc(container, "share"))
		bracelets.DELETE("/:id/share/:guardianId", controllers.HandleSharingFunc(container, "revoke"))
		bracelets.PUT("/:id/share/:guardianId", controllers.HandleSharingFunc(container, "updateCapabilities"))
		bracelets.GET("/:id/guardians", controllers.HandleSharingFunc(container, "getGuardians"))

		// Safety zones
		bracelets.POST("/:id/zones", controllers.HandleZoneFunc(container, "createZone"))
		bracelets.GET("/:id/zones", controllers.HandleZoneFunc(container, "getZones"))
	}

	// Events
	events := authenticated.Group("/events")
	{
		events.GET("", controllers.HandleBraceletFunc(container, "getGuardianEvents"))
		events.POST("/:eventId/resolve", controllers.HandleBraceletFunc(container, "resolveEvent"))
		events.POST("/:eventId/respond", controllers.HandleBraceletFunc(container, "respondToEvent"))
	}

	// Zones
	zones := authenticated.Group("/zones")
	{
		zones.GET("/:zoneId", controllers.HandleZoneFunc(container, "getZone"))
		zones.PUT("/:zoneId", controllers.HandleZoneFunc(container, "updateZone"))
		zones.DELETE("/:zoneId", controllers.HandleZoneFunc(container, "deleteZone"))
	}

	// Invitations
	invitations := authenticated.Group("/invitations")
	{
		invitations.GET("", controllers.HandleSharingFunc(container, "getInvitations"))
		invitations.POST("/:id/accept", controllers.HandleSharingFunc(container, "acceptInvitation"))
		invitations.POST("/:id/decline", controllers.HandleSharingFunc(container, "declineInvitation"))
	}
}
