package controllers

import (
	"strconv"

	"leguardian-http-service/internal/error/response"
	"leguardian-http-service/middleware"
	"leguardian-http-service/models"
	"leguardian-http-service/services"
	"leguardian-http-service/services/container"

	"github.com/gin-gonic/gin"
)

// BraceletController handles guardian-facing bracelet requests
type BraceletController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewBraceletController creates a new bracelet controller
func NewBraceletController(ctx *gin.Context, container *container.ServiceContainer) *BraceletController {
	return &BraceletController{
		Ctx:       ctx,
		Container: container,
	}
}

// PairRequest claims a bracelet by its printed code
type PairRequest struct {
	UniqueCode string `json:"unique_code" binding:"required" example:"LG-XK7M-P2QA"`
	Alias      string `json:"alias" example:"Emma"`
}

// UpdateBraceletRequest edits bracelet profile fields
type UpdateBraceletRequest struct {
	Alias string `json:"alias" example:"Emma"`
	Name  string `json:"name" example:"Bracelet d'Emma"`
}

// CreateCommandRequest queues a command for the device
type CreateCommandRequest struct {
	CommandType     string `json:"command_type" binding:"required" example:"vibrate_short"`
	LEDColor        string `json:"led_color" example:"blue"`
	LEDPattern      string `json:"led_pattern" example:"solid"`
	FirmwareURL     string `json:"firmware_url" example:""`
	FirmwareVersion string `json:"firmware_version" example:"1.5.0"`
	GPSInterval     int    `json:"gps_interval" example:"60"`
}

// HandleBraceletFunc returns a gin handler for a bracelet controller method
func HandleBraceletFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewBraceletController(ctx, container)

		switch method {
		case "pair":
			controller.Pair()
		case "getBracelets":
			controller.GetBracelets()
		case "getAvailable":
			controller.GetAvailableBracelets()
		case "getBracelet":
			controller.GetBracelet()
		case "updateBracelet":
			controller.UpdateBracelet()
		case "unpair":
			controller.Unpair()
		case "getLocation":
			controller.GetLocation()
		case "createCommand":
			controller.CreateCommand()
		case "getCommands":
			controller.GetCommands()
		case "getEvents":
			controller.GetEvents()
		case "getGuardianEvents":
			controller.GetGuardianEvents()
		case "resolveEvent":
			controller.ResolveEvent()
		case "respondToEvent":
			controller.RespondToEvent()
		default:
			response.ParamError(ctx, "invalid method")
		}
	}
}

// braceletID parses the :id path parameter
func (c *BraceletController) braceletID() (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param("id"))
	if err != nil || id <= 0 {
		response.ParamError(c.Ctx, "invalid bracelet ID")
		return 0, false
	}
	return uint(id), true
}

// Pair claims an unpaired bracelet
// @Summary Pair a bracelet
// @Description Claims a bracelet by its printed code; the caller becomes the owner
// @Tags bracelet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PairRequest true "Pairing details"
// @Success 201 {object} response.Response
// @Failure 422 {object} ErrorResponse
// @Router /bracelets/pair [post]
func (c *BraceletController) Pair() {
	var req PairRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	braceletService := c.Container.GetService("bracelet").(services.InterfaceBraceletService)
	bracelet, err := braceletService.PairBracelet(middleware.GuardianID(c.Ctx), req.UniqueCode, req.Alias)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, bracelet)
}

// GetBracelets lists the caller's bracelets
// @Summary List bracelets
// @Tags bracelet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /bracelets [get]
func (c *BraceletController) GetBracelets() {
	braceletService := c.Container.GetService("bracelet").(services.InterfaceBraceletService)
	links, err := braceletService.GetBracelets(middleware.GuardianID(c.Ctx))
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, links)
}

// GetAvailableBracelets lists unpaired bracelets for the pairing screen
// @Summary List available bracelets
// @Tags bracelet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /bracelets/available [get]
func (c *BraceletController) GetAvailableBracelets() {
	braceletService := c.Container.GetService("bracelet").(services.InterfaceBraceletService)
	bracelets, err := braceletService.GetAvailableBracelets()
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, bracelets)
}

// GetBracelet returns one bracelet with the caller's capabilities
// @Summary Get a bracelet
// @Tags bracelet
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id} [get]
func (c *BraceletController) GetBracelet() {
	braceletID, ok := c.braceletID()
	if !ok {
		return
	}

	braceletService := c.Container.GetService("bracelet").(services.InterfaceBraceletService)
	bracelet, link, err := braceletService.GetBracelet(middleware.GuardianID(c.Ctx), braceletID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"bracelet": bracelet,
		"role":     link.Role,
		"capabilities": gin.H{
			"can_edit":          link.CanEdit,
			"can_view_location": link.CanViewLocation,
			"can_view_events":   link.CanViewEvents,
			"can_send_commands": link.CanSendCommands,
		},
	})
}

// UpdateBracelet edits bracelet profile fields
// @Summary Update a bracelet
// @Tags bracelet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Param body body UpdateBraceletRequest true "Fields"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id} [put]
func (c *BraceletController) UpdateBracelet() {
	braceletID, ok := c.braceletID()
	if !ok {
		return
	}

	var req UpdateBraceletRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	braceletService := c.Container.GetService("bracelet").(services.InterfaceBraceletService)
	bracelet, err := braceletService.UpdateBracelet(middleware.GuardianID(c.Ctx), braceletID, map[string]interface{}{
		"alias": req.Alias,
		"name":  req.Name,
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, bracelet)
}

// Unpair releases a bracelet back to its factory state
// @Summary Unpair a bracelet
// @Tags bracelet
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id} [delete]
func (c *BraceletController) Unpair() {
	braceletID, ok := c.braceletID()
	if !ok {
		return
	}

	braceletService := c.Container.GetService("bracelet").(services.InterfaceBraceletService)
	if err := braceletService.UnpairBracelet(middleware.GuardianID(c.Ctx), braceletID); err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, nil)
}

// GetLocation returns the last known position
// @Summary Get bracelet location
// @Tags bracelet
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/location [get]
func (c *BraceletController) GetLocation() {
	braceletID, ok := c.braceletID()
	if !ok {
		return
	}

	braceletService := c.Container.GetService("bracelet").(services.InterfaceBraceletService)
	location, err := braceletService.GetLocation(middleware.GuardianID(c.Ctx), braceletID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, location)
}

// CreateCommand queues a command for the device
// @Summary Send a command
// @Description Queues a command; delivery is attempted over MQTT immediately
// @Tags command
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Param body body CreateCommandRequest true "Command"
// @Success 201 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/commands [post]
func (c *BraceletController) CreateCommand() {
	braceletID, ok := c.braceletID()
	if !ok {
		return
	}

	var req CreateCommandRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	commandService := c.Container.GetService("command").(services.InterfaceCommandService)
	cmd, err := commandService.CreateCommand(
		middleware.GuardianID(c.Ctx),
		braceletID,
		models.CommandType(req.CommandType),
		services.CommandParams{
			LEDColor:        req.LEDColor,
			LEDPattern:      req.LEDPattern,
			FirmwareURL:     req.FirmwareURL,
			FirmwareVersion: req.FirmwareVersion,
			GPSInterval:     req.GPSInterval,
		},
	)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, cmd)
}

// GetCommands lists the command history
// @Summary List commands
// @Tags command
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/commands [get]
func (c *BraceletController) GetCommands() {
	braceletID, ok := c.braceletID()
	if !ok {
		return
	}

	var pagination models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&pagination); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	commandService := c.Container.GetService("command").(services.InterfaceCommandService)
	commands, result, err := commandService.GetCommandsByBracelet(middleware.GuardianID(c.Ctx), braceletID, &pagination)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"commands":   commands,
		"pagination": result,
	})
}

// GetEvents lists the event history
// @Summary List events
// @Tags event
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Param event_type query string false "Filter by event type"
// @Param resolved query bool false "Filter by resolution state"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/events [get]
func (c *BraceletController) GetEvents() {
	braceletID, ok := c.braceletID()
	if !ok {
		return
	}

	var filter services.EventFilter
	if err := c.Ctx.ShouldBindQuery(&filter); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}
	var pagination models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&pagination); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	eventService := c.Container.GetService("event").(services.InterfaceEventService)
	events, result, err := eventService.GetEventsByBracelet(middleware.GuardianID(c.Ctx), braceletID, filter, &pagination)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"events":     events,
		"pagination": result,
	})
}

// GetGuardianEvents lists events across every bracelet the caller may see
// @Summary List events across all bracelets
// @Tags event
// @Produce json
// @Security BearerAuth
// @Param unresolved query bool false "Only unresolved events"
// @Success 200 {object} response.Response
// @Router /events [get]
func (c *BraceletController) GetGuardianEvents() {
	unresolvedOnly := c.Ctx.Query("unresolved") == "true"

	var pagination models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&pagination); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	eventService := c.Container.GetService("event").(services.InterfaceEventService)
	events, result, err := eventService.GetGuardianEvents(middleware.GuardianID(c.Ctx), unresolvedOnly, &pagination)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"events":     events,
		"pagination": result,
	})
}

// eventID parses the :eventId path parameter
func (c *BraceletController) eventID() (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param("eventId"))
	if err != nil || id <= 0 {
		response.ParamError(c.Ctx, "invalid event ID")
		return 0, false
	}
	return uint(id), true
}

// ResolveEvent marks an alert as handled
// @Summary Resolve an event
// @Tags event
// @Produce json
// @Security BearerAuth
// @Param eventId path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /events/{eventId}/resolve [post]
func (c *BraceletController) ResolveEvent() {
	eventID, ok := c.eventID()
	if !ok {
		return
	}

	eventService := c.Container.GetService("event").(services.InterfaceEventService)
	event, err := eventService.ResolveEvent(middleware.GuardianID(c.Ctx), eventID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, event)
}

// RespondToEvent resolves an alert and reassures the child through the device
// @Summary Respond to an event
// @Description Resolves the alert and queues a short vibration plus a fast blue LED blink
// @Tags event
// @Produce json
// @Security BearerAuth
// @Param eventId path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /events/{eventId}/respond [post]
func (c *BraceletController) RespondToEvent() {
	eventID, ok := c.eventID()
	if !ok {
		return
	}

	eventService := c.Container.GetService("event").(services.InterfaceEventService)
	event, commands, err := eventService.RespondToEvent(middleware.GuardianID(c.Ctx), eventID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"event":    event,
		"commands": commands,
	})
}
