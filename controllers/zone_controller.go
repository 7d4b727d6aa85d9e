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

// ZoneController handles safety zone requests
type ZoneController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewZoneController creates a new zone controller
func NewZoneController(ctx *gin.Context, container *container.ServiceContainer) *ZoneController {
	return &ZoneController{
		Ctx:       ctx,
		Container: container,
	}
}

// ZoneRequest carries the writable fields of a safety zone
type ZoneRequest struct {
	Name          string                `json:"name" example:"École"`
	Icon          string                `json:"icon" example:"school"`
	Coordinates   models.CoordinateList `json:"coordinates"`
	NotifyOnEntry *bool                 `json:"notify_on_entry" example:"true"`
	NotifyOnExit  *bool                 `json:"notify_on_exit" example:"true"`
}

// HandleZoneFunc returns a gin handler for a zone controller method
func HandleZoneFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewZoneController(ctx, container)

		switch method {
		case "createZone":
			controller.CreateZone()
		case "getZones":
			controller.GetZones()
		case "getZone":
			controller.GetZone()
		case "updateZone":
			controller.UpdateZone()
		case "deleteZone":
			controller.DeleteZone()
		default:
			response.ParamError(ctx, "invalid method")
		}
	}
}

func (c *ZoneController) pathID(name string) (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param(name))
	if err != nil || id <= 0 {
		response.ParamError(c.Ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func (c *ZoneController) zoneInput(req ZoneRequest) services.ZoneInput {
	return services.ZoneInput{
		Name:          req.Name,
		Icon:          req.Icon,
		Coordinates:   req.Coordinates,
		NotifyOnEntry: req.NotifyOnEntry,
		NotifyOnExit:  req.NotifyOnExit,
	}
}

// CreateZone creates a safety zone on a bracelet
// @Summary Create a safety zone
// @Description Creates a polygon zone; requires the can_edit capability
// @Tags zone
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Param body body ZoneRequest true "Zone"
// @Success 201 {object} response.Response
// @Failure 422 {object} ErrorResponse
// @Router /bracelets/{id}/zones [post]
func (c *ZoneController) CreateZone() {
	braceletID, ok := c.pathID("id")
	if !ok {
		return
	}

	var req ZoneRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	zoneService := c.Container.GetService("zone").(services.InterfaceZoneService)
	zone, err := zoneService.CreateZone(middleware.GuardianID(c.Ctx), braceletID, c.zoneInput(req))
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, zone)
}

// GetZones lists the safety zones of a bracelet
// @Summary List safety zones
// @Tags zone
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/zones [get]
func (c *ZoneController) GetZones() {
	braceletID, ok := c.pathID("id")
	if !ok {
		return
	}

	zoneService := c.Container.GetService("zone").(services.InterfaceZoneService)
	zones, err := zoneService.GetZones(middleware.GuardianID(c.Ctx), braceletID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, zones)
}

// GetZone returns a single safety zone
// @Summary Get a safety zone
// @Tags zone
// @Produce json
// @Security BearerAuth
// @Param zoneId path int true "Zone ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} ErrorResponse
// @Router /zones/{zoneId} [get]
func (c *ZoneController) GetZone() {
	zoneID, ok := c.pathID("zoneId")
	if !ok {
		return
	}

	zoneService := c.Container.GetService("zone").(services.InterfaceZoneService)
	zone, err := zoneService.GetZoneByID(middleware.GuardianID(c.Ctx), zoneID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, zone)
}

// UpdateZone edits a safety zone
// @Summary Update a safety zone
// @Tags zone
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param zoneId path int true "Zone ID"
// @Param body body ZoneRequest true "Fields"
// @Success 200 {object} response.Response
// @Failure 422 {object} ErrorResponse
// @Router /zones/{zoneId} [put]
func (c *ZoneController) UpdateZone() {
	zoneID, ok := c.pathID("zoneId")
	if !ok {
		return
	}

	var req ZoneRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	zoneService := c.Container.GetService("zone").(services.InterfaceZoneService)
	zone, err := zoneService.UpdateZone(middleware.GuardianID(c.Ctx), zoneID, c.zoneInput(req))
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, zone)
}

// DeleteZone removes a safety zone
// @Summary Delete a safety zone
// @Tags zone
// @Produce json
// @Security BearerAuth
// @Param zoneId path int true "Zone ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} ErrorResponse
// @Router /zones/{zoneId} [delete]
func (c *ZoneController) DeleteZone() {
	zoneID, ok := c.pathID("zoneId")
	if !ok {
		return
	}

	zoneService := c.Container.GetService("zone").(services.InterfaceZoneService)
	if err := zoneService.DeleteZone(middleware.GuardianID(c.Ctx), zoneID); err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, nil)
}
