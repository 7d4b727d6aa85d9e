package controllers

import (
	"errors"
	"io"
	"strconv"

	"leguardian-http-service/config"
	"leguardian-http-service/internal/error/code"
	"leguardian-http-service/internal/error/response"
	"leguardian-http-service/models"
	"leguardian-http-service/services"
	"leguardian-http-service/services/container"

	"github.com/gin-gonic/gin"
)

// braceletIDHeader carries the device's unique code on every device request
const braceletIDHeader = "X-Bracelet-ID"

// DeviceController handles the HTTP side of the device protocol. These
// endpoints are authenticated by the bracelet code header, not by a
// guardian token.
type DeviceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDeviceController creates a new device controller
func NewDeviceController(ctx *gin.Context, container *container.ServiceContainer) *DeviceController {
	return &DeviceController{
		Ctx:       ctx,
		Container: container,
	}
}

// HeartbeatRequest is the periodic telemetry payload
type HeartbeatRequest struct {
	BatteryLevel    int      `json:"battery_level" binding:"min=0,max=100" example:"85"`
	Latitude        *float64 `json:"latitude" example:"48.8566"`
	Longitude       *float64 `json:"longitude" example:"2.3522"`
	Accuracy        *int     `json:"accuracy" example:"12"`
	FirmwareVersion string   `json:"firmware_version" example:"1.4.2"`
}

// DeviceEventRequest is a device-reported event payload
type DeviceEventRequest struct {
	EventType    string                 `json:"event_type" binding:"required" example:"danger"`
	Latitude     *float64               `json:"latitude" example:"48.8566"`
	Longitude    *float64               `json:"longitude" example:"2.3522"`
	Accuracy     *int                   `json:"accuracy" example:"12"`
	BatteryLevel *int                   `json:"battery_level" example:"85"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ButtonEventRequest is the payload of the named button endpoints. The
// event type is fixed by the route, so only the telemetry is carried and
// the whole body may be omitted.
type ButtonEventRequest struct {
	Latitude     *float64               `json:"latitude" example:"48.8566"`
	Longitude    *float64               `json:"longitude" example:"2.3522"`
	Accuracy     *int                   `json:"accuracy" example:"12"`
	BatteryLevel *int                   `json:"battery_level" example:"85"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// CommandAckRequest is the device's execution result payload
type CommandAckRequest struct {
	Status string `json:"status" binding:"required,oneof=executed failed" example:"executed"`
	Error  string `json:"error" example:""`
}

// HandleDeviceFunc returns a gin handler for a device controller method
func HandleDeviceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDeviceController(ctx, container)

		switch method {
		case "register":
			controller.Register()
		case "heartbeat":
			controller.Heartbeat()
		case "reportEvent":
			controller.ReportEvent()
		case "buttonArrived":
			controller.ButtonArrived()
		case "buttonLost":
			controller.ButtonLost()
		case "buttonDanger":
			controller.ButtonDanger()
		case "dangerUpdate":
			controller.DangerUpdate()
		case "pollCommand":
			controller.PollCommand()
		case "ackCommand":
			controller.AckCommand()
		case "checkAssociation":
			controller.CheckAssociation()
		case "resetStatus":
			controller.ResetStatus()
		default:
			response.ParamError(ctx, "invalid method")
		}
	}
}

// braceletCode reads the device identity header, failing the request
// when it is missing
func (c *DeviceController) braceletCode() (string, bool) {
	braceletCode := c.Ctx.GetHeader(braceletIDHeader)
	if braceletCode == "" {
		response.FailWithMessage(c.Ctx, code.ErrBind, "missing X-Bracelet-ID header", nil)
		return "", false
	}
	return braceletCode, true
}

// Heartbeat processes periodic device telemetry
// @Summary Device heartbeat
// @Description Updates the bracelet snapshot and evaluates safety zones
// @Tags device
// @Accept json
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Param body body HeartbeatRequest true "Telemetry"
// @Success 200 {object} response.Response
// @Failure 400 {object} ErrorResponse
// @Router /device/heartbeat [post]
func (c *DeviceController) Heartbeat() {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	var req HeartbeatRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	bracelet, transitions, err := deviceService.ProcessHeartbeat(braceletCode, services.HeartbeatInput{
		BatteryLevel:    req.BatteryLevel,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Accuracy:        req.Accuracy,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	cfg := c.Container.GetService("config").(*config.Config)
	response.Success(c.Ctx, gin.H{
		"status":             bracelet.Status,
		"emergency_mode":     bracelet.EmergencyMode,
		"zone_transitions":   len(transitions),
		"heartbeat_interval": cfg.HeartbeatInterval,
	})
}

// Register announces a device to the backend. First contact creates the
// bracelet record; later calls are idempotent and return the current state.
// @Summary Register a device
// @Tags device
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Success 200 {object} response.Response
// @Failure 400 {object} ErrorResponse
// @Router /device/register [post]
func (c *DeviceController) Register() {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	bracelet, err := deviceService.ResolveByCode(braceletCode)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	cfg := c.Container.GetService("config").(*config.Config)
	response.Success(c.Ctx, gin.H{
		"bracelet":           bracelet,
		"is_paired":          bracelet.IsPaired,
		"heartbeat_interval": cfg.HeartbeatInterval,
	})
}

// ReportEvent records a device-reported event
// @Summary Report a device event
// @Description Records an event such as danger, lost or arrived
// @Tags device
// @Accept json
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Param body body DeviceEventRequest true "Event"
// @Success 201 {object} response.Response
// @Failure 400 {object} ErrorResponse
// @Router /device/events [post]
func (c *DeviceController) ReportEvent() {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	var req DeviceEventRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	event, err := deviceService.ProcessEvent(braceletCode, services.EventInput{
		EventType:    models.EventType(req.EventType),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Accuracy:     req.Accuracy,
		BatteryLevel: req.BatteryLevel,
		Metadata:     models.JSONMap(req.Metadata),
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, event)
}

// reportTypedEvent records an event whose type is fixed by the route.
// Firmware posts these endpoints with an empty body when it has no fix,
// so a missing body is accepted.
func (c *DeviceController) reportTypedEvent(eventType models.EventType, extra map[string]interface{}) {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	var req ButtonEventRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	metadata := req.Metadata
	for key, value := range extra {
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata[key] = value
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	event, err := deviceService.ProcessEvent(braceletCode, services.EventInput{
		EventType:    eventType,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Accuracy:     req.Accuracy,
		BatteryLevel: req.BatteryLevel,
		Metadata:     models.JSONMap(metadata),
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, event)
}

// ButtonArrived records an arrived button press
// @Summary Report the arrived button
// @Tags device
// @Accept json
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Param body body ButtonEventRequest false "Telemetry"
// @Success 201 {object} response.Response
// @Router /device/button/arrived [post]
func (c *DeviceController) ButtonArrived() {
	c.reportTypedEvent(models.EventArrived, nil)
}

// ButtonLost records a lost button press
// @Summary Report the lost button
// @Tags device
// @Accept json
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Param body body ButtonEventRequest false "Telemetry"
// @Success 201 {object} response.Response
// @Router /device/button/lost [post]
func (c *DeviceController) ButtonLost() {
	c.reportTypedEvent(models.EventLost, nil)
}

// ButtonDanger records a danger button press
// @Summary Report the danger button
// @Tags device
// @Accept json
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Param body body ButtonEventRequest false "Telemetry"
// @Success 201 {object} response.Response
// @Router /device/button/danger [post]
func (c *DeviceController) ButtonDanger() {
	c.reportTypedEvent(models.EventDanger, nil)
}

// DangerUpdate records a follow-up position while a danger alert is open
// @Summary Report a danger position update
// @Tags device
// @Accept json
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Param body body ButtonEventRequest false "Telemetry"
// @Success 201 {object} response.Response
// @Router /device/danger/update [post]
func (c *DeviceController) DangerUpdate() {
	c.reportTypedEvent(models.EventDanger, map[string]interface{}{"update": true})
}

// PollCommand hands the oldest pending command to the device
// @Summary Poll for a pending command
// @Description Returns the oldest pending command, or an empty payload when the queue is drained
// @Tags device
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Success 200 {object} response.Response
// @Failure 400 {object} ErrorResponse
// @Router /device/commands/poll [get]
func (c *DeviceController) PollCommand() {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	bracelet, err := deviceService.ResolveByCode(braceletCode)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	commandService := c.Container.GetService("command").(services.InterfaceCommandService)
	cmd, err := commandService.PollPending(bracelet.ID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	if cmd == nil {
		response.Success(c.Ctx, nil)
		return
	}

	response.Success(c.Ctx, commandService.BuildPayload(cmd))
}

// AckCommand records a command execution result
// @Summary Acknowledge a command
// @Description Records the execution result of a delivered command
// @Tags device
// @Accept json
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Param id path int true "Command ID"
// @Param body body CommandAckRequest true "Result"
// @Success 200 {object} response.Response
// @Failure 404 {object} ErrorResponse
// @Router /device/commands/{id}/ack [post]
func (c *DeviceController) AckCommand() {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	commandID, err := strconv.Atoi(c.Ctx.Param("id"))
	if err != nil {
		response.ParamError(c.Ctx, "invalid command ID")
		return
	}

	var req CommandAckRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	bracelet, err := deviceService.ResolveByCode(braceletCode)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	commandService := c.Container.GetService("command").(services.InterfaceCommandService)
	cmd, err := commandService.Acknowledge(bracelet.ID, uint(commandID), req.Status == "executed", req.Error)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	// Unknown ids were discarded; the device has nothing to retry
	response.Success(c.Ctx, cmd)
}

// CheckAssociation reports whether the bracelet is paired
// @Summary Check pairing state
// @Tags device
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Success 200 {object} response.Response
// @Router /device/association [get]
func (c *DeviceController) CheckAssociation() {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	paired, bracelet, err := deviceService.CheckAssociation(braceletCode)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"is_paired": paired,
		"status":    bracelet.Status,
	})
}

// ResetStatus returns the bracelet to active after a device-side reset
// @Summary Reset bracelet status
// @Tags device
// @Produce json
// @Param X-Bracelet-ID header string true "Bracelet unique code"
// @Success 200 {object} response.Response
// @Router /device/reset [post]
func (c *DeviceController) ResetStatus() {
	braceletCode, ok := c.braceletCode()
	if !ok {
		return
	}

	deviceService := c.Container.GetService("device").(services.InterfaceDeviceService)
	bracelet, err := deviceService.ResetStatus(braceletCode)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"status":         bracelet.Status,
		"emergency_mode": bracelet.EmergencyMode,
	})
}
