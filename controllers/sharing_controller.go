package controllers

import (
	"strconv"

	"leguardian-http-service/internal/error/response"
	"leguardian-http-service/middleware"
	"leguardian-http-service/services"
	"leguardian-http-service/services/container"

	"github.com/gin-gonic/gin"
)

// SharingController handles bracelet sharing requests
type SharingController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewSharingController creates a new sharing controller
func NewSharingController(ctx *gin.Context, container *container.ServiceContainer) *SharingController {
	return &SharingController{
		Ctx:       ctx,
		Container: container,
	}
}

// ShareRequest invites another guardian by email
type ShareRequest struct {
	Email           string `json:"email" binding:"required,email" example:"paul@example.com"`
	CanEdit         bool   `json:"can_edit" example:"false"`
	CanViewLocation bool   `json:"can_view_location" example:"true"`
	CanViewEvents   bool   `json:"can_view_events" example:"true"`
	CanSendCommands bool   `json:"can_send_commands" example:"false"`
}

// CapabilitiesRequest adjusts a shared guardian's capabilities
type CapabilitiesRequest struct {
	CanEdit         bool `json:"can_edit" example:"false"`
	CanViewLocation bool `json:"can_view_location" example:"true"`
	CanViewEvents   bool `json:"can_view_events" example:"true"`
	CanSendCommands bool `json:"can_send_commands" example:"false"`
}

// HandleSharingFunc returns a gin handler for a sharing controller method
func HandleSharingFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewSharingController(ctx, container)

		switch method {
		case "share":
			controller.Share()
		case "getInvitations":
			controller.GetInvitations()
		case "acceptInvitation":
			controller.AcceptInvitation()
		case "declineInvitation":
			controller.DeclineInvitation()
		case "revoke":
			controller.Revoke()
		case "updateCapabilities":
			controller.UpdateCapabilities()
		case "getGuardians":
			controller.GetGuardians()
		default:
			response.ParamError(ctx, "invalid method")
		}
	}
}

func (c *SharingController) pathID(name string) (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param(name))
	if err != nil || id <= 0 {
		response.ParamError(c.Ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// Share invites another guardian to a bracelet
// @Summary Share a bracelet
// @Description Invites a guardian by email; the share stays pending until accepted
// @Tags sharing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Param body body ShareRequest true "Invitation"
// @Success 201 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /bracelets/{id}/share [post]
func (c *SharingController) Share() {
	braceletID, ok := c.pathID("id")
	if !ok {
		return
	}

	var req ShareRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	sharingService := c.Container.GetService("sharing").(services.InterfaceSharingService)
	link, err := sharingService.ShareBracelet(middleware.GuardianID(c.Ctx), braceletID, req.Email, services.CapabilityFlags{
		CanEdit:         req.CanEdit,
		CanViewLocation: req.CanViewLocation,
		CanViewEvents:   req.CanViewEvents,
		CanSendCommands: req.CanSendCommands,
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, link)
}

// GetInvitations lists the caller's pending invitations
// @Summary List pending invitations
// @Tags sharing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /invitations [get]
func (c *SharingController) GetInvitations() {
	sharingService := c.Container.GetService("sharing").(services.InterfaceSharingService)
	invitations, err := sharingService.GetPendingInvitations(middleware.GuardianID(c.Ctx))
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, invitations)
}

// AcceptInvitation accepts a pending invitation
// @Summary Accept an invitation
// @Tags sharing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invitation ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} ErrorResponse
// @Router /invitations/{id}/accept [post]
func (c *SharingController) AcceptInvitation() {
	invitationID, ok := c.pathID("id")
	if !ok {
		return
	}

	sharingService := c.Container.GetService("sharing").(services.InterfaceSharingService)
	link, err := sharingService.AcceptInvitation(middleware.GuardianID(c.Ctx), invitationID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, link)
}

// DeclineInvitation declines a pending invitation
// @Summary Decline an invitation
// @Tags sharing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invitation ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} ErrorResponse
// @Router /invitations/{id}/decline [post]
func (c *SharingController) DeclineInvitation() {
	invitationID, ok := c.pathID("id")
	if !ok {
		return
	}

	sharingService := c.Container.GetService("sharing").(services.InterfaceSharingService)
	if err := sharingService.DeclineInvitation(middleware.GuardianID(c.Ctx), invitationID); err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, nil)
}

// Revoke removes a shared guardian from a bracelet
// @Summary Revoke a share
// @Tags sharing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Param guardianId path int true "Guardian ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/share/{guardianId} [delete]
func (c *SharingController) Revoke() {
	braceletID, ok := c.pathID("id")
	if !ok {
		return
	}
	guardianID, ok := c.pathID("guardianId")
	if !ok {
		return
	}

	sharingService := c.Container.GetService("sharing").(services.InterfaceSharingService)
	if err := sharingService.RevokeShare(middleware.GuardianID(c.Ctx), braceletID, guardianID); err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, nil)
}

// UpdateCapabilities adjusts a shared guardian's capabilities
// @Summary Update share capabilities
// @Tags sharing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Param guardianId path int true "Guardian ID"
// @Param body body CapabilitiesRequest true "Capabilities"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/share/{guardianId} [put]
func (c *SharingController) UpdateCapabilities() {
	braceletID, ok := c.pathID("id")
	if !ok {
		return
	}
	guardianID, ok := c.pathID("guardianId")
	if !ok {
		return
	}

	var req CapabilitiesRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	sharingService := c.Container.GetService("sharing").(services.InterfaceSharingService)
	link, err := sharingService.UpdateCapabilities(middleware.GuardianID(c.Ctx), braceletID, guardianID, services.CapabilityFlags{
		CanEdit:         req.CanEdit,
		CanViewLocation: req.CanViewLocation,
		CanViewEvents:   req.CanViewEvents,
		CanSendCommands: req.CanSendCommands,
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, link)
}

// GetGuardians lists every guardian of a bracelet
// @Summary List bracelet guardians
// @Tags sharing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bracelet ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} ErrorResponse
// @Router /bracelets/{id}/guardians [get]
func (c *SharingController) GetGuardians() {
	braceletID, ok := c.pathID("id")
	if !ok {
		return
	}

	sharingService := c.Container.GetService("sharing").(services.InterfaceSharingService)
	links, err := sharingService.GetBraceletGuardians(middleware.GuardianID(c.Ctx), braceletID)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, links)
}
