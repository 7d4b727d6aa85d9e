package controllers

import (
	"errors"

	"leguardian-http-service/internal/error/code"
	"leguardian-http-service/internal/error/response"
	"leguardian-http-service/services"

	"github.com/gin-gonic/gin"
)

// ErrorResponse documents the failure envelope for swagger
type ErrorResponse struct {
	Code    int         `json:"code" example:"102000"`
	Message string      `json:"message" example:"bracelet not found"`
	Data    interface{} `json:"data"`
}

// failFromError maps service errors to the numeric error taxonomy.
// Unknown errors become a generic server error so internals never leak.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBraceletNotFound):
		response.Fail(c, code.ErrBraceletNotFound, nil)
	case errors.Is(err, services.ErrAlreadyPaired):
		response.Fail(c, code.ErrBraceletAlreadyPaired, nil)
	case errors.Is(err, services.ErrBraceletForbidden):
		response.Fail(c, code.ErrShareUnauthorized, nil)
	case errors.Is(err, services.ErrCommandForbidden):
		response.Fail(c, code.ErrShareUnauthorized, nil)
	case errors.Is(err, services.ErrInvalidCommandType):
		response.Fail(c, code.ErrCommandInvalidType, nil)
	case errors.Is(err, services.ErrInvalidEventType):
		response.FailWithMessage(c, code.ErrValidation, "invalid event type", nil)
	case errors.Is(err, services.ErrEventNotFound):
		response.Fail(c, code.ErrRecordNotFound, nil)
	case errors.Is(err, services.ErrEventAlreadyResolved):
		response.Fail(c, code.ErrBraceletNotInAlert, nil)
	case errors.Is(err, services.ErrNotInAlert):
		response.Fail(c, code.ErrBraceletNotInAlert, nil)
	case errors.Is(err, services.ErrZoneNotFound):
		response.Fail(c, code.ErrZoneNotFound, nil)
	case errors.Is(err, services.ErrInvalidPolygon):
		response.Fail(c, code.ErrZoneInvalidPolygon, nil)
	case errors.Is(err, services.ErrShareUnauthorized):
		response.Fail(c, code.ErrShareUnauthorized, nil)
	case errors.Is(err, services.ErrAlreadyShared):
		response.Fail(c, code.ErrAlreadyShared, nil)
	case errors.Is(err, services.ErrSelfShare):
		response.Fail(c, code.ErrSelfShare, nil)
	case errors.Is(err, services.ErrInvitationNotFound):
		response.Fail(c, code.ErrInvitationNotFound, nil)
	case errors.Is(err, services.ErrGuardianNotFound):
		response.Fail(c, code.ErrGuardianNotFound, nil)
	case errors.Is(err, services.ErrEmailTaken):
		response.Fail(c, code.ErrGuardianAlreadyExist, nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Fail(c, code.ErrGuardianPasswordIncorrect, nil)
	default:
		response.ServerError(c)
	}
}
