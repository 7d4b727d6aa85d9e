package controllers

import (
	"leguardian-http-service/internal/error/response"
	"leguardian-http-service/middleware"
	"leguardian-http-service/services"
	"leguardian-http-service/services/container"

	"github.com/gin-gonic/gin"
)

// AuthController handles guardian account requests
type AuthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAuthController creates a new auth controller
func NewAuthController(ctx *gin.Context, container *container.ServiceContainer) *AuthController {
	return &AuthController{
		Ctx:       ctx,
		Container: container,
	}
}

// RegisterRequest is the account creation payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required" example:"Marie Dupont"`
	Email    string `json:"email" binding:"required,email" example:"marie@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"s3cret-pass"`
	Phone    string `json:"phone" example:"+33612345678"`
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"marie@example.com"`
	Password string `json:"password" binding:"required" example:"s3cret-pass"`
}

// UpdateProfileRequest is the profile edit payload
type UpdateProfileRequest struct {
	Name     string `json:"name" example:"Marie Dupont"`
	Phone    string `json:"phone" example:"+33612345678"`
	Password string `json:"password" example:"new-s3cret"`
}

// PushTokenRequest registers the phone's Expo push token
type PushTokenRequest struct {
	ExpoPushToken string `json:"expo_push_token" binding:"required" example:"ExponentPushToken[xxxxxxxxxxxx]"`
}

// HandleAuthFunc returns a gin handler for an auth controller method
func HandleAuthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAuthController(ctx, container)

		switch method {
		case "register":
			controller.Register()
		case "login":
			controller.Login()
		case "logout":
			controller.Logout()
		case "getProfile":
			controller.GetProfile()
		case "updateProfile":
			controller.UpdateProfile()
		case "updatePushToken":
			controller.UpdatePushToken()
		default:
			response.ParamError(ctx, "invalid method")
		}
	}
}

// Register creates a guardian account
// @Summary Register a guardian account
// @Description Creates a guardian account and returns an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Account details"
// @Success 201 {object} response.Response
// @Failure 400 {object} ErrorResponse
// @Router /auth/register [post]
func (c *AuthController) Register() {
	var req RegisterRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	authService := c.Container.GetService("auth").(services.InterfaceAuthService)
	guardian, token, err := authService.Register(req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, gin.H{
		"guardian": guardian,
		"token":    token,
	})
}

// Login authenticates a guardian
// @Summary Log in
// @Description Authenticates a guardian and returns an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} response.Response
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (c *AuthController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	authService := c.Container.GetService("auth").(services.InterfaceAuthService)
	guardian, token, err := authService.Login(req.Email, req.Password)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"guardian": guardian,
		"token":    token,
	})
}

// Logout ends the session. Tokens are stateless, so the server has
// nothing to invalidate; the client discards its token.
// @Summary Log out
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (c *AuthController) Logout() {
	response.Success(c.Ctx, nil)
}

// GetProfile returns the authenticated guardian's profile
// @Summary Get profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} ErrorResponse
// @Router /auth/profile [get]
func (c *AuthController) GetProfile() {
	authService := c.Container.GetService("auth").(services.InterfaceAuthService)
	guardian, err := authService.GetProfile(middleware.GuardianID(c.Ctx))
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, guardian)
}

// UpdateProfile edits the authenticated guardian's profile
// @Summary Update profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Response
// @Failure 401 {object} ErrorResponse
// @Router /auth/profile [put]
func (c *AuthController) UpdateProfile() {
	var req UpdateProfileRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	authService := c.Container.GetService("auth").(services.InterfaceAuthService)
	guardian, err := authService.UpdateProfile(middleware.GuardianID(c.Ctx), map[string]interface{}{
		"name":     req.Name,
		"phone":    req.Phone,
		"password": req.Password,
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, guardian)
}

// UpdatePushToken stores the phone's push token
// @Summary Register push token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PushTokenRequest true "Expo push token"
// @Success 200 {object} response.Response
// @Failure 401 {object} ErrorResponse
// @Router /auth/push-token [put]
func (c *AuthController) UpdatePushToken() {
	var req PushTokenRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err.Error())
		return
	}

	authService := c.Container.GetService("auth").(services.InterfaceAuthService)
	if err := authService.UpdatePushToken(middleware.GuardianID(c.Ctx), req.ExpoPushToken); err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, nil)
}
