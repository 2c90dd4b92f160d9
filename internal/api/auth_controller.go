package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/auditflow/auditflow/internal/auth"
	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/middleware"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/auditflow/auditflow/internal/utils"
)

// AuthController handles authentication endpoints
type AuthController struct {
	authService auth.Service
	users       repositories.UserRepository
	logger      *logrus.Logger
}

// NewAuthController creates an authentication controller
func NewAuthController(authService auth.Service, users repositories.UserRepository, logger *logrus.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		users:       users,
		logger:      logger,
	}
}

// Login handles POST /auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	pair, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserDisabled) {
			utils.Unauthorized(c, "invalid email or password")
			return
		}
		ctrl.logger.WithError(err).Error("Login failed")
		utils.InternalServerError(c, "failed to log in")
		return
	}

	utils.SuccessResponse(c, models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}

// Register handles POST /auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	user := &models.User{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: req.Password,
		Name:     req.Name,
	}

	pair, err := ctrl.authService.Register(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			utils.Conflict(c, "email address is already registered")
			return
		}
		ctrl.logger.WithError(err).Error("Registration failed")
		utils.InternalServerError(c, "failed to register")
		return
	}

	utils.CreatedResponse(c, models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}

// Refresh handles POST /auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	pair, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.Unauthorized(c, "invalid or expired refresh token")
		return
	}

	utils.SuccessResponse(c, models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}

// Logout handles POST /auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		utils.Unauthorized(c, "invalid authorization header")
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), parts[1]); err != nil {
		ctrl.logger.WithError(err).Warn("Logout failed")
		utils.InternalServerError(c, "failed to log out")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "logged out"})
}

// GetCurrentUser handles GET /user/me
func (ctrl *AuthController) GetCurrentUser(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	user, err := ctrl.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "user not found")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to load user")
		utils.InternalServerError(c, "failed to load user")
		return
	}

	utils.SuccessResponse(c, models.NewUserResponse(user))
}
