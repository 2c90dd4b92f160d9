package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/auditflow/auditflow/internal/auth"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/gin-gonic/gin"
)

// Authentication errors
var (
	ErrAuthHeaderMissing = errors.New("authorization header is required")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrTokenVerification = errors.New("failed to verify token")
)

// AuthMiddleware provides JWT authentication for routes
type AuthMiddleware struct {
	authService auth.Service
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuthentication ensures that the request carries a valid JWT token
func (m *AuthMiddleware) RequireAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenDetails, err := m.extractAndValidateToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			c.Abort()
			return
		}

		c.Set("userID", tokenDetails.UserID)
		c.Set("userRoles", tokenDetails.Roles)
		c.Set("tokenDetails", tokenDetails)

		c.Next()
	}
}

// RequireRole ensures that the user has at least one of the required roles
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctxRoles, exists := c.Get("userRoles")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			c.Abort()
			return
		}

		userRoles, ok := ctxRoles.([]string)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "invalid role format in token",
			})
			c.Abort()
			return
		}

		for _, userRole := range userRoles {
			for _, requiredRole := range roles {
				if userRole == requiredRole {
					c.Next()
					return
				}
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("access denied: requires one of these roles: %s", strings.Join(roles, ", ")),
		})
		c.Abort()
	}
}

// RequireAdmin ensures that the user has the admin role
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(string(models.RoleAdmin))
}

// extractAndValidateToken extracts the JWT token from the Authorization header and validates it
func (m *AuthMiddleware) extractAndValidateToken(c *gin.Context) (*auth.TokenDetails, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, ErrAuthHeaderMissing
	}

	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" {
		return nil, ErrInvalidAuthHeader
	}
	tokenString := headerParts[1]

	tokenDetails, err := m.authService.Verify(c.Request.Context(), tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerification, err)
	}

	return tokenDetails, nil
}

// GetUserID extracts the user ID from the request context
func GetUserID(c *gin.Context) (uint, error) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, errors.New("user ID not found in context")
	}

	userID, ok := value.(uint)
	if !ok {
		return 0, errors.New("user ID in context has invalid type")
	}

	return userID, nil
}

// GetUserRoles extracts the user roles from the request context
func GetUserRoles(c *gin.Context) ([]string, error) {
	value, exists := c.Get("userRoles")
	if !exists {
		return nil, errors.New("user roles not found in context")
	}

	roles, ok := value.([]string)
	if !ok {
		return nil, errors.New("user roles in context have invalid type")
	}

	return roles, nil
}

// GetTokenDetails extracts the token details from the request context
func GetTokenDetails(c *gin.Context) (*auth.TokenDetails, error) {
	value, exists := c.Get("tokenDetails")
	if !exists {
		return nil, errors.New("token details not found in context")
	}

	tokenDetails, ok := value.(*auth.TokenDetails)
	if !ok {
		return nil, errors.New("token details in context have invalid type")
	}

	return tokenDetails, nil
}

// HasRole checks if the user has a specific role
func HasRole(c *gin.Context, role string) (bool, error) {
	roles, err := GetUserRoles(c)
	if err != nil {
		return false, err
	}

	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}

	return false, nil
}

// IsAdmin checks if the user is an admin
func IsAdmin(c *gin.Context) (bool, error) {
	return HasRole(c, string(models.RoleAdmin))
}
