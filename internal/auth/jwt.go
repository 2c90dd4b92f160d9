package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/auditflow/auditflow/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JWT error definitions
var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrExpiredToken         = errors.New("token has expired")
	ErrTokenNotYetValid     = errors.New("token not yet valid")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	ErrInvalidClaims        = errors.New("invalid token claims")
	ErrMissingKey           = errors.New("signing key is missing")
	ErrInvalidAudience      = errors.New("invalid token audience")
	ErrInvalidIssuer        = errors.New("invalid token issuer")
	ErrInvalidUserID        = errors.New("invalid user ID in token")
	ErrNotRefreshToken      = errors.New("token is not a refresh token")
)

// JWTConfig contains configuration for JWT token generation and validation
type JWTConfig struct {
	// Secret signs both access and refresh tokens; the refresh claim
	// distinguishes them
	Secret string

	// AccessTokenTTL is the lifetime of an access token
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of a refresh token
	RefreshTokenTTL time.Duration

	// Issuer identifies the principal that issued the JWT
	Issuer string

	// Audience identifies the recipients that the JWT is intended for
	Audience []string
}

// DefaultJWTConfig returns the default JWT configuration
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "auditflow",
		Audience:        []string{"auditflow-api"},
	}
}

// CustomClaims defines the custom claims for JWT tokens
type CustomClaims struct {
	UserID    uint     `json:"uid"`
	Roles     []string `json:"roles"`
	TokenUUID string   `json:"tid"`
	IsRefresh bool     `json:"refresh"`
	jwt.RegisteredClaims
}

// JWTService implements JWT operations for authentication
type JWTService struct {
	Config JWTConfig
	log    *logrus.Logger
}

// NewJWTService creates a new JWT service with the provided configuration
func NewJWTService(config JWTConfig, log *logrus.Logger) *JWTService {
	if config.Secret == "" {
		log.Warn("JWT secret is empty in config, token operations will fail")
	}
	if config.AccessTokenTTL <= 0 {
		config.AccessTokenTTL = DefaultJWTConfig().AccessTokenTTL
	}
	if config.RefreshTokenTTL <= 0 {
		config.RefreshTokenTTL = DefaultJWTConfig().RefreshTokenTTL
	}
	return &JWTService{
		Config: config,
		log:    log,
	}
}

// GenerateTokenPair generates a new access/refresh token pair for a user
func (s *JWTService) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	if s.Config.Secret == "" {
		return nil, ErrMissingKey
	}

	roles := user.GetRoleNames()

	accessToken, _, accessExpiresAt, err := s.generateToken(user.ID, roles, false)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, _, _, err := s.generateToken(user.ID, roles, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiresAt,
	}, nil
}

// generateToken creates a signed token of the requested kind
func (s *JWTService) generateToken(userID uint, roles []string, isRefresh bool) (string, string, time.Time, error) {
	tokenUUID := uuid.New().String()

	ttl := s.Config.AccessTokenTTL
	if isRefresh {
		ttl = s.Config.RefreshTokenTTL
	}

	issuedAt := time.Now()
	expiresAt := issuedAt.Add(ttl)

	claims := CustomClaims{
		UserID:    userID,
		Roles:     roles,
		TokenUUID: tokenUUID,
		IsRefresh: isRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			Issuer:    s.Config.Issuer,
			Audience:  s.Config.Audience,
			ID:        tokenUUID,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.Config.Secret))
	if err != nil {
		return "", "", time.Time{}, err
	}

	return tokenString, tokenUUID, expiresAt, nil
}

// ExtractTokenDetails validates a token and extracts its details
func (s *JWTService) ExtractTokenDetails(tokenString string, isRefresh bool) (*TokenDetails, error) {
	if s.Config.Secret == "" {
		return nil, ErrMissingKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return []byte(s.Config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		s.log.WithError(err).Debug("Token parsing failed")
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if err := s.validateClaims(claims, isRefresh); err != nil {
		return nil, err
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return nil, ErrInvalidClaims
	}
	issuedAt, err := claims.GetIssuedAt()
	if err != nil || issuedAt == nil {
		return nil, ErrInvalidClaims
	}

	return &TokenDetails{
		TokenUUID: claims.TokenUUID,
		UserID:    claims.UserID,
		Roles:     claims.Roles,
		ExpiresAt: expiresAt.Time,
		IssuedAt:  issuedAt.Time,
		Issuer:    claims.Issuer,
		Subject:   claims.Subject,
		Audience:  claims.Audience,
		IsRefresh: claims.IsRefresh,
	}, nil
}

// validateClaims validates token claims based on configuration
func (s *JWTService) validateClaims(claims *CustomClaims, isRefresh bool) error {
	if isRefresh && !claims.IsRefresh {
		return ErrNotRefreshToken
	}
	if !isRefresh && claims.IsRefresh {
		return ErrInvalidToken
	}

	if claims.Issuer != s.Config.Issuer {
		return ErrInvalidIssuer
	}

	audienceValid := false
	for _, expectedAud := range s.Config.Audience {
		for _, tokenAud := range claims.Audience {
			if expectedAud == tokenAud {
				audienceValid = true
				break
			}
		}
		if audienceValid {
			break
		}
	}
	if !audienceValid {
		return ErrInvalidAudience
	}

	if claims.UserID == 0 {
		return ErrInvalidUserID
	}

	if claims.TokenUUID == "" {
		return ErrInvalidClaims
	}

	return nil
}

// GetTokenUUID extracts the token UUID even from an expired token, so
// logout can blacklist tokens past their expiry
func (s *JWTService) GetTokenUUID(tokenString string) (string, error) {
	if s.Config.Secret == "" {
		return "", ErrMissingKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return []byte(s.Config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && token != nil {
			if claims, ok := token.Claims.(*CustomClaims); ok {
				return claims.TokenUUID, nil
			}
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return "", ErrInvalidClaims
	}

	return claims.TokenUUID, nil
}
