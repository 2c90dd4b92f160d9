package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/sirupsen/logrus"
)

// Service-level errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrEmailTaken         = errors.New("email address is already registered")
)

// serviceImpl implements the Service interface
type serviceImpl struct {
	users      repositories.UserRepository
	jwt        *JWTService
	passwords  *PasswordService
	tokenStore TokenStore
	log        *logrus.Logger
}

// NewService creates a new authentication service
func NewService(users repositories.UserRepository, jwt *JWTService, passwords *PasswordService, store TokenStore, log *logrus.Logger) Service {
	return &serviceImpl{
		users:      users,
		jwt:        jwt,
		passwords:  passwords,
		tokenStore: store,
		log:        log,
	}
}

// Login authenticates a user and returns a token pair
func (s *serviceImpl) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Same error for unknown email and wrong password
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.Active {
		return nil, ErrUserDisabled
	}

	if !s.passwords.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}

	return s.GenerateTokens(ctx, user)
}

// Register creates a new user and returns a token pair
func (s *serviceImpl) Register(ctx context.Context, user *models.User) (*TokenPair, error) {
	exists, err := s.users.CheckEmailExists(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := s.passwords.HashPassword(user.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hash
	user.Active = true

	if len(user.Roles) == 0 {
		user.Roles = []models.UserRole{{Role: models.RoleUser}}
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return s.GenerateTokens(ctx, user)
}

// Verify verifies a JWT access token and returns the token details
func (s *serviceImpl) Verify(ctx context.Context, tokenString string) (*TokenDetails, error) {
	details, err := s.jwt.ExtractTokenDetails(tokenString, false)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.tokenStore.IsTokenBlacklisted(ctx, details.TokenUUID)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	return details, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *serviceImpl) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	details, err := s.jwt.ExtractTokenDetails(refreshToken, true)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.tokenStore.IsTokenBlacklisted(ctx, details.TokenUUID)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	user, err := s.users.GetByID(ctx, details.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.Active {
		return nil, ErrUserDisabled
	}

	// A refresh token is single use
	if err := s.tokenStore.BlacklistToken(ctx, details.TokenUUID); err != nil && !errors.Is(err, ErrTokenNotFound) {
		s.log.WithError(err).Warn("Failed to blacklist used refresh token")
	}

	return s.GenerateTokens(ctx, user)
}

// Logout invalidates a token
func (s *serviceImpl) Logout(ctx context.Context, token string) error {
	tokenUUID, err := s.jwt.GetTokenUUID(token)
	if err != nil {
		return err
	}

	err = s.tokenStore.BlacklistToken(ctx, tokenUUID)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

// GenerateTokens generates a new token pair for a user
func (s *serviceImpl) GenerateTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}

	// Record the refresh token so it can be revoked
	refreshUUID, err := s.jwt.GetTokenUUID(pair.RefreshToken)
	if err == nil {
		refreshDetails, detailsErr := s.jwt.ExtractTokenDetails(pair.RefreshToken, true)
		if detailsErr == nil {
			if storeErr := s.tokenStore.StoreToken(ctx, user.ID, refreshUUID, "refresh", pair.RefreshToken, refreshDetails.ExpiresAt); storeErr != nil && !errors.Is(storeErr, ErrDuplicateToken) {
				s.log.WithError(storeErr).Warn("Failed to persist refresh token")
			}
		}
	}

	return pair, nil
}

// HashPassword hashes a password
func (s *serviceImpl) HashPassword(password string) (string, error) {
	return s.passwords.HashPassword(password)
}

// CheckPassword verifies if a password matches a hash
func (s *serviceImpl) CheckPassword(password, hash string) bool {
	return s.passwords.CheckPassword(password, hash)
}
