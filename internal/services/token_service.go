package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/auth/service"
	"github.com/fybs47/Library/internal/models"
	"go.uber.org/zap"
)

// RefreshTokenRepository is the interface that wraps the refresh token columns of the User table
type RefreshTokenRepository interface {
	// Method GetByRefreshToken retrieves the user holding a refresh token.
	//
	// "token" parameter is the refresh token to look up.
	// "now" parameter is the current time; the stored expiry must be strictly after it.
	//
	// If no user holds an unexpired token with this value, a NotFound error will be returned together with "nil" value.
	GetByRefreshToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	// Method SetRefreshToken stores a refresh token for a user, overwriting the previous one.
	//
	// "userID" parameter is the ID of the user.
	// "token" parameter is the new refresh token.
	// "expiry" parameter is the UTC expiry time of the token.
	//
	// If some error occurs during update, the error will be returned.
	SetRefreshToken(ctx context.Context, userID, token string, expiry time.Time) error
	// Method RotateRefreshToken replaces a refresh token only if it is still the stored, unexpired one.
	//
	// "userID" parameter is the ID of the user.
	// "oldToken" parameter is the token presented by the client.
	// "newToken" parameter is the token that replaces it.
	// "expiry" parameter is the UTC expiry time of the new token.
	// "now" parameter is the current time.
	//
	// If the stored token no longer matches, an Unauthorized error will be returned.
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string, expiry, now time.Time) error
}

// tokenService issues access tokens and manages the single refresh token of each user
type tokenService struct {
	repo           RefreshTokenRepository
	tokenGenerator *service.TokenGenerator
	logger         *zap.Logger
	now            func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(repo RefreshTokenRepository, tokenGenerator *service.TokenGenerator, logger *zap.Logger) *tokenService {
	return &tokenService{
		repo:           repo,
		tokenGenerator: tokenGenerator,
		logger:         logger,
		now:            time.Now,
	}
}

// IssueAccessToken creates a signed access token for the user
func (s *tokenService) IssueAccessToken(user *models.User) (string, error) {
	token, err := s.tokenGenerator.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken creates a new refresh token and stores it for the user.
// Any previously issued refresh token of the user stops being valid.
func (s *tokenService) IssueRefreshToken(ctx context.Context, user *models.User) (string, error) {
	token := s.tokenGenerator.GenerateRefreshToken()
	expiry := s.now().UTC().Add(s.tokenGenerator.RefreshTokenExpiry())

	if err := s.repo.SetRefreshToken(ctx, user.ID, token, expiry); err != nil {
		return "", fmt.Errorf("failed to save refresh token: %w", err)
	}

	return token, nil
}

// ResolveUserByRefreshToken finds the user whose stored refresh token matches and has not expired
func (s *tokenService) ResolveUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "refresh token is required")
	}

	user, err := s.repo.GetByRefreshToken(ctx, token, s.now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrUnauthorized, "refresh token is invalid or expired")
		}
		return nil, fmt.Errorf("failed to resolve refresh token: %w", err)
	}

	return user, nil
}

// RotateRefreshToken replaces oldToken with a new refresh token.
// Only one of several concurrent rotations of the same token succeeds.
func (s *tokenService) RotateRefreshToken(ctx context.Context, user *models.User, oldToken string) (string, error) {
	now := s.now().UTC()
	newToken := s.tokenGenerator.GenerateRefreshToken()
	expiry := now.Add(s.tokenGenerator.RefreshTokenExpiry())

	if err := s.repo.RotateRefreshToken(ctx, user.ID, oldToken, newToken, expiry, now); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			s.logger.Info("refresh token rotation lost", zap.String("userId", user.ID))
		}
		return "", err
	}

	return newToken, nil
}
