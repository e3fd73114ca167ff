// Package service issues and validates the credentials used by the API
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTOptions configures a TokenGenerator
type JWTOptions struct {
	Secret             string
	Issuer             string
	Audience           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AccessClaims is the payload of an access token.
// The subject is the username.
type AccessClaims struct {
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret             []byte
	issuer             string
	audience           string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(opts JWTOptions) *TokenGenerator {
	return &TokenGenerator{
		secret:             []byte(opts.Secret),
		issuer:             opts.Issuer,
		audience:           opts.Audience,
		accessTokenExpiry:  opts.AccessTokenExpiry,
		refreshTokenExpiry: opts.RefreshTokenExpiry,
	}
}

// GenerateAccessToken creates a signed access token for the user.
// It fails with a configuration error when no signing secret is set.
func (tg *TokenGenerator) GenerateAccessToken(userID, username string, role models.Role) (string, error) {
	if len(tg.secret) == 0 {
		return "", apperrors.New(apperrors.ErrConfiguration, "JWT signing secret is not configured")
	}

	now := time.Now()
	claims := AccessClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.New().String(),
			Issuer:    tg.issuer,
			Audience:  jwt.ClaimStrings{tg.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tg.accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tg.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken verifies signature, expiry, issuer and audience of an access token
func (tg *TokenGenerator) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	if len(tg.secret) == 0 {
		return nil, apperrors.New(apperrors.ErrConfiguration, "JWT signing secret is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tg.secret, nil
	},
		jwt.WithIssuer(tg.issuer),
		jwt.WithAudience(tg.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token is invalid")
	}
	if claims.UserID == "" || claims.Subject == "" {
		return nil, errors.New("token is missing user claims")
	}

	return claims, nil
}

// GenerateRefreshToken creates an opaque refresh token.
// It is not tied to the access token; validity is tracked by the credential store.
func (tg *TokenGenerator) GenerateRefreshToken() string {
	return uuid.New().String()
}

// RefreshTokenExpiry returns the lifetime of refresh tokens
func (tg *TokenGenerator) RefreshTokenExpiry() time.Duration {
	return tg.refreshTokenExpiry
}
