package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/metrics"
	"github.com/fybs47/Library/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Auth events reported to AuthMetrics
const (
	eventRegister = "register"
	eventLogin    = "login"
	eventRefresh  = "refresh"
	eventLogout   = "logout"
)

const (
	maxUsernameLength = 100
	// bcrypt ignores everything after 72 bytes
	maxPasswordBytes = 72
)

// invalidCredentials is returned for every failed login so callers cannot tell
// an unknown username from a wrong password
const invalidCredentials = "invalid username or password"

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// UserRepository is the interface that wraps methods for User table data access used by authentication
type UserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user. Its ID is filled in.
	//
	// If username or email is already taken, a Conflict error will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByUsername retrieves a user by username.
	//
	// "username" parameter is used to retrieve a user by username.
	//
	// If user with such username does not exist, a NotFound error will be returned together with "nil" value.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// "email" parameter is used to check if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method ExistsByUsername checks if a user with such username exists.
	//
	// "username" parameter is used to check if a user with such username exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Method ClearRefreshToken removes the stored refresh token of a user.
	//
	// "userID" parameter is the ID of the user.
	//
	// If some error occurs during update, the error will be returned.
	ClearRefreshToken(ctx context.Context, userID string) error
}

// TokenIssuer is the interface that wraps access and refresh token operations
type TokenIssuer interface {
	// Method IssueAccessToken creates a signed access token for a user.
	IssueAccessToken(user *models.User) (string, error)
	// Method IssueRefreshToken creates and stores a new refresh token for a user, replacing the old one.
	IssueRefreshToken(ctx context.Context, user *models.User) (string, error)
	// Method ResolveUserByRefreshToken finds the user holding an unexpired refresh token.
	//
	// If there is no such user, an Unauthorized error will be returned together with "nil" value.
	ResolveUserByRefreshToken(ctx context.Context, token string) (*models.User, error)
	// Method RotateRefreshToken replaces a refresh token if it is still the stored one.
	//
	// If the token was rotated concurrently, an Unauthorized error will be returned.
	RotateRefreshToken(ctx context.Context, user *models.User, oldToken string) (string, error)
}

// PasswordHasher is the interface that wraps password hashing
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// AuthMetrics records the outcome of authentication events
type AuthMetrics interface {
	RecordAuthEvent(event, outcome string)
}

// authService implements registration, login, refresh and logout
type authService struct {
	userRepo UserRepository
	tokens   TokenIssuer
	hasher   PasswordHasher
	metrics  AuthMetrics
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	tokens TokenIssuer,
	hasher PasswordHasher,
	metrics AuthMetrics,
	logger *zap.Logger,
) *authService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		metrics:  metrics,
		logger:   logger,
	}
}

// Register creates a new user account with the "user" role.
// It does not issue tokens; callers log the new user in separately.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (err error) {
	defer func() { s.record(eventRegister, err) }()

	user, err := s.createUser(ctx, req, models.RoleUser)
	if err != nil {
		return err
	}

	s.logger.Info("user registered", zap.String("userId", user.ID), zap.String("username", user.Username))
	return nil
}

// EnsureAdmin creates an account with the "admin" role unless the username is already taken.
// An existing account is left as it is. The first return value reports whether an account was created.
func (s *authService) EnsureAdmin(ctx context.Context, req *models.RegisterRequest) (bool, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return false, fmt.Errorf("failed to check admin account: %w", err)
	}
	if exists {
		s.logger.Info("admin account already exists", zap.String("username", req.Username))
		return false, nil
	}

	user, err := s.createUser(ctx, req, models.RoleAdmin)
	if err != nil {
		return false, err
	}

	s.logger.Info("admin account created", zap.String("userId", user.ID), zap.String("username", user.Username))
	return true, nil
}

// createUser validates the credentials and stores a new user with the given role
func (s *authService) createUser(ctx context.Context, req *models.RegisterRequest, role models.Role) (*models.User, error) {
	username, email, err := s.checkRegisterCredentials(ctx, req)
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies a username and password
func (s *authService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrBadRequest, "username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrUnauthorized, invalidCredentials)
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.New(apperrors.ErrUnauthorized, invalidCredentials)
	}

	return user, nil
}

// IssueTokens creates an access token and a fresh refresh token for the user
func (s *authService) IssueTokens(ctx context.Context, user *models.User) (*models.TokenResponse, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &models.TokenResponse{Token: accessToken, RefreshToken: refreshToken}, nil
}

// Login authenticates the user and issues a new token pair
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (resp *models.TokenResponse, err error) {
	defer func() { s.record(eventLogin, err) }()

	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	return s.IssueTokens(ctx, user)
}

// Refresh exchanges a refresh token for a new access token and a rotated refresh token.
// The presented token is single use: replaying it, or losing a concurrent refresh, yields Unauthorized.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (resp *models.TokenResponse, err error) {
	defer func() { s.record(eventRefresh, err) }()

	user, err := s.tokens.ResolveUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	newRefreshToken, err := s.tokens.RotateRefreshToken(ctx, user, strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, err
	}

	return &models.TokenResponse{Token: accessToken, RefreshToken: newRefreshToken}, nil
}

// Logout revokes the refresh token of the user
func (s *authService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.record(eventLogout, err) }()

	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		return err
	}

	return nil
}

func (s *authService) record(event string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.RecordAuthEvent(event, outcome)
}

// checkRegisterCredentials validates the request and checks uniqueness of username and email.
// It returns the normalized username and email.
//
// The two uniqueness checks do not depend on each other, so they run in parallel.
func (s *authService) checkRegisterCredentials(ctx context.Context, req *models.RegisterRequest) (string, string, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if username == "" {
		return "", "", apperrors.New(apperrors.ErrBadRequest, "username cannot be empty")
	}
	if len([]rune(username)) > maxUsernameLength {
		return "", "", apperrors.Newf(apperrors.ErrBadRequest, "username can't be longer than %d characters", maxUsernameLength)
	}
	if !emailRegex.MatchString(email) {
		return "", "", apperrors.New(apperrors.ErrBadRequest, "invalid email format")
	}
	if req.Password == "" {
		return "", "", apperrors.New(apperrors.ErrBadRequest, "password cannot be empty")
	}
	if len(req.Password) > maxPasswordBytes {
		return "", "", apperrors.Newf(apperrors.ErrBadRequest, "password can't be longer than %d bytes", maxPasswordBytes)
	}

	var usernameExists, emailExists bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		usernameExists, err = s.userRepo.ExistsByUsername(gctx, username)
		return err
	})
	g.Go(func() error {
		var err error
		emailExists, err = s.userRepo.ExistsByEmail(gctx, email)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", fmt.Errorf("failed to check user credentials: %w", err)
	}

	if usernameExists {
		return "", "", apperrors.New(apperrors.ErrConflict, "username already exists")
	}
	if emailExists {
		return "", "", apperrors.New(apperrors.ErrConflict, "email already exists")
	}

	return username, email, nil
}
