package services

import (
	"context"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"go.uber.org/zap"
)

// UserAdminRepository is the interface that wraps user administration data access
type UserAdminRepository interface {
	// Method GetAll retrieves all users.
	GetAll(ctx context.Context) ([]models.User, error)
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, a NotFound error will be returned together with "nil" value.
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// Method UpdateRole changes the role of a user.
	//
	// If user with such ID does not exist, a NotFound error will be returned.
	UpdateRole(ctx context.Context, userID string, role models.Role) error
	// Method Delete deletes a user.
	//
	// If user with such ID does not exist, a NotFound error will be returned.
	Delete(ctx context.Context, userID string) error
}

// userService implements user administration for admins
type userService struct {
	repo   UserAdminRepository
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(repo UserAdminRepository, logger *zap.Logger) *userService {
	return &userService{
		repo:   repo,
		logger: logger,
	}
}

// GetAll returns all users without credentials
func (s *userService) GetAll(ctx context.Context) ([]models.UserResponse, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, toUserResponse(&users[i]))
	}
	return responses, nil
}

// GetByID returns a user without credentials
func (s *userService) GetByID(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	response := toUserResponse(user)
	return &response, nil
}

// UpdateRole changes the role of another user. Admins can't change their own role.
func (s *userService) UpdateRole(ctx context.Context, actorID, userID string, role models.Role) (*models.UserResponse, error) {
	if !role.IsValid() {
		return nil, apperrors.Newf(apperrors.ErrBadRequest, "invalid role %q", role)
	}
	if actorID == userID {
		return nil, apperrors.New(apperrors.ErrForbidden, "you can't change your own role")
	}

	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}

	s.logger.Info("user role updated",
		zap.String("actorId", actorID),
		zap.String("userId", userID),
		zap.String("role", string(role)),
	)
	return s.GetByID(ctx, userID)
}

// Delete removes another user. Admins can't delete themselves.
func (s *userService) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return apperrors.New(apperrors.ErrForbidden, "you can't delete yourself")
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted", zap.String("actorId", actorID), zap.String("userId", userID))
	return nil
}

func toUserResponse(user *models.User) models.UserResponse {
	return models.UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}
