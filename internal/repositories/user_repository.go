package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userColumns = `id, username, email, password_hash, role, refresh_token, refresh_token_expiry_time`

// userRepository implements UserRepository
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user into the database.
// An empty ID is filled with a new UUID.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		if mysqlErrorNumber(err) == errDuplicateEntry {
			return apperrors.New(apperrors.ErrConflict, "username or email already exists")
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, "user not found")
	}
	if err != nil {
		r.logger.Error("failed to get user by id", zap.Error(err), zap.String("userId", userID))
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, "user not found")
	}
	if err != nil {
		r.logger.Error("failed to get user by username", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// ExistsByEmail checks if a user exists with the given email
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT * FROM users WHERE email = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check email existence", zap.Error(err), zap.String("email", email))
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// ExistsByUsername checks if a user exists with the given username
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT * FROM users WHERE username = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, username).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check username existence", zap.Error(err), zap.String("username", username))
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// GetByRefreshToken retrieves the user holding the refresh token.
// The stored expiry must be strictly after now.
func (r *userRepository) GetByRefreshToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE refresh_token = ? AND refresh_token_expiry_time > ?
		LIMIT 1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, token, now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, "refresh token not found")
	}
	if err != nil {
		r.logger.Error("failed to get user by refresh token", zap.Error(err))
		return nil, fmt.Errorf("failed to get user by refresh token: %w", err)
	}

	return user, nil
}

// SetRefreshToken stores a refresh token for the user, replacing the previous one
func (r *userRepository) SetRefreshToken(ctx context.Context, userID, token string, expiry time.Time) error {
	query := `
		UPDATE users
		SET refresh_token = ?, refresh_token_expiry_time = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, token, expiry.UTC(), userID)
	if err != nil {
		r.logger.Error("failed to set refresh token", zap.Error(err), zap.String("userId", userID))
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "user not found")
	}

	return nil
}

// RotateRefreshToken replaces oldToken with newToken only while oldToken is
// still the stored, unexpired token of the user. A lost race yields Unauthorized.
func (r *userRepository) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string, expiry, now time.Time) error {
	query := `
		UPDATE users
		SET refresh_token = ?, refresh_token_expiry_time = ?
		WHERE id = ? AND refresh_token = ? AND refresh_token_expiry_time > ?
	`

	result, err := r.db.ExecContext(ctx, query, newToken, expiry.UTC(), userID, oldToken, now.UTC())
	if err != nil {
		r.logger.Error("failed to rotate refresh token", zap.Error(err), zap.String("userId", userID))
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.New(apperrors.ErrUnauthorized, "refresh token is invalid or expired")
	}

	return nil
}

// ClearRefreshToken removes the stored refresh token of the user
func (r *userRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET refresh_token = NULL, refresh_token_expiry_time = NULL
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		r.logger.Error("failed to clear refresh token", zap.Error(err), zap.String("userId", userID))
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	return nil
}

// GetAll retrieves all users ordered by username
func (r *userRepository) GetAll(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to query users", zap.Error(err))
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdateRole changes the role of the user
func (r *userRepository) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	query := `UPDATE users SET role = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, role, userID)
	if err != nil {
		r.logger.Error("failed to update user role", zap.Error(err), zap.String("userId", userID))
		return fmt.Errorf("failed to update user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "user not found")
	}

	return nil
}

// Delete deletes the user
func (r *userRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to delete user", zap.Error(err), zap.String("userId", userID))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "user not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var refreshToken sql.NullString
	var refreshTokenExpiry sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&refreshToken,
		&refreshTokenExpiry,
	)
	if err != nil {
		return nil, err
	}

	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}
	if refreshTokenExpiry.Valid {
		expiry := refreshTokenExpiry.Time.UTC()
		user.RefreshTokenExpiryTime = &expiry
	}

	return user, nil
}
