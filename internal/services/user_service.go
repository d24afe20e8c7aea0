package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/pkg/crypto"
	apperrors "github.com/rautatech/catalog/pkg/errors"
)

// MinPasswordLength is enforced on account creation and password changes.
const MinPasswordLength = 6

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken reports an attempt to register an already-used email.
	ErrEmailTaken = apperrors.NewConflict("Email already registered")
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

// UserService manages the account lifecycle: creation, role changes,
// password resets, and deletion. Role mutations are expected to be gated at
// the transport layer; this service trusts its caller's authorization.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Create provisions a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.NewBadRequest("role must be user or admin")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: hashed,
		Name:     strings.TrimSpace(input.Name),
		Role:     role,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user by email (lower-cased).
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user by email: %w", err)
	}
	return &user, nil
}

// List retrieves every account ordered by creation time.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// UpdateRole promotes or demotes an account. The caller's own authorization
// must already have been established from its resolved identity.
func (s *UserService) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("role must be user or admin")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("user service: update role: %w", err)
	}

	user.Role = role
	return user, nil
}

// ChangePassword hashes and updates the user's password.
func (s *UserService) ChangePassword(ctx context.Context, id, newPassword string) error {
	ctx = ensureContext(ctx)

	if len(newPassword) < MinPasswordLength {
		return apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash new password: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hashed)

	if result.Error != nil {
		return fmt.Errorf("user service: change password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete removes a user and any two-factor credential they own.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.TwoFactorCredential{}).Error; err != nil {
			return fmt.Errorf("user service: delete credential: %w", err)
		}
		if err := tx.Delete(user).Error; err != nil {
			return fmt.Errorf("user service: delete user: %w", err)
		}
		return nil
	})
}

// TouchLastSignIn records a successful login.
func (s *UserService) TouchLastSignIn(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_signed_in_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
		return fmt.Errorf("user service: touch last sign in: %w", err)
	}
	return nil
}
