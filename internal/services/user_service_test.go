package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/pkg/crypto"
)

func TestUserServiceCreate(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:    "Ana@Example.COM",
		Password: "sup3rsecret",
		Name:     "Ana",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "ana@example.com", user.Email)
	require.Equal(t, models.RoleUser, user.Role)
	require.True(t, crypto.VerifyPassword(user.Password, "sup3rsecret"))
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{Email: "dup@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{Email: "DUP@example.com", Password: "password2"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserServiceCreateShortPassword(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{Email: "short@example.com", Password: "12345"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEmailTaken)
}

func TestUserServiceUpdateRole(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{Email: "promote@example.com", Password: "password1"})
	require.NoError(t, err)
	require.False(t, user.IsAdmin())

	updated, err := svc.UpdateRole(context.Background(), user.ID, models.RoleAdmin)
	require.NoError(t, err)
	require.True(t, updated.IsAdmin())

	reloaded, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, reloaded.Role)
}

func TestUserServiceChangePassword(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{Email: "pw@example.com", Password: "original1"})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "brandnew1"))

	reloaded, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(reloaded.Password, "brandnew1"))
	require.False(t, crypto.VerifyPassword(reloaded.Password, "original1"))

	err = svc.ChangePassword(context.Background(), "missing-id", "whatever1")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceDeleteRemovesCredential(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{Email: "gone@example.com", Password: "password1"})
	require.NoError(t, err)

	credential := models.TwoFactorCredential{
		UserID:      user.ID,
		Secret:      "ciphertext",
		BackupCodes: []byte(`["AAAAAAAA"]`),
	}
	require.NoError(t, db.Create(&credential).Error)

	require.NoError(t, svc.Delete(context.Background(), user.ID))

	_, err = svc.GetByID(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&models.TwoFactorCredential{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestUserServiceGetByEmailNotFound(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.GetByEmail(context.Background(), "nobody@example.com")
	require.True(t, errors.Is(err, ErrUserNotFound))
}
