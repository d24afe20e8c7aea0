package mfa

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/database"
	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/pkg/crypto"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "mfa_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, db.Create(&models.User{ID: "user-1", Email: "user@example.com", Name: "User One"}).Error)
	return db
}

func TestGenerateSecretPersistsPendingCredential(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTOTPService(db, testKey, WithIssuer("Test Issuer"))
	require.NoError(t, err)

	enrollment, err := svc.GenerateSecret("user-1", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.OTPAuthURL, "Test%20Issuer")
	require.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))
	require.Len(t, enrollment.BackupCodes, 10)

	credential, err := svc.Credential("user-1")
	require.NoError(t, err)
	require.False(t, credential.Enabled)
	require.Equal(t, models.TwoFactorPending, credential.State())

	// The secret is stored encrypted, never in the clear.
	require.NotEqual(t, enrollment.Secret, credential.Secret)
	decrypted, err := crypto.Decrypt(credential.Secret, testKey)
	require.NoError(t, err)
	require.Equal(t, enrollment.Secret, string(decrypted))
}

func TestBackupCodesAreUniqueUpperCased(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTOTPService(db, testKey)
	require.NoError(t, err)

	enrollment, err := svc.GenerateSecret("user-1", "user@example.com")
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for _, code := range enrollment.BackupCodes {
		require.Len(t, code, 8)
		require.Equal(t, strings.ToUpper(code), code)
		_, dup := seen[code]
		require.False(t, dup, "duplicate backup code %s", code)
		seen[code] = struct{}{}
	}

	// Stored codes match what the user was shown.
	credential, err := svc.Credential("user-1")
	require.NoError(t, err)
	var stored []string
	require.NoError(t, json.Unmarshal(credential.BackupCodes, &stored))
	require.ElementsMatch(t, enrollment.BackupCodes, stored)
}

func TestVerifyCodeSkewWindow(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	svc, err := NewTOTPService(db, testKey, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	enrollment, err := svc.GenerateSecret("user-1", "user@example.com")
	require.NoError(t, err)

	current, err := totp.GenerateCode(enrollment.Secret, now)
	require.NoError(t, err)
	ok, err := svc.VerifyCode("user-1", current)
	require.NoError(t, err)
	require.True(t, ok)

	twoBack, err := totp.GenerateCode(enrollment.Secret, now.Add(-60*time.Second))
	require.NoError(t, err)
	ok, err = svc.VerifyCode("user-1", twoBack)
	require.NoError(t, err)
	require.True(t, ok)

	threeBack, err := totp.GenerateCode(enrollment.Secret, now.Add(-90*time.Second))
	require.NoError(t, err)
	ok, err = svc.VerifyCode("user-1", threeBack)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyCodeMalformedInput(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTOTPService(db, testKey)
	require.NoError(t, err)

	_, err = svc.GenerateSecret("user-1", "user@example.com")
	require.NoError(t, err)

	for _, code := range []string{"", "abc", "12345", "1234567890"} {
		ok, err := svc.VerifyCode("user-1", code)
		require.NoError(t, err, "code %q", code)
		require.False(t, ok, "code %q", code)
	}
}

func TestVerifyCodeWithoutCredential(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTOTPService(db, testKey)
	require.NoError(t, err)

	_, err = svc.VerifyCode("user-1", "123456")
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestConsumeBackupCode(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTOTPService(db, testKey)
	require.NoError(t, err)

	enrollment, err := svc.GenerateSecret("user-1", "user@example.com")
	require.NoError(t, err)

	code := enrollment.BackupCodes[3]

	consumed, err := svc.ConsumeBackupCode("user-1", strings.ToLower(code))
	require.NoError(t, err)
	require.True(t, consumed)

	remaining, err := svc.RemainingBackupCodes("user-1")
	require.NoError(t, err)
	require.Equal(t, 9, remaining)

	consumed, err = svc.ConsumeBackupCode("user-1", code)
	require.NoError(t, err)
	require.False(t, consumed)

	consumed, err = svc.ConsumeBackupCode("user-1", "NOTACODE")
	require.NoError(t, err)
	require.False(t, consumed)
	remaining, err = svc.RemainingBackupCodes("user-1")
	require.NoError(t, err)
	require.Equal(t, 9, remaining)
}

func TestDeleteCredential(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTOTPService(db, testKey)
	require.NoError(t, err)

	_, err = svc.GenerateSecret("user-1", "user@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.SetEnabled("user-1", true))
	require.NoError(t, svc.Delete("user-1"))

	_, err = svc.Credential("user-1")
	require.ErrorIs(t, err, ErrCredentialNotFound)
}
