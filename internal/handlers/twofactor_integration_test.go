package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/rautatech/catalog/internal/handlers/testutil"
	"github.com/rautatech/catalog/internal/models"
)

type enrollmentPayload struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauth_url"`
	QRCode      string   `json:"qr_code"`
	BackupCodes []string `json:"backup_codes"`
}

type statusPayload struct {
	Enabled              bool   `json:"isEnabled"`
	State                string `json:"state"`
	BackupCodesRemaining int    `json:"backupCodesRemaining"`
}

func TestTwoFactorEnableFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("password1", models.RoleUser)
	cookie := env.Login(user.Email, "password1")

	// Fresh accounts report not configured.
	w := env.Request(http.MethodGet, "/api/two-factor/status", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var status statusPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &status)
	require.False(t, status.Enabled)
	require.Equal(t, "not_configured", status.State)

	// Verifying before generating a secret is a 404.
	w = env.Request(http.MethodPost, "/api/two-factor/verify", map[string]string{"code": "123456"}, cookie)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Generate an enrollment.
	w = env.Request(http.MethodPost, "/api/two-factor/generate", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var enrollment enrollmentPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &enrollment)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.QRCode, "data:image/png;base64,")
	require.Len(t, enrollment.BackupCodes, 10)

	// A wrong code does not enable.
	w = env.Request(http.MethodPost, "/api/two-factor/verify", map[string]string{"code": "000000"}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodGet, "/api/two-factor/status", nil, cookie)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &status)
	require.False(t, status.Enabled)
	require.Equal(t, "pending", status.State)

	// The real code flips the credential on.
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	w = env.Request(http.MethodPost, "/api/two-factor/verify", map[string]string{"code": code}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/api/two-factor/status", nil, cookie)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &status)
	require.True(t, status.Enabled)
	require.Equal(t, "enabled", status.State)
	require.Equal(t, 10, status.BackupCodesRemaining)
}

func TestTwoFactorDisableRequiresEnabled(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("password1", models.RoleUser)
	cookie := env.Login(user.Email, "password1")

	w := env.Request(http.MethodPost, "/api/two-factor/disable", map[string]string{"code": "123456"}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Pending enrollments cannot be disabled either, even with a valid code.
	w = env.Request(http.MethodPost, "/api/two-factor/generate", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var enrollment enrollmentPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &enrollment)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	w = env.Request(http.MethodPost, "/api/two-factor/disable", map[string]string{"code": code}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTwoFactorDisableFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("password1", models.RoleUser)
	cookie := env.Login(user.Email, "password1")

	w := env.Request(http.MethodPost, "/api/two-factor/generate", nil, cookie)
	var enrollment enrollmentPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &enrollment)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	w = env.Request(http.MethodPost, "/api/two-factor/verify", map[string]string{"code": code}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	// Disabling demands a current authenticator code; a wrong one leaves the
	// credential enabled.
	w = env.Request(http.MethodPost, "/api/two-factor/disable", map[string]string{"code": "000000"}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var status statusPayload
	w = env.Request(http.MethodGet, "/api/two-factor/status", nil, cookie)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &status)
	require.True(t, status.Enabled)

	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	w = env.Request(http.MethodPost, "/api/two-factor/disable", map[string]string{"code": code}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/api/two-factor/status", nil, cookie)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &status)
	require.False(t, status.Enabled)
	require.Equal(t, "not_configured", status.State)
}

func TestTwoFactorBackupCodeEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("password1", models.RoleUser)
	cookie := env.Login(user.Email, "password1")

	w := env.Request(http.MethodPost, "/api/two-factor/generate", nil, cookie)
	var enrollment enrollmentPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &enrollment)

	// Codes from an unconfirmed enrollment are rejected and not burned.
	w = env.Request(http.MethodPost, "/api/two-factor/backup-code/verify", map[string]string{
		"user_id": user.ID,
		"code":    enrollment.BackupCodes[0],
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	w = env.Request(http.MethodPost, "/api/two-factor/verify", map[string]string{"code": code}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	// The endpoint is public: no cookie attached.
	w = env.Request(http.MethodPost, "/api/two-factor/backup-code/verify", map[string]string{
		"user_id": user.ID,
		"code":    enrollment.BackupCodes[0],
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Codes are single use.
	w = env.Request(http.MethodPost, "/api/two-factor/backup-code/verify", map[string]string{
		"user_id": user.ID,
		"code":    enrollment.BackupCodes[0],
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var status statusPayload
	w = env.Request(http.MethodGet, "/api/two-factor/status", nil, cookie)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &status)
	require.Equal(t, 9, status.BackupCodesRemaining)
}

func TestTwoFactorRoutesRequireSession(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/two-factor/status"},
		{http.MethodPost, "/api/two-factor/generate"},
		{http.MethodPost, "/api/two-factor/verify"},
		{http.MethodPost, "/api/two-factor/disable"},
	} {
		w := env.Request(route.method, route.path, nil, nil)
		require.Equal(t, http.StatusForbidden, w.Code, route.path)
	}
}
