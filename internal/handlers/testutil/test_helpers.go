package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/api"
	"github.com/rautatech/catalog/internal/app"
	iauth "github.com/rautatech/catalog/internal/auth"
	"github.com/rautatech/catalog/internal/database"
	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/pkg/crypto"
	"github.com/rautatech/catalog/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by a scratch database
// for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Sessions *iauth.SessionService
	Config   *app.Config
}

// NewEnv provisions a fresh handler test environment with migrations and
// seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "handlers_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateAndSeed(db, database.SeedConfig{}))

	cfg := &app.Config{
		Auth: app.AuthConfig{
			Session: app.SessionSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		MFA: app.MFAConfig{
			EncryptionKey: "0123456789abcdef0123456789abcdef",
			Issuer:        "test-suite",
			QRCodeSize:    128,
		},
		Catalog: app.CatalogConfig{
			WhatsAppNumber: "+55 (11) 99999-9999",
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: false},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	sessions, err := iauth.NewSessionService(cfg.SessionServiceConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(db, cfg, sessions)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Sessions: sessions,
		Config:   cfg,
	}
}

// CreateUser inserts an account with the given role and returns it.
func (e *Env) CreateUser(password string, role models.Role) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Email:    "user-" + uuid.NewString() + "@example.com",
		Password: hashed,
		Name:     "Test User",
		Role:     role,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// Login authenticates via the login endpoint and returns the session cookie.
func (e *Env) Login(email, password string) *http.Cookie {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == iauth.SessionCookieName {
			return cookie
		}
	}

	e.T.Fatal("login response did not set a session cookie")
	return nil
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding and the session cookie automatically.
func (e *Env) Request(method, path string, body any, session *http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
