package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/rautatech/catalog/internal/auth"
	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/crypto"
	"github.com/rautatech/catalog/pkg/errors"
	"github.com/rautatech/catalog/pkg/logger"
	"github.com/rautatech/catalog/pkg/metrics"
	"github.com/rautatech/catalog/pkg/response"
)

// AuthHandler manages the login/logout/me flows around the session cookie.
type AuthHandler struct {
	users    *services.UserService
	sessions *iauth.SessionService
}

func NewAuthHandler(users *services.UserService, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.GetByEmail(requestContext(c), strings.TrimSpace(req.Email))
	if err != nil {
		// Unknown email and wrong password are indistinguishable on purpose.
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	if !crypto.VerifyPassword(user.Password, req.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	token, err := h.sessions.Issue(user.ID, user.Email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	iauth.WriteSessionCookie(c.Writer, c.Request, token, h.sessions.TTL())

	if err := h.users.TouchLastSignIn(requestContext(c), user.ID); err != nil {
		logger.WithModule("auth").Warn("record last sign-in", zap.Error(err))
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	response.Success(c, http.StatusOK, gin.H{
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

// POST /api/auth/logout
//
// Tokens are self-contained, so logout only clears the cookie; a captured
// token stays valid until expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	iauth.ClearSessionCookie(c.Writer, c.Request)
	response.Success(c, http.StatusOK, gin.H{"loggedOut": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, errors.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, user)
}
