package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/errors"
	"github.com/rautatech/catalog/pkg/response"
)

// TwoFactorHandler exposes the per-account two-factor lifecycle. All routes
// except the backup-code verification act on the authenticated user.
type TwoFactorHandler struct {
	service *services.TwoFactorService
}

func NewTwoFactorHandler(service *services.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{service: service}
}

type verifyCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type backupCodeRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

// GET /api/two-factor/status
func (h *TwoFactorHandler) Status(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, errors.ErrForbidden)
		return
	}

	status, err := h.service.Status(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// POST /api/two-factor/generate
//
// The secret and backup codes in the response are shown exactly once.
func (h *TwoFactorHandler) Generate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, errors.ErrForbidden)
		return
	}

	enrollment, err := h.service.Generate(requestContext(c), user.ID, user.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"secret":       enrollment.Secret,
		"otpauth_url":  enrollment.OTPAuthURL,
		"qr_code":      enrollment.QRCode,
		"backup_codes": enrollment.BackupCodes,
	})
}

// POST /api/two-factor/verify
func (h *TwoFactorHandler) Verify(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, errors.ErrForbidden)
		return
	}

	var body verifyCodeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.VerifyAndEnable(requestContext(c), user.ID, body.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enabled": true})
}

// POST /api/two-factor/disable
//
// Requires a current authenticator code even on an authenticated session.
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, errors.ErrForbidden)
		return
	}

	var body verifyCodeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.Disable(requestContext(c), user.ID, body.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"disabled": true})
}

// POST /api/two-factor/backup-code/verify (public)
//
// Consumes a backup code for account recovery; each code works once.
func (h *TwoFactorHandler) VerifyBackupCode(c *gin.Context) {
	var body backupCodeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.VerifyBackupCode(requestContext(c), body.UserID, body.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"valid": true})
}
