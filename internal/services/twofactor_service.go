package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rautatech/catalog/internal/auth/mfa"
	"github.com/rautatech/catalog/internal/models"
	apperrors "github.com/rautatech/catalog/pkg/errors"
	"github.com/rautatech/catalog/pkg/metrics"
)

var (
	// ErrTwoFactorNotConfigured is returned for operations that require a
	// provisioned secret when none exists.
	ErrTwoFactorNotConfigured = apperrors.New("TWO_FACTOR_NOT_CONFIGURED", "Two-factor secret not generated", http.StatusNotFound)
	// ErrInvalidTwoFactorCode rejects a code that did not verify.
	ErrInvalidTwoFactorCode = apperrors.New("INVALID_TWO_FACTOR_CODE", "Invalid verification code", http.StatusBadRequest)
	// ErrTwoFactorNotEnabled rejects a disable request when two-factor was
	// never confirmed.
	ErrTwoFactorNotEnabled = apperrors.New("TWO_FACTOR_NOT_ENABLED", "Two-factor authentication is not enabled", http.StatusBadRequest)
)

// TwoFactorStatus is the caller-facing view of a user's two-factor setup.
type TwoFactorStatus struct {
	Enabled              bool                  `json:"isEnabled"`
	State                models.TwoFactorState `json:"state"`
	BackupCodesRemaining int                   `json:"backupCodesRemaining"`
}

// TwoFactorService drives the enrollment state machine on top of the TOTP
// provider: not configured, pending confirmation, enabled. Generating a
// secret never enables by itself; only a verified code flips the flag.
type TwoFactorService struct {
	totp *mfa.TOTPService
}

// NewTwoFactorService constructs a TwoFactorService instance.
func NewTwoFactorService(totp *mfa.TOTPService) (*TwoFactorService, error) {
	if totp == nil {
		return nil, errors.New("two-factor service: totp provider is required")
	}
	return &TwoFactorService{totp: totp}, nil
}

// Status reports whether two-factor is enabled and how many backup codes
// remain. Accounts without a credential report the not-configured state.
func (s *TwoFactorService) Status(ctx context.Context, userID string) (*TwoFactorStatus, error) {
	_ = ensureContext(ctx)

	credential, err := s.totp.Credential(userID)
	if errors.Is(err, mfa.ErrCredentialNotFound) {
		return &TwoFactorStatus{
			Enabled: false,
			State:   models.TwoFactorNotConfigured,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("two-factor service: load status: %w", err)
	}

	remaining, err := s.totp.RemainingBackupCodes(userID)
	if err != nil {
		return nil, fmt.Errorf("two-factor service: count backup codes: %w", err)
	}

	return &TwoFactorStatus{
		Enabled:              credential.Enabled,
		State:                credential.State(),
		BackupCodesRemaining: remaining,
	}, nil
}

// Generate provisions a fresh secret and backup codes for the user, leaving
// the credential pending. Regenerating replaces any previous secret, even an
// enabled one, so the confirmation handshake always restarts.
func (s *TwoFactorService) Generate(ctx context.Context, userID, accountName string) (*mfa.Enrollment, error) {
	_ = ensureContext(ctx)

	enrollment, err := s.totp.GenerateSecret(userID, accountName)
	if err != nil {
		return nil, fmt.Errorf("two-factor service: generate secret: %w", err)
	}
	return enrollment, nil
}

// VerifyAndEnable confirms the pending secret with a code from the user's
// authenticator and enables two-factor. Without a generated secret the
// request fails with a not-found error; a wrong code is a bad request.
func (s *TwoFactorService) VerifyAndEnable(ctx context.Context, userID, code string) error {
	_ = ensureContext(ctx)

	valid, err := s.totp.VerifyCode(userID, code)
	if errors.Is(err, mfa.ErrCredentialNotFound) {
		return ErrTwoFactorNotConfigured
	}
	if err != nil {
		return fmt.Errorf("two-factor service: verify code: %w", err)
	}
	if !valid {
		metrics.TwoFactorChecks.WithLabelValues("totp", "failure").Inc()
		return ErrInvalidTwoFactorCode
	}

	if err := s.totp.SetEnabled(userID, true); err != nil {
		return fmt.Errorf("two-factor service: enable: %w", err)
	}

	metrics.TwoFactorChecks.WithLabelValues("totp", "success").Inc()
	return nil
}

// Disable turns two-factor off and deletes the credential, returning the
// account to the not-configured state. The caller has to prove possession of
// the authenticator with a current code. It fails when two-factor was never
// enabled; a pending secret is discarded by generating a new one instead.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string) error {
	_ = ensureContext(ctx)

	credential, err := s.totp.Credential(userID)
	if errors.Is(err, mfa.ErrCredentialNotFound) {
		return ErrTwoFactorNotEnabled
	}
	if err != nil {
		return fmt.Errorf("two-factor service: load credential: %w", err)
	}
	if !credential.Enabled {
		return ErrTwoFactorNotEnabled
	}

	valid, err := s.totp.VerifyCode(userID, code)
	if err != nil {
		return fmt.Errorf("two-factor service: verify code: %w", err)
	}
	if !valid {
		metrics.TwoFactorChecks.WithLabelValues("totp", "failure").Inc()
		return ErrInvalidTwoFactorCode
	}

	if err := s.totp.Delete(userID); err != nil {
		return fmt.Errorf("two-factor service: delete credential: %w", err)
	}
	return nil
}

// VerifyBackupCode consumes one backup code. Matching is case-insensitive
// and each code works exactly once. Codes from a pending enrollment are
// rejected until the secret has been confirmed.
func (s *TwoFactorService) VerifyBackupCode(ctx context.Context, userID, code string) error {
	_ = ensureContext(ctx)

	credential, err := s.totp.Credential(userID)
	if errors.Is(err, mfa.ErrCredentialNotFound) {
		return ErrTwoFactorNotEnabled
	}
	if err != nil {
		return fmt.Errorf("two-factor service: load credential: %w", err)
	}
	if !credential.Enabled {
		return ErrTwoFactorNotEnabled
	}

	consumed, err := s.totp.ConsumeBackupCode(userID, code)
	if err != nil {
		return fmt.Errorf("two-factor service: consume backup code: %w", err)
	}
	if !consumed {
		metrics.TwoFactorChecks.WithLabelValues("backup", "failure").Inc()
		return ErrInvalidTwoFactorCode
	}

	metrics.TwoFactorChecks.WithLabelValues("backup", "success").Inc()
	return nil
}
