package mfa

import (
	cryptoRand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/pkg/crypto"
)

const (
	defaultIssuer          = "Rauta Tech"
	defaultBackupCodeCount = 10
	defaultQRCodeSize      = 256

	// backupCodeLength is the number of characters in a backup code.
	backupCodeLength = 8

	// skewSteps tolerates clock drift and typing delay: the submitted code
	// may match the current 30-second step or any step within ±2 steps.
	skewSteps = 2
)

// backupCodeAlphabet excludes lowercase so codes survive case-insensitive entry.
const backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrCredentialNotFound is returned when a user has never provisioned a secret.
var ErrCredentialNotFound = errors.New("mfa: credential not found")

// Option allows customising the TOTP service.
type Option func(*TOTPService)

// WithIssuer overrides the default issuer string encoded in provisioning URIs.
func WithIssuer(issuer string) Option {
	return func(s *TOTPService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = issuer
		}
	}
}

// WithBackupCodeCount overrides the number of backup codes generated for users.
func WithBackupCodeCount(count int) Option {
	return func(s *TOTPService) {
		if count > 0 {
			s.backupCodes = count
		}
	}
}

// WithQRCodeSize controls the pixel size of generated QR codes.
func WithQRCodeSize(size int) Option {
	return func(s *TOTPService) {
		if size > 0 {
			s.qrCodeSize = size
		}
	}
}

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *TOTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Enrollment carries everything the user needs to finish setting up their
// authenticator: the base32 secret, the provisioning URI, the QR code as a
// data URI, and the one-time backup codes. None of it is shown again.
type Enrollment struct {
	Secret      string
	OTPAuthURL  string
	QRCode      string
	BackupCodes []string
}

// TOTPService manages two-factor credentials: secret provisioning, code
// verification, backup code consumption, and the enabled flag.
type TOTPService struct {
	db            *gorm.DB
	encryptionKey []byte

	issuer      string
	backupCodes int
	qrCodeSize  int
	now         func() time.Time
}

// NewTOTPService constructs a TOTP service backed by the provided database.
func NewTOTPService(db *gorm.DB, encryptionKey []byte, opts ...Option) (*TOTPService, error) {
	if db == nil {
		return nil, errors.New("mfa: db is required")
	}
	if len(encryptionKey) == 0 {
		return nil, errors.New("mfa: encryption key is required")
	}

	service := &TOTPService{
		db:            db,
		encryptionKey: encryptionKey,
		issuer:        defaultIssuer,
		backupCodes:   defaultBackupCodeCount,
		qrCodeSize:    defaultQRCodeSize,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// GenerateSecret provisions a new secret and backup codes for a user. The
// credential is persisted disabled (pending) and overwrites any prior
// secret, so a regenerate always restarts the confirmation handshake.
func (s *TOTPService) GenerateSecret(userID, accountName string) (*Enrollment, error) {
	userID = strings.TrimSpace(userID)
	accountName = strings.TrimSpace(accountName)

	if userID == "" || accountName == "" {
		return nil, errors.New("mfa: user id and account name are required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, fmt.Errorf("mfa: generate key: %w", err)
	}

	backupCodes, err := s.generateBackupCodes()
	if err != nil {
		return nil, err
	}

	encryptedSecret, err := crypto.Encrypt([]byte(key.Secret()), s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("mfa: encrypt secret: %w", err)
	}

	codesJSON, err := json.Marshal(backupCodes)
	if err != nil {
		return nil, fmt.Errorf("mfa: marshal backup codes: %w", err)
	}

	var credential models.TwoFactorCredential
	if err := s.db.Where("user_id = ?", userID).First(&credential).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("mfa: load credential: %w", err)
		}

		credential = models.TwoFactorCredential{
			UserID:      userID,
			Secret:      encryptedSecret,
			Enabled:     false,
			BackupCodes: datatypes.JSON(codesJSON),
		}

		if err := s.db.Create(&credential).Error; err != nil {
			return nil, fmt.Errorf("mfa: create credential: %w", err)
		}
	} else {
		credential.Secret = encryptedSecret
		credential.Enabled = false
		credential.BackupCodes = datatypes.JSON(codesJSON)

		if err := s.db.Save(&credential).Error; err != nil {
			return nil, fmt.Errorf("mfa: update credential: %w", err)
		}
	}

	qr, err := s.renderQRCode(key)
	if err != nil {
		return nil, err
	}

	return &Enrollment{
		Secret:      key.Secret(),
		OTPAuthURL:  key.String(),
		QRCode:      qr,
		BackupCodes: backupCodes,
	}, nil
}

// Credential loads the stored credential, or ErrCredentialNotFound when the
// user never generated a secret.
func (s *TOTPService) Credential(userID string) (*models.TwoFactorCredential, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("mfa: user id is required")
	}

	var credential models.TwoFactorCredential
	if err := s.db.Where("user_id = ?", userID).First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("mfa: load credential: %w", err)
	}

	return &credential, nil
}

// VerifyCode checks a submitted TOTP code against the stored secret within
// the skew window. Malformed codes or secrets verify false, never panic.
func (s *TOTPService) VerifyCode(userID, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}

	credential, err := s.Credential(userID)
	if err != nil {
		return false, err
	}

	rawSecret, err := crypto.Decrypt(credential.Secret, s.encryptionKey)
	if err != nil {
		return false, fmt.Errorf("mfa: decrypt secret: %w", err)
	}

	valid, err := totp.ValidateCustom(code, string(rawSecret), s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      skewSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// Malformed input is a failed verification, not a server error.
		return false, nil
	}

	return valid, nil
}

// SetEnabled flips the enabled flag for an existing credential.
func (s *TOTPService) SetEnabled(userID string, enabled bool) error {
	credential, err := s.Credential(userID)
	if err != nil {
		return err
	}

	if err := s.db.Model(credential).Update("enabled", enabled).Error; err != nil {
		return fmt.Errorf("mfa: update enabled flag: %w", err)
	}
	return nil
}

// Delete removes the credential entirely, returning the account to the
// not-configured state.
func (s *TOTPService) Delete(userID string) error {
	credential, err := s.Credential(userID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(credential).Error; err != nil {
		return fmt.Errorf("mfa: delete credential: %w", err)
	}
	return nil
}

// ConsumeBackupCode validates and consumes a single backup code. Matching is
// case-insensitive; on success exactly the matched entry is removed. A code
// can never be used twice.
func (s *TOTPService) ConsumeBackupCode(userID, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false, nil
	}

	credential, err := s.Credential(userID)
	if err != nil {
		return false, err
	}

	var codes []string
	if err := json.Unmarshal(credential.BackupCodes, &codes); err != nil {
		return false, fmt.Errorf("mfa: unmarshal backup codes: %w", err)
	}

	consumed := false
	for i, stored := range codes {
		if strings.ToUpper(stored) == code {
			codes = append(codes[:i], codes[i+1:]...)
			consumed = true
			break
		}
	}

	if !consumed {
		return false, nil
	}

	encoded, err := json.Marshal(codes)
	if err != nil {
		return false, fmt.Errorf("mfa: marshal backup codes: %w", err)
	}

	if err := s.db.Model(credential).Update("backup_codes", datatypes.JSON(encoded)).Error; err != nil {
		return false, fmt.Errorf("mfa: update backup codes: %w", err)
	}

	return true, nil
}

// RemainingBackupCodes returns the number of backup codes still available.
func (s *TOTPService) RemainingBackupCodes(userID string) (int, error) {
	credential, err := s.Credential(userID)
	if err != nil {
		return 0, err
	}

	var codes []string
	if err := json.Unmarshal(credential.BackupCodes, &codes); err != nil {
		return 0, fmt.Errorf("mfa: unmarshal backup codes: %w", err)
	}

	return len(codes), nil
}

func (s *TOTPService) renderQRCode(key *otp.Key) (string, error) {
	png, err := qrcode.Encode(key.String(), qrcode.Medium, s.qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("mfa: render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// generateBackupCodes produces the configured number of codes, retrying on
// the (unlikely) duplicate within a batch so every code is unique.
func (s *TOTPService) generateBackupCodes() ([]string, error) {
	seen := make(map[string]struct{}, s.backupCodes)
	codes := make([]string, 0, s.backupCodes)

	for len(codes) < s.backupCodes {
		code, err := generateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("mfa: generate backup code: %w", err)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

func generateBackupCode() (string, error) {
	buf := make([]byte, backupCodeLength)
	if _, err := cryptoRand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, backupCodeLength)
	for i, b := range buf {
		out[i] = backupCodeAlphabet[int(b)%len(backupCodeAlphabet)]
	}
	return string(out), nil
}
