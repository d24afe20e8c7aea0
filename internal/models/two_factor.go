package models

import (
	"gorm.io/datatypes"
)

// TwoFactorState captures the explicit three-state lifecycle of a credential.
type TwoFactorState string

const (
	// TwoFactorNotConfigured means no credential row exists for the user.
	TwoFactorNotConfigured TwoFactorState = "not_configured"
	// TwoFactorPending means a secret was provisioned but never confirmed.
	TwoFactorPending TwoFactorState = "pending"
	// TwoFactorEnabled means the secret was confirmed with a valid code.
	TwoFactorEnabled TwoFactorState = "enabled"
)

// TwoFactorCredential stores a user's TOTP secret and backup codes.
// The secret is AES-GCM encrypted at rest; backup codes are a JSON array of
// upper-cased one-time strings, consumed one at a time.
type TwoFactorCredential struct {
	BaseModel

	UserID      string         `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Secret      string         `gorm:"not null" json:"-"`
	Enabled     bool           `gorm:"default:false;not null" json:"enabled"`
	BackupCodes datatypes.JSON `json:"-"`
}

// State derives the explicit lifecycle state from the stored row. A nil
// receiver means no credential was ever provisioned.
func (c *TwoFactorCredential) State() TwoFactorState {
	switch {
	case c == nil:
		return TwoFactorNotConfigured
	case c.Enabled:
		return TwoFactorEnabled
	default:
		return TwoFactorPending
	}
}
