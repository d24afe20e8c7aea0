package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enumerates the two capability levels the platform knows about.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User describes an account. Password may be empty for externally
// authenticated accounts; such accounts cannot log in with credentials.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `json:"-"`
	Name     string `json:"name"`

	Role Role `gorm:"type:varchar(16);default:user;not null" json:"role"`

	TwoFactor *TwoFactorCredential `gorm:"foreignKey:UserID" json:"-"`

	LastSignedInAt *time.Time `json:"last_signed_in_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
