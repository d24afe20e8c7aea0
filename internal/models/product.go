package models

import "time"

// Product is a catalog entry. Price is stored in cents to avoid decimal
// drift. Deleting a product deactivates it rather than removing the row.
type Product struct {
	BaseModel

	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	PriceCents  int64   `gorm:"not null" json:"price_cents"`
	CategoryID  string  `gorm:"type:uuid;index;not null" json:"category_id"`
	TagID       *string `gorm:"type:uuid;index" json:"tag_id"`

	ImageURL      string `json:"image_url"`
	CustomMessage string `json:"custom_message"`

	IsActive      bool       `gorm:"default:true;not null" json:"is_active"`
	DeactivatedAt *time.Time `json:"-"`
}
