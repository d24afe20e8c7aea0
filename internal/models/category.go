package models

// Category is a catalog grouping. A category with a ParentID is a
// subcategory of its parent; nesting is one level deep in practice.
type Category struct {
	BaseModel

	Name        string  `gorm:"not null" json:"name"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	Description string  `json:"description"`
	ParentID    *string `gorm:"type:uuid;index" json:"parent_id"`

	Subcategories []Category   `gorm:"foreignKey:ParentID" json:"subcategories,omitempty"`
	Tags          []ProductTag `gorm:"foreignKey:CategoryID" json:"tags,omitempty"`
}

// ProductTag refines filtering within a category (e.g. Android/Apple).
type ProductTag struct {
	BaseModel

	Name       string `gorm:"not null" json:"name"`
	Slug       string `gorm:"index;not null" json:"slug"`
	CategoryID string `gorm:"type:uuid;index;not null" json:"category_id"`
}

// CategoryMessage holds the WhatsApp message template sent for products of a
// category when the product carries no custom message.
type CategoryMessage struct {
	BaseModel

	CategoryID string `gorm:"type:uuid;uniqueIndex;not null" json:"category_id"`
	Message    string `gorm:"not null" json:"message"`
}
