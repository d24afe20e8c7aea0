package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/models"
	apperrors "github.com/rautatech/catalog/pkg/errors"
)

var (
	// ErrCategoryNotFound indicates the requested category does not exist.
	ErrCategoryNotFound = apperrors.New("CATEGORY_NOT_FOUND", "Category not found", http.StatusNotFound)
	// ErrSlugTaken reports a slug collision on create or update.
	ErrSlugTaken = apperrors.NewConflict("Slug already in use")
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify normalizes a name into a URL-safe slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// CreateCategoryInput describes the fields accepted when creating a category.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Description string
	ParentID    *string
}

// UpdateCategoryInput carries partial category updates; nil fields are left
// untouched.
type UpdateCategoryInput struct {
	Name        *string
	Slug        *string
	Description *string
}

// CategoryService manages the category tree, its tags, and the per-category
// WhatsApp message templates.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService constructs a CategoryService instance.
func NewCategoryService(db *gorm.DB) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	return &CategoryService{db: db}, nil
}

// List returns the top-level categories with subcategories and tags preloaded.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	ctx = ensureContext(ctx)

	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("parent_id IS NULL").
		Preload("Subcategories").
		Preload("Subcategories.Tags").
		Preload("Tags").
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("category service: list categories: %w", err)
	}
	return categories, nil
}

// GetByID loads a category with subcategories and tags.
func (s *CategoryService) GetByID(ctx context.Context, id string) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	err := s.db.WithContext(ctx).
		Preload("Subcategories").
		Preload("Subcategories.Tags").
		Preload("Tags").
		First(&category, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category service: get category: %w", err)
	}
	return &category, nil
}

// GetBySlug loads a category by slug with subcategories and tags.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	err := s.db.WithContext(ctx).
		Preload("Subcategories").
		Preload("Subcategories.Tags").
		Preload("Tags").
		First(&category, "slug = ?", strings.TrimSpace(slug)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category service: get category by slug: %w", err)
	}
	return &category, nil
}

// Create inserts a category. A ParentID turns it into a subcategory of an
// existing category; the parent must exist.
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, apperrors.NewBadRequest("slug could not be derived from name")
	}

	if input.ParentID != nil {
		if _, err := s.GetByID(ctx, *input.ParentID); err != nil {
			return nil, err
		}
	}

	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		ParentID:    input.ParentID,
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("category service: create category: %w", err)
	}

	return category, nil
}

// Update applies partial changes to a category.
func (s *CategoryService) Update(ctx context.Context, id string, input UpdateCategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Slug != nil {
		slug := strings.TrimSpace(*input.Slug)
		if slug == "" {
			return nil, apperrors.NewBadRequest("slug cannot be empty")
		}
		updates["slug"] = slug
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("category service: update category: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Delete removes a category along with its subcategories, tags, message
// templates, and deactivates the products that pointed at them.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	category, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ids := []string{category.ID}
	for _, sub := range category.Subcategories {
		ids = append(ids, sub.ID)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("category_id IN ? AND is_active = ?", ids, true).
			Updates(map[string]any{"is_active": false, "deactivated_at": gorm.Expr("CURRENT_TIMESTAMP")}).Error; err != nil {
			return fmt.Errorf("category service: deactivate products: %w", err)
		}
		if err := tx.Where("category_id IN ?", ids).Delete(&models.ProductTag{}).Error; err != nil {
			return fmt.Errorf("category service: delete tags: %w", err)
		}
		if err := tx.Where("category_id IN ?", ids).Delete(&models.CategoryMessage{}).Error; err != nil {
			return fmt.Errorf("category service: delete messages: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Category{}).Error; err != nil {
			return fmt.Errorf("category service: delete categories: %w", err)
		}
		return nil
	})
}

// Message returns the WhatsApp message template for a category, or "" when
// none is configured.
func (s *CategoryService) Message(ctx context.Context, categoryID string) (string, error) {
	ctx = ensureContext(ctx)

	var message models.CategoryMessage
	err := s.db.WithContext(ctx).First(&message, "category_id = ?", categoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("category service: get message: %w", err)
	}
	return message.Message, nil
}

// SetMessage stores or replaces the WhatsApp message template for a
// category. An empty message removes the template.
func (s *CategoryService) SetMessage(ctx context.Context, categoryID, message string) error {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, categoryID); err != nil {
		return err
	}

	message = strings.TrimSpace(message)
	if message == "" {
		if err := s.db.WithContext(ctx).Where("category_id = ?", categoryID).Delete(&models.CategoryMessage{}).Error; err != nil {
			return fmt.Errorf("category service: clear message: %w", err)
		}
		return nil
	}

	var existing models.CategoryMessage
	err := s.db.WithContext(ctx).First(&existing, "category_id = ?", categoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := models.CategoryMessage{CategoryID: categoryID, Message: message}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("category service: create message: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("category service: load message: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&existing).Update("message", message).Error; err != nil {
		return fmt.Errorf("category service: update message: %w", err)
	}
	return nil
}
