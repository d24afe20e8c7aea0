package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/models"
	apperrors "github.com/rautatech/catalog/pkg/errors"
)

// ErrTagNotFound indicates the requested tag does not exist.
var ErrTagNotFound = apperrors.New("TAG_NOT_FOUND", "Tag not found", http.StatusNotFound)

// TagService manages the per-category product tags.
type TagService struct {
	db *gorm.DB
}

// NewTagService constructs a TagService instance.
func NewTagService(db *gorm.DB) (*TagService, error) {
	if db == nil {
		return nil, errors.New("tag service: db is required")
	}
	return &TagService{db: db}, nil
}

// ListByCategory returns the tags attached to a category.
func (s *TagService) ListByCategory(ctx context.Context, categoryID string) ([]models.ProductTag, error) {
	ctx = ensureContext(ctx)

	var tags []models.ProductTag
	err := s.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("tag service: list tags: %w", err)
	}
	return tags, nil
}

// GetByID loads a tag by identifier.
func (s *TagService) GetByID(ctx context.Context, id string) (*models.ProductTag, error) {
	ctx = ensureContext(ctx)

	var tag models.ProductTag
	err := s.db.WithContext(ctx).First(&tag, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tag service: get tag: %w", err)
	}
	return &tag, nil
}

// Create attaches a new tag to an existing category.
func (s *TagService) Create(ctx context.Context, categoryID, name string) (*models.ProductTag, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	var category models.Category
	err := s.db.WithContext(ctx).First(&category, "id = ?", categoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tag service: load category: %w", err)
	}

	tag := &models.ProductTag{
		Name:       name,
		Slug:       Slugify(name),
		CategoryID: category.ID,
	}

	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, fmt.Errorf("tag service: create tag: %w", err)
	}
	return tag, nil
}

// Delete removes a tag and detaches it from products that referenced it.
func (s *TagService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	tag, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("tag_id = ?", tag.ID).
			Update("tag_id", nil).Error; err != nil {
			return fmt.Errorf("tag service: detach products: %w", err)
		}
		if err := tx.Delete(tag).Error; err != nil {
			return fmt.Errorf("tag service: delete tag: %w", err)
		}
		return nil
	})
}
