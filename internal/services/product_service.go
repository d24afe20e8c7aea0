package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/models"
	apperrors "github.com/rautatech/catalog/pkg/errors"
)

// ErrProductNotFound indicates the requested product does not exist or is
// not visible to the caller.
var ErrProductNotFound = apperrors.New("PRODUCT_NOT_FOUND", "Product not found", http.StatusNotFound)

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID      string
	TagID           string
	Search          string
	IncludeInactive bool
}

// CreateProductInput describes the fields accepted when creating a product.
type CreateProductInput struct {
	Name          string
	Description   string
	PriceCents    int64
	CategoryID    string
	TagID         *string
	ImageURL      string
	CustomMessage string
}

// UpdateProductInput carries partial product updates; nil fields are left
// untouched.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	PriceCents    *int64
	CategoryID    *string
	TagID         *string
	ImageURL      *string
	CustomMessage *string
	IsActive      *bool
}

// ProductService manages catalog products. Deletion is a soft deactivate so
// shared product links never dangle; reactivation is a plain update.
type ProductService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProductService constructs a ProductService instance.
func NewProductService(db *gorm.DB) (*ProductService, error) {
	if db == nil {
		return nil, errors.New("product service: db is required")
	}
	return &ProductService{db: db, now: time.Now}, nil
}

// List returns products matching the filter, newest first. Inactive products
// are excluded unless the filter asks for them.
func (s *ProductService) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Product{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.TagID != "" {
		query = query.Where("tag_id = ?", filter.TagID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("product service: list products: %w", err)
	}
	return products, nil
}

// GetByID loads a product. Inactive products are only returned when
// includeInactive is set, so the public surface never exposes them.
func (s *ProductService) GetByID(ctx context.Context, id string, includeInactive bool) (*models.Product, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var product models.Product
	err := query.First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product service: get product: %w", err)
	}
	return &product, nil
}

// Create inserts a product into an existing category.
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if input.PriceCents < 0 {
		return nil, apperrors.NewBadRequest("price cannot be negative")
	}

	var category models.Category
	err := s.db.WithContext(ctx).First(&category, "id = ?", input.CategoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product service: load category: %w", err)
	}

	if input.TagID != nil {
		var tag models.ProductTag
		err := s.db.WithContext(ctx).First(&tag, "id = ?", *input.TagID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("product service: load tag: %w", err)
		}
	}

	product := &models.Product{
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		PriceCents:    input.PriceCents,
		CategoryID:    category.ID,
		TagID:         input.TagID,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		CustomMessage: strings.TrimSpace(input.CustomMessage),
		IsActive:      true,
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("product service: create product: %w", err)
	}
	return product, nil
}

// Update applies partial changes to a product, including reactivation.
func (s *ProductService) Update(ctx context.Context, id string, input UpdateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	product, err := s.GetByID(ctx, id, true)
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
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, apperrors.NewBadRequest("price cannot be negative")
		}
		updates["price_cents"] = *input.PriceCents
	}
	if input.CategoryID != nil {
		var category models.Category
		err := s.db.WithContext(ctx).First(&category, "id = ?", *input.CategoryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("product service: load category: %w", err)
		}
		updates["category_id"] = category.ID
	}
	if input.TagID != nil {
		if *input.TagID == "" {
			updates["tag_id"] = nil
		} else {
			var tag models.ProductTag
			err := s.db.WithContext(ctx).First(&tag, "id = ?", *input.TagID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTagNotFound
			}
			if err != nil {
				return nil, fmt.Errorf("product service: load tag: %w", err)
			}
			updates["tag_id"] = tag.ID
		}
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if input.CustomMessage != nil {
		updates["custom_message"] = strings.TrimSpace(*input.CustomMessage)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
		if *input.IsActive {
			updates["deactivated_at"] = nil
		} else {
			updates["deactivated_at"] = s.now().UTC()
		}
	}

	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("product service: update product: %w", err)
	}

	return s.GetByID(ctx, id, true)
}

// Delete deactivates a product. The row survives so existing links keep
// resolving for admins; public listings stop showing it immediately.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	product, err := s.GetByID(ctx, id, true)
	if err != nil {
		return err
	}

	if !product.IsActive {
		return nil
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(product).
		Updates(map[string]any{"is_active": false, "deactivated_at": now}).Error; err != nil {
		return fmt.Errorf("product service: deactivate product: %w", err)
	}
	return nil
}

// PurgeDeactivated hard-deletes products deactivated before the cutoff and
// returns the number of rows removed. The maintenance cleaner calls this.
func (s *ProductService) PurgeDeactivated(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("is_active = ? AND deactivated_at IS NOT NULL AND deactivated_at < ?", false, cutoff).
		Delete(&models.Product{})
	if result.Error != nil {
		return 0, fmt.Errorf("product service: purge deactivated: %w", result.Error)
	}
	return result.RowsAffected, nil
}
