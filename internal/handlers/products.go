package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/logger"
	"github.com/rautatech/catalog/pkg/response"
	"github.com/rautatech/catalog/pkg/whatsapp"
)

// ProductHandler exposes the public product catalog and the admin product
// management endpoints. Public payloads carry a ready-made WhatsApp deep
// link so the storefront never assembles purchase messages itself.
type ProductHandler struct {
	service        *services.ProductService
	categories     *services.CategoryService
	whatsappNumber string
}

func NewProductHandler(service *services.ProductService, categories *services.CategoryService, whatsappNumber string) *ProductHandler {
	return &ProductHandler{
		service:        service,
		categories:     categories,
		whatsappNumber: whatsappNumber,
	}
}

type createProductRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Description   string  `json:"description" validate:"max=2000"`
	PriceCents    int64   `json:"price_cents" validate:"min=0"`
	CategoryID    string  `json:"category_id" validate:"required"`
	TagID         *string `json:"tag_id"`
	ImageURL      string  `json:"image_url" validate:"omitempty,url"`
	CustomMessage string  `json:"custom_message" validate:"max=1000"`
}

type updateProductRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	PriceCents    *int64  `json:"price_cents" validate:"omitempty,min=0"`
	CategoryID    *string `json:"category_id"`
	TagID         *string `json:"tag_id"`
	ImageURL      *string `json:"image_url" validate:"omitempty,url"`
	CustomMessage *string `json:"custom_message" validate:"omitempty,max=1000"`
	IsActive      *bool   `json:"is_active"`
}

// productView augments a product with its WhatsApp hand-off link.
type productView struct {
	models.Product
	WhatsAppURL string `json:"whatsapp_url"`
}

func (h *ProductHandler) view(c *gin.Context, product models.Product) productView {
	template, err := h.categories.Message(requestContext(c), product.CategoryID)
	if err != nil {
		// A missing template only affects the fallback message.
		logger.WithModule("catalog").Warn("load category message", zap.Error(err))
		template = ""
	}

	message := whatsapp.ResolveMessage(product.Name, product.PriceCents, product.CustomMessage, template)
	return productView{
		Product:     product,
		WhatsAppURL: whatsapp.BuildLink(h.whatsappNumber, message),
	}
}

func (h *ProductHandler) views(c *gin.Context, products []models.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, product := range products {
		out = append(out, h.view(c, product))
	}
	return out
}

// GET /api/products
//
// Public listing: only active products; filterable by category, tag, and a
// free-text search.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.service.List(requestContext(c), services.ProductFilter{
		CategoryID: c.Query("category_id"),
		TagID:      c.Query("tag_id"),
		Search:     c.Query("q"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.views(c, products))
}

// GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.service.GetByID(requestContext(c), c.Param("id"), false)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.view(c, *product))
}

// GET /api/admin/products
//
// Admin listing includes deactivated products.
func (h *ProductHandler) ListAll(c *gin.Context) {
	products, err := h.service.List(requestContext(c), services.ProductFilter{
		CategoryID:      c.Query("category_id"),
		TagID:           c.Query("tag_id"),
		Search:          c.Query("q"),
		IncludeInactive: true,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.views(c, products))
}

// POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	var body createProductRequest
	if !bindAndValidate(c, &body) {
		return
	}

	product, err := h.service.Create(requestContext(c), services.CreateProductInput{
		Name:          body.Name,
		Description:   body.Description,
		PriceCents:    body.PriceCents,
		CategoryID:    body.CategoryID,
		TagID:         body.TagID,
		ImageURL:      body.ImageURL,
		CustomMessage: body.CustomMessage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, h.view(c, *product))
}

// PUT /api/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var body updateProductRequest
	if !bindAndValidate(c, &body) {
		return
	}

	product, err := h.service.Update(requestContext(c), c.Param("id"), services.UpdateProductInput{
		Name:          body.Name,
		Description:   body.Description,
		PriceCents:    body.PriceCents,
		CategoryID:    body.CategoryID,
		TagID:         body.TagID,
		ImageURL:      body.ImageURL,
		CustomMessage: body.CustomMessage,
		IsActive:      body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.view(c, *product))
}

// DELETE /api/products/:id
//
// Deactivates the product; the row is kept so shared links stay resolvable
// for admins.
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
