package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/response"
)

// CategoryHandler exposes public catalog browsing and admin category
// management, including the per-category WhatsApp message template.
type CategoryHandler struct {
	service *services.CategoryService
	tags    *services.TagService
}

func NewCategoryHandler(service *services.CategoryService, tags *services.TagService) *CategoryHandler {
	return &CategoryHandler{service: service, tags: tags}
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug" validate:"omitempty,max=120"`
	Description string  `json:"description" validate:"max=500"`
	ParentID    *string `json:"parent_id"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Slug        *string `json:"slug" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type createTagRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type setMessageRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

// GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.service.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, categories)
}

// GET /api/categories/slug/:slug
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.service.GetBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// GET /api/categories/:id
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.service.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var body createCategoryRequest
	if !bindAndValidate(c, &body) {
		return
	}

	category, err := h.service.Create(requestContext(c), services.CreateCategoryInput{
		Name:        body.Name,
		Slug:        body.Slug,
		Description: body.Description,
		ParentID:    body.ParentID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, category)
}

// PUT /api/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	var body updateCategoryRequest
	if !bindAndValidate(c, &body) {
		return
	}

	category, err := h.service.Update(requestContext(c), c.Param("id"), services.UpdateCategoryInput{
		Name:        body.Name,
		Slug:        body.Slug,
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, category)
}

// DELETE /api/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/categories/:id/tags
func (h *CategoryHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.ListByCategory(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tags)
}

// POST /api/categories/:id/tags
func (h *CategoryHandler) CreateTag(c *gin.Context) {
	var body createTagRequest
	if !bindAndValidate(c, &body) {
		return
	}

	tag, err := h.tags.Create(requestContext(c), c.Param("id"), body.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, tag)
}

// DELETE /api/tags/:id
func (h *CategoryHandler) DeleteTag(c *gin.Context) {
	if err := h.tags.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/categories/:id/message
func (h *CategoryHandler) GetMessage(c *gin.Context) {
	if _, err := h.service.GetByID(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	message, err := h.service.Message(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": message})
}

// PUT /api/categories/:id/message
func (h *CategoryHandler) SetMessage(c *gin.Context) {
	var body setMessageRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.SetMessage(requestContext(c), c.Param("id"), body.Message); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": body.Message})
}
