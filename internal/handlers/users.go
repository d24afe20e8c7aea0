package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/errors"
	"github.com/rautatech/catalog/pkg/response"
)

// UserHandler exposes the admin-only account management endpoints.
type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"max=120"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type updatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.service.Create(requestContext(c), services.CreateUserInput{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
		Role:     models.Role(body.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// PUT /api/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var body updateRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.service.UpdateRole(requestContext(c), c.Param("id"), models.Role(body.Role))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/:id/password
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var body updatePasswordRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.ChangePassword(requestContext(c), c.Param("id"), body.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, errors.ErrForbidden)
		return
	}
	if caller.ID == c.Param("id") {
		response.Error(c, errors.NewBadRequest("cannot delete your own account"))
		return
	}

	if err := h.service.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
