package handlers

import (
	"net/http"

	"food-ordering-api/apperror"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	auth services.AuthService
}

func NewAdminHandler(auth services.AuthService) *AdminHandler {
	return &AdminHandler{auth: auth}
}

type UpdateRoleRequest struct {
	Role         string `json:"role" binding:"required,oneof=customer owner admin"`
	RestaurantID string `json:"restaurant_id"`
}

// UpdateUserRole changes a user's role and optionally assigns a restaurant to a new owner
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		middleware.AbortWithError(c, apperror.Wrap(apperror.InvalidInput, err, err.Error()))
		return
	}

	user, err := h.auth.UpdateRole(c.Request.Context(), c.Param("id"), role, req.RestaurantID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User role updated",
		"user":    user,
	})
}
