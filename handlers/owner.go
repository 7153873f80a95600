package handlers

import (
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type OwnerHandler struct {
	orders services.OrderService
}

func NewOwnerHandler(orders services.OrderService) *OwnerHandler {
	return &OwnerHandler{orders: orders}
}

// Summary returns order counts per status and delivered revenue for the caller's restaurants
func (h *OwnerHandler) Summary(c *gin.Context) {
	summary, err := h.orders.Summary(c.Request.Context(), actorOf(c), c.Query("restaurant_id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
