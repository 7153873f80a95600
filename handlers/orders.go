package handlers

import (
	"net/http"
	"strconv"

	"food-ordering-api/apperror"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/services"
	"food-ordering-api/statemachine"

	"github.com/gin-gonic/gin"
)

const maxListLimit = 200

type OrderHandler struct {
	orders services.OrderService
}

func NewOrderHandler(orders services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type PlaceOrderItem struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1,max=100"`
}

type PlaceOrderRequest struct {
	RestaurantID    string           `json:"restaurant_id" binding:"required"`
	Items           []PlaceOrderItem `json:"items" binding:"required,min=1,max=50,dive"`
	DeliveryAddress string           `json:"delivery_address" binding:"required,max=255"`
	Notes           string           `json:"notes" binding:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PlaceOrder creates a new order; prices are taken from the menu, never the client
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	items := make([]services.PlaceItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = services.PlaceItem{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
	}
	order, err := h.orders.Place(c.Request.Context(), actorOf(c), services.PlaceOrderInput{
		RestaurantID:    req.RestaurantID,
		Items:           items,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// ListOrders returns the orders visible to the caller
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := services.ListFilter{
		CustomerID:   c.Query("customer_id"),
		RestaurantID: c.Query("restaurant_id"),
	}
	if s := c.Query("status"); s != "" {
		st, err := parseStatus(s)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		filter.Status = st
	}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > maxListLimit {
			middleware.AbortWithError(c, apperror.New(apperror.InvalidInput, "limit must be between 1 and 200"))
			return
		}
		filter.Limit = n
	}

	orders, err := h.orders.List(c.Request.Context(), actorOf(c), filter)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrder returns a single order's full detail with history
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"), actorOf(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":             order,
		"valid_transitions": nextStatuses(order.Status),
	})
}

// UpdateOrderStatus moves an order along the lifecycle
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := parseStatus(req.Status)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), c.Param("id"), target, actorOf(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Order status updated to " + string(order.Status),
		"order":             order,
		"valid_transitions": nextStatuses(order.Status),
	})
}

func nextStatuses(st models.OrderStatus) []models.OrderStatus {
	next := statemachine.ValidTransitionsFrom(st)
	if next == nil {
		return []models.OrderStatus{}
	}
	return next
}
