package handlers

import (
	"context"
	"net/http"
	"time"

	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/statemachine"
	"food-ordering-api/store"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PublicHandler struct {
	catalog store.Catalog
	db      Pinger
	name    string
	timeout time.Duration
}

// NewPublicHandler bounds every catalog read by storeTimeout. Zero means no bound.
func NewPublicHandler(catalog store.Catalog, db Pinger, name string, storeTimeout time.Duration) *PublicHandler {
	return &PublicHandler{catalog: catalog, db: db, name: name, timeout: storeTimeout}
}

func (h *PublicHandler) storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// Health reports liveness and store reachability
func (h *PublicHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": h.name,
			"store":   "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.name,
		"store":   "ok",
	})
}

// GetRestaurant returns a single restaurant (public)
func (h *PublicHandler) GetRestaurant(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()

	restaurant, err := h.catalog.Restaurant(ctx, c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the menu for a specific restaurant (public)
func (h *PublicHandler) GetMenu(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()

	restaurant, err := h.catalog.Restaurant(ctx, c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	items, err := h.catalog.MenuItems(ctx, restaurant.ID, nil)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	category := c.Query("category")
	vegOnly := c.Query("is_veg") == "true"
	menu := make([]models.MenuItem, 0, len(items))
	for _, it := range items {
		if category != "" && it.Category != category {
			continue
		}
		if vegOnly && !it.IsVeg {
			continue
		}
		menu = append(menu, it)
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(menu),
		"menu":       menu,
	})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *PublicHandler) GetStateMachineInfo(c *gin.Context) {
	var terminal []models.OrderStatus
	for _, st := range models.OrderStatuses() {
		if statemachine.IsTerminal(st) {
			terminal = append(terminal, st)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"statuses":        models.OrderStatuses(),
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": terminal,
		"description":     "Food Ordering Order Lifecycle State Machine",
	})
}
