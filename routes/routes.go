package routes

import (
	"food-ordering-api/handlers"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	Orders *handlers.OrderHandler
	Owner  *handlers.OwnerHandler
	Admin  *handlers.AdminHandler
	Public *handlers.PublicHandler
}

// NewRouter builds the engine with the shared middleware chain and all routes.
func NewRouter(log *zap.Logger, tokens *token.Service, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recover(log),
		middleware.CORS(),
	)
	SetupRoutes(r, tokens, h)
	return r
}

func SetupRoutes(r *gin.Engine, tokens *token.Service, h Handlers) {
	handlers.UseJSONFieldNames()

	// ── Public routes ──────────────────────────────────────────────
	r.GET("/health", h.Public.Health)
	r.GET("/state-machine", h.Public.GetStateMachineInfo)
	r.GET("/restaurants/:id", h.Public.GetRestaurant)
	r.GET("/restaurants/:id/menu", h.Public.GetMenu)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/auth")
	authed.Use(middleware.AuthRequired(tokens))
	{
		authed.GET("/me", h.Auth.Me)
		authed.PUT("/me", h.Auth.UpdateProfile)
		authed.PUT("/password", h.Auth.ChangePassword)
	}

	// ── Orders: the state machine narrows each edge further ────────
	orders := r.Group("/orders")
	orders.Use(middleware.AuthRequired(tokens))
	{
		orders.POST("", middleware.RoleRequired(models.RoleCustomer), h.Orders.PlaceOrder)
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PATCH("/:id/status",
			middleware.RoleRequired(models.RoleCustomer, models.RoleOwner, models.RoleAdmin),
			h.Orders.UpdateOrderStatus)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	owner := r.Group("/owner")
	owner.Use(middleware.AuthRequired(tokens), middleware.RoleRequired(models.RoleOwner, models.RoleAdmin))
	{
		owner.GET("/summary", h.Owner.Summary)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(tokens), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.PUT("/users/:id/role", h.Admin.UpdateUserRole)
	}
}
