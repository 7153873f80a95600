package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/events"
	"food-ordering-api/models"
	"food-ordering-api/statemachine"
	"food-ordering-api/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	producerName     = "food-ordering-api"
	maxItemQuantity  = 100
	maxLinesPerOrder = 50
)

type PlaceItem struct {
	MenuItemID string
	Quantity   int
}

type PlaceOrderInput struct {
	RestaurantID    string
	Items           []PlaceItem
	DeliveryAddress string
	Notes           string
}

// ListFilter is what callers may ask for. Visibility is narrowed by role.
type ListFilter struct {
	Status       models.OrderStatus
	CustomerID   string
	RestaurantID string
	Limit        int
}

// Summary is the owner dashboard view over a set of restaurants.
type Summary struct {
	RestaurantIDs         []string                   `json:"restaurant_ids"`
	TotalOrders           int                        `json:"total_orders"`
	PendingOrders         int                        `json:"pending_orders"`
	ByStatus              map[models.OrderStatus]int `json:"by_status"`
	DeliveredRevenueCents int64                      `json:"delivered_revenue_cents"`
}

type OrderService interface {
	Place(ctx context.Context, actor statemachine.Actor, in PlaceOrderInput) (*models.Order, error)
	// Transition moves an order along one edge of the lifecycle. Errors:
	// NotFound, InvalidTransition, Forbidden, Conflict, Unavailable.
	Transition(ctx context.Context, orderID string, target models.OrderStatus, actor statemachine.Actor) (*models.Order, error)
	Get(ctx context.Context, orderID string, actor statemachine.Actor) (*models.Order, error)
	List(ctx context.Context, actor statemachine.Actor, filter ListFilter) ([]models.Order, error)
	Summary(ctx context.Context, actor statemachine.Actor, restaurantID string) (*Summary, error)
}

type orderService struct {
	orders    store.OrderRepository
	catalog   store.Catalog
	publisher events.Publisher
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderService(orders store.OrderRepository, catalog store.Catalog, publisher events.Publisher, storeTimeout time.Duration, log *zap.Logger) OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &orderService{
		orders:    orders,
		catalog:   catalog,
		publisher: publisher,
		timeout:   storeTimeout,
		log:       log.With(zap.String("service", "order")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *orderService) Place(ctx context.Context, actor statemachine.Actor, in PlaceOrderInput) (*models.Order, error) {
	if actor.Role != models.RoleCustomer {
		return nil, apperror.New(apperror.Forbidden, "only customers can place orders")
	}
	quantities, ids, err := mergeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return nil, apperror.New(apperror.InvalidInput, "delivery_address is required")
	}

	restaurant, err := s.restaurant(ctx, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.IsOpen {
		return nil, apperror.New(apperror.InvalidInput, "restaurant is currently closed")
	}

	menu, err := s.menuItems(ctx, restaurant.ID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}

	// Prices are snapshotted here; the total never changes afterwards.
	lines := make([]models.LineItem, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, apperror.New(apperror.InvalidInput, fmt.Sprintf("menu item %s not found in restaurant %s", id, restaurant.ID))
		}
		if !m.IsAvailable {
			return nil, apperror.New(apperror.InvalidInput, fmt.Sprintf("%s is not available", m.Name))
		}
		lines = append(lines, models.LineItem{
			MenuItemID:     m.ID,
			Name:           m.Name,
			Quantity:       quantities[id],
			UnitPriceCents: m.PriceCents,
		})
	}

	now := s.now()
	order := &models.Order{
		ID:              uuid.NewString(),
		CustomerID:      actor.ID,
		RestaurantID:    restaurant.ID,
		Status:          models.StatusPlaced,
		TotalCents:      models.OrderTotal(lines),
		Version:         1,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Notes:           in.Notes,
		Items:           lines,
		History: []models.StatusChange{
			{To: models.StatusPlaced, ActorID: actor.ID, ActorRole: actor.Role, At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.orders.Create(cctx, order); err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.String("restaurant_id", order.RestaurantID),
		zap.Int64("total_cents", order.TotalCents),
	)
	s.publish(ctx, order.ID, events.TypeOrderPlaced, events.OrderPlaced{
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		RestaurantID: order.RestaurantID,
		TotalCents:   order.TotalCents,
		ItemCount:    len(order.Items),
	})
	return order, nil
}

// mergeItems validates the requested lines and folds repeated menu items.
func mergeItems(items []PlaceItem) (map[string]int, []string, error) {
	if len(items) == 0 {
		return nil, nil, apperror.New(apperror.InvalidInput, "order must contain at least one item")
	}
	if len(items) > maxLinesPerOrder {
		return nil, nil, apperror.New(apperror.InvalidInput, fmt.Sprintf("an order may contain at most %d lines", maxLinesPerOrder))
	}
	quantities := make(map[string]int, len(items))
	var ids []string
	for _, it := range items {
		id := strings.TrimSpace(it.MenuItemID)
		if id == "" {
			return nil, nil, apperror.New(apperror.InvalidInput, "menu_item_id is required")
		}
		if it.Quantity < 1 {
			return nil, nil, apperror.New(apperror.InvalidInput, "quantity must be at least 1")
		}
		if _, seen := quantities[id]; !seen {
			ids = append(ids, id)
		}
		quantities[id] += it.Quantity
		if quantities[id] > maxItemQuantity {
			return nil, nil, apperror.New(apperror.InvalidInput, fmt.Sprintf("quantity must be at most %d", maxItemQuantity))
		}
	}
	return quantities, ids, nil
}

func (s *orderService) Transition(ctx context.Context, orderID string, target models.OrderStatus, actor statemachine.Actor) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	edge, err := statemachine.Edge(order.Status, target)
	if err != nil {
		return nil, err
	}
	subject := statemachine.Subject{CustomerID: order.CustomerID}
	if edge.Scope == statemachine.ScopeRestaurant && actor.Role == models.RoleOwner {
		restaurant, err := s.restaurant(ctx, order.RestaurantID)
		if err != nil {
			return nil, err
		}
		subject.RestaurantOwnerID = restaurant.OwnerID
	}
	if err := statemachine.Authorize(edge, actor, subject); err != nil {
		s.log.Warn("transition denied",
			zap.String("order_id", order.ID),
			zap.String("actor_id", actor.ID),
			zap.Stringer("actor_role", actor.Role),
			zap.String("to", string(target)),
		)
		return nil, err
	}

	change := models.StatusChange{
		To:        target,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        s.now(),
	}
	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	updated, err := s.orders.ConditionalUpdate(cctx, order.ID, order.Status, change)
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(updated.Status)),
		zap.Int64("version", updated.Version),
		zap.String("actor_id", actor.ID),
	)
	s.publish(ctx, updated.ID, events.TypeOrderStatusChanged, events.OrderStatusChanged{
		OrderID:      updated.ID,
		RestaurantID: updated.RestaurantID,
		From:         string(order.Status),
		To:           string(updated.Status),
		ActorID:      actor.ID,
		ActorRole:    actor.Role.String(),
		Version:      updated.Version,
	})
	return updated, nil
}

func (s *orderService) Get(ctx context.Context, orderID string, actor statemachine.Actor) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
		return order, nil
	case models.RoleCustomer:
		if order.CustomerID == actor.ID {
			return order, nil
		}
	case models.RoleOwner:
		restaurant, err := s.restaurant(ctx, order.RestaurantID)
		if err != nil {
			return nil, err
		}
		if restaurant.OwnerID != "" && restaurant.OwnerID == actor.ID {
			return order, nil
		}
	}
	return nil, apperror.New(apperror.Forbidden, "you cannot view this order")
}

func (s *orderService) List(ctx context.Context, actor statemachine.Actor, filter ListFilter) ([]models.Order, error) {
	q := store.OrderFilter{Status: filter.Status, Limit: filter.Limit}

	switch actor.Role {
	case models.RoleCustomer:
		q.CustomerID = actor.ID
		if filter.RestaurantID != "" {
			q.RestaurantIDs = []string{filter.RestaurantID}
		}
	case models.RoleOwner:
		ids, err := s.ownedRestaurantIDs(ctx, actor.ID, filter.RestaurantID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.Order{}, nil
		}
		q.RestaurantIDs = ids
		q.CustomerID = filter.CustomerID
	case models.RoleAdmin:
		q.CustomerID = filter.CustomerID
		if filter.RestaurantID != "" {
			q.RestaurantIDs = []string{filter.RestaurantID}
		}
	default:
		return nil, apperror.New(apperror.Forbidden, "unknown role")
	}

	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	orders, err := s.orders.ListBy(cctx, q)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *orderService) Summary(ctx context.Context, actor statemachine.Actor, restaurantID string) (*Summary, error) {
	var ids []string
	switch actor.Role {
	case models.RoleOwner:
		owned, err := s.ownedRestaurantIDs(ctx, actor.ID, restaurantID)
		if err != nil {
			return nil, err
		}
		ids = owned
	case models.RoleAdmin:
		if restaurantID != "" {
			ids = []string{restaurantID}
		}
	default:
		return nil, apperror.New(apperror.Forbidden, "only owners and admins can view summaries")
	}

	summary := &Summary{RestaurantIDs: ids, ByStatus: map[models.OrderStatus]int{}}
	for _, st := range models.OrderStatuses() {
		summary.ByStatus[st] = 0
	}
	if actor.Role == models.RoleOwner && len(ids) == 0 {
		summary.RestaurantIDs = []string{}
		return summary, nil
	}

	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	orders, err := s.orders.ListBy(cctx, store.OrderFilter{RestaurantIDs: ids})
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		summary.TotalOrders++
		summary.ByStatus[o.Status]++
		if o.Status == models.StatusDelivered {
			summary.DeliveredRevenueCents += o.TotalCents
		}
		if !statemachine.IsTerminal(o.Status) {
			summary.PendingOrders++
		}
	}
	if summary.RestaurantIDs == nil {
		summary.RestaurantIDs = []string{}
	}
	return summary, nil
}

// ownedRestaurantIDs lists the owner's restaurants, optionally narrowed to
// one that must be among them.
func (s *orderService) ownedRestaurantIDs(ctx context.Context, ownerID, only string) ([]string, error) {
	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	owned, err := s.catalog.RestaurantsOwnedBy(cctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(owned))
	for _, r := range owned {
		if only == "" || r.ID == only {
			ids = append(ids, r.ID)
		}
	}
	if only != "" && len(ids) == 0 {
		return nil, apperror.New(apperror.Forbidden, "you do not own this restaurant")
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *orderService) load(ctx context.Context, id string) (*models.Order, error) {
	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.orders.Get(cctx, id)
}

func (s *orderService) restaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.catalog.Restaurant(cctx, id)
}

func (s *orderService) menuItems(ctx context.Context, restaurantID string, ids []string) ([]models.MenuItem, error) {
	cctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.catalog.MenuItems(cctx, restaurantID, ids)
}

func (s *orderService) publish(ctx context.Context, key, eventType string, payload any) {
	env, err := events.NewEnvelope(eventType, producerName, events.CorrelationID(ctx), payload)
	if err != nil {
		s.log.Error("build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, key, env); err != nil {
		s.log.Warn("publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}
