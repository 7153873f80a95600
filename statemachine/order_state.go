package statemachine

import (
	"fmt"
	"strings"

	"food-ordering-api/apperror"
	"food-ordering-api/models"
)

// Scope says which party, besides an admin, owns the right to take an edge.
type Scope string

const (
	// ScopeRestaurant: the owner of the order's restaurant.
	ScopeRestaurant Scope = "restaurant_owner"
	// ScopeCustomer: the customer who placed the order.
	ScopeCustomer Scope = "order_customer"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Roles []models.Role      `json:"roles"`
	Scope Scope              `json:"scope"`
}

var (
	kitchen = []models.Role{models.RoleOwner, models.RoleAdmin}
	buyer   = []models.Role{models.RoleCustomer, models.RoleAdmin}
)

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	{From: models.StatusPlaced, To: models.StatusConfirmed, Roles: kitchen, Scope: ScopeRestaurant},
	{From: models.StatusConfirmed, To: models.StatusPreparing, Roles: kitchen, Scope: ScopeRestaurant},
	{From: models.StatusPreparing, To: models.StatusOutForDelivery, Roles: kitchen, Scope: ScopeRestaurant},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Roles: kitchen, Scope: ScopeRestaurant},
	// Cancellation is only possible before the kitchen starts.
	{From: models.StatusPlaced, To: models.StatusCancelled, Roles: buyer, Scope: ScopeCustomer},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Roles: buyer, Scope: ScopeCustomer},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

var transitionMap = func() map[transitionKey]Transition {
	m := make(map[transitionKey]Transition, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To}] = t
	}
	return m
}()

// Actor is the authenticated caller attempting a transition.
type Actor struct {
	ID   string
	Role models.Role
}

// Subject carries the ownership facts of the order being transitioned.
type Subject struct {
	CustomerID        string
	RestaurantOwnerID string
}

// IsTerminal reports whether no edge leaves status.
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// Edge looks up from -> to. Terminal states are rejected before the table
// lookup so every attempt on a finished order fails the same way.
func Edge(from, to models.OrderStatus) (Transition, error) {
	if IsTerminal(from) {
		return Transition{}, apperror.New(apperror.InvalidTransition,
			fmt.Sprintf("order is %s; no further transitions are allowed", from))
	}
	t, ok := transitionMap[transitionKey{from, to}]
	if !ok {
		return Transition{}, apperror.New(apperror.InvalidTransition, fmt.Sprintf(
			"invalid transition: %s -> %s. Valid transitions from %s are: %s",
			from, to, from, describeValidFrom(from)))
	}
	return t, nil
}

// Authorize checks that actor may take edge t on an order described by subject.
func Authorize(t Transition, actor Actor, subject Subject) error {
	allowed := false
	for _, r := range t.Roles {
		if r == actor.Role {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.New(apperror.Forbidden,
			fmt.Sprintf("role %s cannot move an order from %s to %s", actor.Role, t.From, t.To))
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	switch t.Scope {
	case ScopeRestaurant:
		if subject.RestaurantOwnerID == "" || subject.RestaurantOwnerID != actor.ID {
			return apperror.New(apperror.Forbidden, "you do not own this order's restaurant")
		}
	case ScopeCustomer:
		if subject.CustomerID != actor.ID {
			return apperror.New(apperror.Forbidden, "you can only cancel your own orders")
		}
	}
	return nil
}

// Check runs Edge then Authorize.
func Check(from, to models.OrderStatus, actor Actor, subject Subject) (Transition, error) {
	t, err := Edge(from, to)
	if err != nil {
		return Transition{}, err
	}
	if err := Authorize(t, actor, subject); err != nil {
		return Transition{}, err
	}
	return t, nil
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
