package models

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents all possible states of a food order
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "placed"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	StatusPlaced, StatusConfirmed, StatusPreparing,
	StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

// OrderStatuses lists every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	candidate := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range orderStatuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

type Order struct {
	ID              string         `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	CustomerID      string         `json:"customer_id" gorm:"size:36;not null;index" bson:"customer_id"`
	RestaurantID    string         `json:"restaurant_id" gorm:"size:36;not null;index" bson:"restaurant_id"`
	Status          OrderStatus    `json:"status" gorm:"size:32;not null;index" bson:"status"`
	TotalCents      int64          `json:"total_cents" gorm:"not null" bson:"total_cents"`
	Version         int64          `json:"version" gorm:"not null;default:1" bson:"version"`
	DeliveryAddress string         `json:"delivery_address" bson:"delivery_address"`
	Notes           string         `json:"notes,omitempty" bson:"notes,omitempty"`
	Items           []LineItem     `json:"items" gorm:"foreignKey:OrderID" bson:"items"`
	History         []StatusChange `json:"history" gorm:"foreignKey:OrderID" bson:"history"`
	CreatedAt       time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" bson:"updated_at"`
}

// LineItem snapshots the menu item's name and price at order time.
type LineItem struct {
	ID             uint   `json:"-" gorm:"primaryKey" bson:"-"`
	OrderID        string `json:"-" gorm:"size:36;not null;index" bson:"-"`
	MenuItemID     string `json:"menu_item_id" gorm:"size:36;not null" bson:"menu_item_id"`
	Name           string `json:"name" bson:"name"`
	Quantity       int    `json:"quantity" gorm:"not null" bson:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents" gorm:"not null" bson:"unit_price_cents"`
}

// StatusChange is one entry of the order's audit trail.
type StatusChange struct {
	ID        uint        `json:"-" gorm:"primaryKey" bson:"-"`
	OrderID   string      `json:"-" gorm:"size:36;not null;index" bson:"-"`
	From      OrderStatus `json:"from,omitempty" gorm:"size:32" bson:"from,omitempty"`
	To        OrderStatus `json:"to" gorm:"size:32;not null" bson:"to"`
	ActorID   string      `json:"actor_id" gorm:"size:36" bson:"actor_id"`
	ActorRole Role        `json:"actor_role" gorm:"type:varchar(16)" bson:"actor_role"`
	At        time.Time   `json:"at" bson:"at"`
}

// OrderTotal sums quantity x unit price over the line items.
func OrderTotal(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += int64(it.Quantity) * it.UnitPriceCents
	}
	return total
}
