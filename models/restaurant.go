package models

import "time"

type Restaurant struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	OwnerID   string     `json:"owner_id,omitempty" gorm:"size:36;index" bson:"owner_id,omitempty"`
	Name      string     `json:"name" gorm:"not null" bson:"name"`
	Cuisine   string     `json:"cuisine" bson:"cuisine"`
	Address   string     `json:"address" bson:"address"`
	IsOpen    bool       `json:"is_open" bson:"is_open"`
	MenuItems []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID" bson:"-"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

type MenuItem struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	RestaurantID string    `json:"restaurant_id" gorm:"size:36;not null;index" bson:"restaurant_id"`
	Name         string    `json:"name" gorm:"not null" bson:"name"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	PriceCents   int64     `json:"price_cents" gorm:"not null" bson:"price_cents"`
	Category     string    `json:"category" bson:"category"`
	IsAvailable  bool      `json:"is_available" bson:"is_available"`
	IsVeg        bool      `json:"is_veg" bson:"is_veg"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}
