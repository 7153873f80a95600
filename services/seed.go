package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/models"
	"food-ordering-api/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const seedAdminEmail = "admin@eatupnow.com"

type seedUser struct {
	name, email, password, phone, address string
	role                                  models.Role
}

var seedUsers = []seedUser{
	{"Admin User", seedAdminEmail, "admin123", "+1234567890", "123 Admin Street", models.RoleAdmin},
	{"John Doe", "john@example.com", "password123", "+1234567891", "456 User Avenue", models.RoleCustomer},
	{"Olivia Owner", "owner@eatupnow.com", "owner123", "+1234567892", "789 Food Street", models.RoleOwner},
}

type seedItem struct {
	name, category string
	priceCents     int64
	veg            bool
}

type seedRestaurant struct {
	name, cuisine, address string
	owned                  bool
	items                  []seedItem
}

var seedRestaurants = []seedRestaurant{
	{"The Golden Spice", "Indian", "789 Food Street, NYC", true, []seedItem{
		{"Butter Chicken", "Main Course", 1499, false},
		{"Paneer Tikka", "Starters", 1099, true},
		{"Garlic Naan", "Breads", 399, true},
	}},
	{"Pasta Paradise", "Italian", "321 Italian Way, NYC", false, []seedItem{
		{"Spaghetti Carbonara", "Pasta", 1599, false},
		{"Margherita Pizza", "Pizza", 1299, true},
		{"Tiramisu", "Desserts", 799, true},
	}},
	{"Burger Haven", "American", "12 Grill Road, Chicago", false, []seedItem{
		{"Classic Burger", "Burgers", 500, false},
		{"Fries", "Sides", 300, true},
	}},
}

// Seed creates development users and restaurants. It is a no-op when the
// seed admin already exists.
func Seed(ctx context.Context, users store.CredentialStore, catalog store.Catalog, log *zap.Logger) error {
	log = log.With(zap.String("service", "seed"))

	if _, err := users.FindByEmail(ctx, seedAdminEmail); err == nil {
		log.Info("seed data already present, skipping")
		return nil
	} else if !errors.Is(err, apperror.NotFound) {
		return err
	}

	now := time.Now().UTC()
	var ownerID string
	for _, su := range seedUsers {
		hashed, err := HashPassword(su.password)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		u := &models.User{
			ID:           uuid.NewString(),
			Name:         su.name,
			Email:        su.email,
			PasswordHash: hashed,
			Role:         su.role,
			Phone:        su.phone,
			Address:      su.address,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", su.email, err)
		}
		if su.role == models.RoleOwner {
			ownerID = u.ID
		}
	}

	for _, sr := range seedRestaurants {
		r := &models.Restaurant{
			ID:        uuid.NewString(),
			Name:      sr.name,
			Cuisine:   sr.cuisine,
			Address:   sr.address,
			IsOpen:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if sr.owned {
			r.OwnerID = ownerID
		}
		for _, it := range sr.items {
			r.MenuItems = append(r.MenuItems, models.MenuItem{
				ID:          uuid.NewString(),
				Name:        it.name,
				PriceCents:  it.priceCents,
				Category:    it.category,
				IsAvailable: true,
				IsVeg:       it.veg,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		if err := catalog.SaveRestaurant(ctx, r); err != nil {
			return fmt.Errorf("seed restaurant %s: %w", sr.name, err)
		}
	}

	log.Info("seed data created",
		zap.Int("users", len(seedUsers)), zap.Int("restaurants", len(seedRestaurants)))
	return nil
}
