// Package store holds the persistence ports of the service and their gorm
// (sqlite, postgres) and MongoDB adapters.
package store

import (
	"context"
	"fmt"

	"food-ordering-api/models"

	"go.uber.org/zap"
)

// CredentialStore persists users and their password hashes.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error)
}

// ProfileUpdate carries the user-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name    *string
	Phone   *string
	Address *string
}

// fields returns the set columns keyed by their storage name.
func (u ProfileUpdate) fields() map[string]any {
	out := map[string]any{}
	if u.Name != nil {
		out["name"] = *u.Name
	}
	if u.Phone != nil {
		out["phone"] = *u.Phone
	}
	if u.Address != nil {
		out["address"] = *u.Address
	}
	return out
}

// OrderFilter narrows ListBy. Empty fields do not filter.
type OrderFilter struct {
	CustomerID    string
	RestaurantIDs []string
	Status        models.OrderStatus
	Limit         int
}

// OrderRepository persists orders. ConditionalUpdate is the only way an
// order's status changes after creation.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	// ConditionalUpdate moves the order to change.To only if its stored
	// status still equals expected, bumps the version and appends change to
	// the history, all in one atomic write. It returns apperror.Conflict when
	// the guard does not hold and apperror.NotFound when the order is missing.
	ConditionalUpdate(ctx context.Context, id string, expected models.OrderStatus, change models.StatusChange) (*models.Order, error)
	ListBy(ctx context.Context, filter OrderFilter) ([]models.Order, error)
}

// Catalog is the narrow view of restaurants and menus the order flow needs.
type Catalog interface {
	Restaurant(ctx context.Context, id string) (*models.Restaurant, error)
	MenuItems(ctx context.Context, restaurantID string, ids []string) ([]models.MenuItem, error)
	RestaurantsOwnedBy(ctx context.Context, ownerID string) ([]models.Restaurant, error)
	AssignOwner(ctx context.Context, restaurantID, ownerID string) error
	SaveRestaurant(ctx context.Context, restaurant *models.Restaurant) error
}

// Store groups the adapters of one backend.
type Store struct {
	Users   CredentialStore
	Orders  OrderRepository
	Catalog Catalog

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Options struct {
	Driver        string
	DSN           string
	MongoURI      string
	MongoDatabase string
}

// Open connects to the configured backend and prepares its schema or indexes.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	log = log.With(zap.String("component", "store"), zap.String("driver", opts.Driver))

	switch opts.Driver {
	case DriverSQLite, "":
		db, err := OpenSQLite(opts.DSN)
		if err != nil {
			return nil, err
		}
		log.Info("database connected and migrated", zap.String("dsn", opts.DSN))
		return NewGormStore(db), nil
	case DriverPostgres:
		db, err := OpenPostgres(opts.DSN)
		if err != nil {
			return nil, err
		}
		log.Info("database connected and migrated")
		return NewGormStore(db), nil
	case DriverMongo:
		st, err := OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.Info("mongodb connected", zap.String("database", opts.MongoDatabase))
		return st, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}
