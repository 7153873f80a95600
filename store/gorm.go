package store

import (
	"context"
	"fmt"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens the pure-Go sqlite driver. ":memory:" databases are
// pinned to one connection so every query sees the same database.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "food_ordering.db"
	}
	db, err := openGorm(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := openGorm(postgres.Open(dsn))
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func openGorm(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.LineItem{},
		&models.StatusChange{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// NewGormStore wires the gorm adapters over db.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:   &gormUsers{db: db},
		Orders:  &gormOrders{db: db},
		Catalog: &gormCatalog{db: db},
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

type gormUsers struct {
	db *gorm.DB
}

func (s *gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, translate(ctx, err, "user")
	}
	return &user, nil
}

func (s *gormUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(ctx, err, "user")
	}
	return &user, nil
}

func (s *gormUsers) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(apperror.EmailTaken, err, "email already registered")
		}
		return translate(ctx, err, "user")
	}
	return nil
}

func (s *gormUsers) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return nil, translate(ctx, res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return nil, apperror.New(apperror.NotFound, "user not found")
	}
	return s.FindByID(ctx, id)
}

func (s *gormUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if res.Error != nil {
		return translate(ctx, res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "user not found")
	}
	return nil
}

func (s *gormUsers) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error) {
	fields := update.fields()
	fields["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translate(ctx, res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return nil, apperror.New(apperror.NotFound, "user not found")
	}
	return s.FindByID(ctx, id)
}

type gormOrders struct {
	db *gorm.DB
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (s *gormOrders) Create(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(apperror.Conflict, err, "order already exists")
		}
		return translate(ctx, err, "order")
	}
	return nil
}

func (s *gormOrders) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.get(ctx, s.db.WithContext(ctx), id)
}

func (s *gormOrders) get(ctx context.Context, db *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	if err := withLines(db).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(ctx, err, "order")
	}
	return &order, nil
}

func (s *gormOrders) ConditionalUpdate(ctx context.Context, id string, expected models.OrderStatus, change models.StatusChange) (*models.Order, error) {
	var updated *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(map[string]any{
				"status":     change.To,
				"version":    gorm.Expr("version + 1"),
				"updated_at": change.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return apperror.New(apperror.NotFound, "order not found")
			}
			return apperror.New(apperror.Conflict, "order was modified concurrently; reload and retry")
		}

		change.ID = 0
		change.OrderID = id
		change.From = expected
		if err := tx.Create(&change).Error; err != nil {
			return err
		}

		order, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, translate(ctx, err, "order")
	}
	return updated, nil
}

func (s *gormOrders) ListBy(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := withLines(s.db.WithContext(ctx)).Order("created_at desc")
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if len(filter.RestaurantIDs) > 0 {
		q = q.Where("restaurant_id IN ?", filter.RestaurantIDs)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, translate(ctx, err, "orders")
	}
	return orders, nil
}

type gormCatalog struct {
	db *gorm.DB
}

func (s *gormCatalog) Restaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(ctx, err, "restaurant")
	}
	return &r, nil
}

func (s *gormCatalog) MenuItems(ctx context.Context, restaurantID string, ids []string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	q := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	if err := q.Order("name").Find(&items).Error; err != nil {
		return nil, translate(ctx, err, "menu items")
	}
	return items, nil
}

func (s *gormCatalog) RestaurantsOwnedBy(ctx context.Context, ownerID string) ([]models.Restaurant, error) {
	var rs []models.Restaurant
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name").Find(&rs).Error; err != nil {
		return nil, translate(ctx, err, "restaurants")
	}
	return rs, nil
}

func (s *gormCatalog) AssignOwner(ctx context.Context, restaurantID, ownerID string) error {
	res := s.db.WithContext(ctx).Model(&models.Restaurant{}).Where("id = ?", restaurantID).Update("owner_id", ownerID)
	if res.Error != nil {
		return translate(ctx, res.Error, "restaurant")
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "restaurant not found")
	}
	return nil
}

func (s *gormCatalog) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return translate(ctx, err, "restaurant")
	}
	return nil
}
