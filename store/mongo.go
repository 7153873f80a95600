package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collUsers       = "users"
	collRestaurants = "restaurants"
	collMenuItems   = "menu_items"
	collOrders      = "orders"
)

// OpenMongo connects, pings and ensures indexes. Orders embed their line
// items and history so a status change is a single-document write.
func OpenMongo(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		return nil, errors.New("mongo database name is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Store{
		Users:   &mongoUsers{coll: db.Collection(collUsers)},
		Orders:  &mongoOrders{coll: db.Collection(collOrders)},
		Catalog: &mongoCatalog{restaurants: db.Collection(collRestaurants), items: db.Collection(collMenuItems)},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collOrders: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "restaurant_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		collRestaurants: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		collMenuItems: {
			{Keys: bson.D{{Key: "restaurant_id", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (s *mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&user)
	if err != nil {
		return nil, translate(ctx, err, "user")
	}
	return &user, nil
}

func (s *mongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(ctx, err, "user")
	}
	return &user, nil
}

func (s *mongoUsers) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(apperror.EmailTaken, err, "email already registered")
		}
		return translate(ctx, err, "user")
	}
	return nil
}

func (s *mongoUsers) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	var user models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, translate(ctx, err, "user")
	}
	return &user, nil
}

func (s *mongoUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return translate(ctx, err, "user")
	}
	if res.MatchedCount == 0 {
		return apperror.New(apperror.NotFound, "user not found")
	}
	return nil
}

func (s *mongoUsers) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range update.fields() {
		set[k] = v
	}
	var user models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, translate(ctx, err, "user")
	}
	return &user, nil
}

type mongoOrders struct {
	coll *mongo.Collection
}

func (s *mongoOrders) Create(ctx context.Context, order *models.Order) error {
	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(apperror.Conflict, err, "order already exists")
		}
		return translate(ctx, err, "order")
	}
	return nil
}

func (s *mongoOrders) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translate(ctx, err, "order")
	}
	return &order, nil
}

func (s *mongoOrders) ConditionalUpdate(ctx context.Context, id string, expected models.OrderStatus, change models.StatusChange) (*models.Order, error) {
	change.From = expected
	var order models.Order
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": expected},
		bson.M{
			"$set":  bson.M{"status": change.To, "updated_at": change.At},
			"$inc":  bson.M{"version": 1},
			"$push": bson.M{"history": change},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, translate(ctx, cerr, "order")
		}
		if n == 0 {
			return nil, apperror.New(apperror.NotFound, "order not found")
		}
		return nil, apperror.New(apperror.Conflict, "order was modified concurrently; reload and retry")
	}
	if err != nil {
		return nil, translate(ctx, err, "order")
	}
	return &order, nil
}

func (s *mongoOrders) ListBy(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := bson.M{}
	if filter.CustomerID != "" {
		q["customer_id"] = filter.CustomerID
	}
	if len(filter.RestaurantIDs) > 0 {
		q["restaurant_id"] = bson.M{"$in": filter.RestaurantIDs}
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, translate(ctx, err, "orders")
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, translate(ctx, err, "orders")
	}
	return orders, nil
}

type mongoCatalog struct {
	restaurants *mongo.Collection
	items       *mongo.Collection
}

func (s *mongoCatalog) Restaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.restaurants.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, translate(ctx, err, "restaurant")
	}
	return &r, nil
}

func (s *mongoCatalog) MenuItems(ctx context.Context, restaurantID string, ids []string) ([]models.MenuItem, error) {
	q := bson.M{"restaurant_id": restaurantID}
	if len(ids) > 0 {
		q["_id"] = bson.M{"$in": ids}
	}
	cur, err := s.items.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, translate(ctx, err, "menu items")
	}
	items := []models.MenuItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, translate(ctx, err, "menu items")
	}
	return items, nil
}

func (s *mongoCatalog) RestaurantsOwnedBy(ctx context.Context, ownerID string) ([]models.Restaurant, error) {
	cur, err := s.restaurants.Find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, translate(ctx, err, "restaurants")
	}
	rs := []models.Restaurant{}
	if err := cur.All(ctx, &rs); err != nil {
		return nil, translate(ctx, err, "restaurants")
	}
	return rs, nil
}

func (s *mongoCatalog) AssignOwner(ctx context.Context, restaurantID, ownerID string) error {
	res, err := s.restaurants.UpdateOne(ctx,
		bson.M{"_id": restaurantID},
		bson.M{"$set": bson.M{"owner_id": ownerID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return translate(ctx, err, "restaurant")
	}
	if res.MatchedCount == 0 {
		return apperror.New(apperror.NotFound, "restaurant not found")
	}
	return nil
}

func (s *mongoCatalog) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	if _, err := s.restaurants.InsertOne(ctx, r); err != nil {
		return translate(ctx, err, "restaurant")
	}
	if len(r.MenuItems) == 0 {
		return nil
	}
	docs := make([]any, len(r.MenuItems))
	for i := range r.MenuItems {
		r.MenuItems[i].RestaurantID = r.ID
		r.MenuItems[i].CreatedAt, r.MenuItems[i].UpdatedAt = now, now
		docs[i] = r.MenuItems[i]
	}
	if _, err := s.items.InsertMany(ctx, docs); err != nil {
		return translate(ctx, err, "menu items")
	}
	return nil
}
