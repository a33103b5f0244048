package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	ordersCollection   = "orders"
	productsCollection = "products"
	usersCollection    = "users"
)

// MongoOrderStore persists orders in MongoDB.
type MongoOrderStore struct {
	coll *mongo.Collection
}

func NewMongoOrderStore(db *mongo.Database) *MongoOrderStore {
	return &MongoOrderStore{coll: db.Collection(ordersCollection)}
}

func (s *MongoOrderStore) Create(ctx context.Context, order *Order) error {
	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *MongoOrderStore) Get(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	err := s.coll.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return &order, nil
}

func (s *MongoOrderStore) UpdateStatus(ctx context.Context, orderID string, status OrderStatus) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MongoProductStore reads and adjusts catalog products.
type MongoProductStore struct {
	coll *mongo.Collection
}

func NewMongoProductStore(db *mongo.Database) *MongoProductStore {
	return &MongoProductStore{coll: db.Collection(productsCollection)}
}

func (s *MongoProductStore) Get(ctx context.Context, productID string) (*Product, error) {
	var product Product
	err := s.coll.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}
	return &product, nil
}

// DecrementStock relies on the filter for atomicity: the update matches
// only while stock covers the quantity, so concurrent decrements cannot
// drive it negative.
func (s *MongoProductStore) DecrementStock(ctx context.Context, productID string, qty int) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": productID, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to decrement stock for %s: %w", productID, err)
	}
	if res.MatchedCount == 0 {
		// Either the product is gone or its stock ran out.
		if _, getErr := s.Get(ctx, productID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
	}
	return nil
}

// MongoUserStore reads user records for identity confirmation.
type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(usersCollection)}
}

func (s *MongoUserStore) Get(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &user, nil
}
