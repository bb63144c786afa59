package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCatalog struct {
	collection *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) Catalog {
	return &mongoCatalog{collection: db.Collection("products")}
}

func (m *mongoCatalog) Product(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// DecrementStock is a single conditional update: the quantity filter and the
// $inc run atomically on the server, so concurrent decrements can never
// drive the counter negative.
func (m *mongoCatalog) DecrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return nil
	}

	filter := bson.M{
		"_id":            id,
		"track_quantity": true,
		"quantity":       bson.M{"$gte": qty},
	}
	update := bson.M{"$inc": bson.M{"quantity": -qty}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if result.MatchedCount == 0 {
		// Distinguish a missing product from a stock shortfall.
		if _, lookupErr := m.Product(ctx, id); lookupErr != nil {
			return lookupErr
		}
		return ErrInsufficientStock
	}
	return nil
}

func (m *mongoCatalog) IncrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return nil
	}

	filter := bson.M{"_id": id, "track_quantity": true}
	update := bson.M{"$inc": bson.M{"quantity": qty}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
