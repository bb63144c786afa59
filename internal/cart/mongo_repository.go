package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("carts")}
}

// ConnectMongoDB opens a pooled connection and verifies it with a ping.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *mongoRepository) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"owner_key": owner.Key(), "status": domain.CartStatusActive}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoRepository) Upsert(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()

	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.OwnerKey = cart.Owner.Key()
	cart.ExpiresAt = now.Add(cart.Owner.TTL())

	filter := bson.M{"owner_key": cart.OwnerKey}
	update := bson.M{"$set": bson.M{
		"owner":      cart.Owner,
		"owner_key":  cart.OwnerKey,
		"items":      cart.Items,
		"discounts":  cart.Discounts,
		"totals":     cart.Totals,
		"status":     cart.Status,
		"expires_at": cart.ExpiresAt,
		"created_at": cart.CreatedAt,
		"updated_at": cart.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m *mongoRepository) Delete(ctx context.Context, owner domain.Owner) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"owner_key": owner.Key()})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoRepository) Reassign(ctx context.Context, from, to domain.Owner) (*domain.Cart, error) {
	now := time.Now()

	// owner_key is unique across the collection and a converted cart from a
	// previous checkout may still hold the target key. Clear it first or the
	// re-key below trips the index.
	if _, err := m.collection.DeleteOne(ctx, bson.M{"owner_key": to.Key()}); err != nil {
		return nil, fmt.Errorf("failed to clear reassign target: %w", err)
	}

	filter := bson.M{"owner_key": from.Key(), "status": domain.CartStatusActive}
	update := bson.M{"$set": bson.M{
		"owner":      to,
		"owner_key":  to.Key(),
		"expires_at": now.Add(to.TTL()),
		"updated_at": now,
	}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to reassign cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrCartNotFound
	}

	return m.Get(ctx, to)
}

// EnsureIndexes sets up the owner lookup index and the TTL-based expiry.
// expires_at is recomputed on every upsert, so the window slides with cart
// activity (30 days for user carts, 7 for guest carts).
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
