package identity

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoDirectory struct {
	collection *mongo.Collection
}

// NewMongoDirectory reads users from the identity subsystem's collection.
// This package never writes to it.
func NewMongoDirectory(db *mongo.Database) Directory {
	return &mongoDirectory{collection: db.Collection("users")}
}

func (m *mongoDirectory) User(ctx context.Context, id string) (*User, error) {
	var u User
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
