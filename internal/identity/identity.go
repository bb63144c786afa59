// Package identity is the contract this subsystem consumes from the user
// subsystem: buyer contact details and the saved address book.
package identity

import (
	"context"
	"errors"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        string           `bson:"_id"`
	Name      string           `bson:"name"`
	Email     string           `bson:"email"`
	Phone     string           `bson:"phone,omitempty"`
	Addresses []domain.Address `bson:"addresses,omitempty"`
}

// Address finds a saved address by id.
func (u *User) Address(id string) (*domain.Address, bool) {
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			return &u.Addresses[i], true
		}
	}
	return nil, false
}

type Directory interface {
	User(ctx context.Context, id string) (*User, error)
}
