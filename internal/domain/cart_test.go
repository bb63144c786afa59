package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOwnerKey(t *testing.T) {
	assert.Equal(t, "user:u1", UserOwner("u1").Key())
	assert.Equal(t, "guest:sess-1", GuestOwner("sess-1").Key())
}

func TestOwnerTTL(t *testing.T) {
	assert.Equal(t, 30*24*time.Hour, UserOwner("u1").TTL())
	assert.Equal(t, 7*24*time.Hour, GuestOwner("sess-1").TTL())
}

func TestLineKey_VariantOrderInsensitive(t *testing.T) {
	a := LineKey("p1", []SelectedVariant{{Name: "size", Value: "M"}, {Name: "color", Value: "red"}})
	b := LineKey("p1", []SelectedVariant{{Name: "color", Value: "red"}, {Name: "size", Value: "M"}})
	assert.Equal(t, a, b)

	c := LineKey("p1", []SelectedVariant{{Name: "color", Value: "blue"}, {Name: "size", Value: "M"}})
	assert.NotEqual(t, a, c)

	assert.NotEqual(t, LineKey("p1", nil), LineKey("p2", nil))
}

func TestCartRemoveLine(t *testing.T) {
	c := &Cart{Items: []CartItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	assert.True(t, c.RemoveLine("b"))
	assert.Len(t, c.Items, 2)
	assert.Nil(t, c.Item("b"))

	assert.False(t, c.RemoveLine("b"))
}
