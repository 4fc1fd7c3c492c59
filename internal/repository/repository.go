package repository

import (
	"context"

	"github.com/tienda-labs/storefront/internal/domain"
)

// CartRepository defines persistence operations for carts.
type CartRepository interface {
	// Get retrieves the cart for a customer. Returns ErrNotFound when no
	// cart is stored; malformed stored data is treated the same way so a
	// corrupt snapshot degrades to an empty cart instead of failing.
	Get(ctx context.Context, customer string) (*domain.Cart, error)

	// Save persists the whole cart, overwriting any existing one.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes the customer's cart.
	Delete(ctx context.Context, customer string) error
}

// SessionRepository defines persistence operations for login sessions.
// A session record existing is what makes an access token valid; logout
// deletes the record.
type SessionRepository interface {
	// Get retrieves the session for a customer. Returns ErrNotFound when
	// the customer has no active session.
	Get(ctx context.Context, customer string) (*domain.Session, error)

	// Save persists the session for its customer.
	Save(ctx context.Context, sess *domain.Session) error

	// Delete removes the customer's session.
	Delete(ctx context.Context, customer string) error
}
