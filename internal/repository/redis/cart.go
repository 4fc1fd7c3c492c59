package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tienda-labs/storefront/internal/domain"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
)

const cartKeyPrefix = "storefront:cart:"

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get retrieves a cart by customer. A stored value that fails to decode is
// reported as not found, with a warning, so the caller falls back to an
// empty cart rather than erroring on a corrupt snapshot.
func (r *CartRepository) Get(ctx context.Context, customer string) (*domain.Cart, error) {
	key := cartKeyPrefix + customer

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", customer)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		r.logger.WarnContext(ctx, "stored cart is malformed, discarding",
			slog.String("customer", customer),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.NotFound("cart", customer)
	}

	return &cart, nil
}

// Save persists a cart with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	key := cartKeyPrefix + cart.Customer

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes a cart by customer.
func (r *CartRepository) Delete(ctx context.Context, customer string) error {
	key := cartKeyPrefix + customer

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
