package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tienda-labs/storefront/internal/domain"
	"github.com/tienda-labs/storefront/internal/event"
	"github.com/tienda-labs/storefront/internal/repository"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerLine is the maximum quantity allowed for a single line.
	MaxQuantityPerLine = 100
	// MaxLinesPerCart is the maximum number of distinct lines allowed.
	MaxLinesPerCart = 50
)

// AddLineInput holds the parameters for adding a line to the cart.
type AddLineInput struct {
	ProductID   string  `json:"product_id" validate:"required"`
	DisplayName string  `json:"display_name" validate:"required"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"required,gte=1"`
}

// CartService implements the business logic for cart operations. It is the
// single source of truth for cart contents; every mutation persists the whole
// cart and publishes an event.
type CartService struct {
	repo     repository.CartRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// Get retrieves the customer's cart. If none is persisted, or the persisted
// snapshot was unreadable, an empty cart is returned.
func (s *CartService) Get(ctx context.Context, sess domain.Session) (*domain.Cart, error) {
	if sess.Customer == "" {
		return nil, apperrors.Unauthorized("no session")
	}

	cart, err := s.getOrCreateCart(ctx, sess.Customer)
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// AddLine adds a product to the cart. If a line with the same product ID
// already exists its quantity is incremented; the existing line's price and
// name are kept as they were when first added. New lines append in insertion
// order.
func (s *CartService) AddLine(ctx context.Context, sess domain.Session, input AddLineInput) (*domain.Cart, error) {
	if !sess.CanMutateCart() {
		return nil, apperrors.Forbidden("role does not allow cart changes")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be a positive integer")
	}
	if input.Quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}
	if input.UnitPrice < 0 {
		return nil, apperrors.InvalidInput("unit price must not be negative")
	}

	cart, err := s.getOrCreateCart(ctx, sess.Customer)
	if err != nil {
		return nil, err
	}

	if idx := cart.FindLineIndex(input.ProductID); idx >= 0 {
		newQty := cart.Lines[idx].Quantity + input.Quantity
		if newQty > MaxQuantityPerLine {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerLine))
		}
		cart.Lines[idx].Quantity = newQty
	} else {
		if len(cart.Lines) >= MaxLinesPerCart {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d lines", MaxLinesPerCart))
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:   input.ProductID,
			DisplayName: input.DisplayName,
			UnitPrice:   input.UnitPrice,
			Quantity:    input.Quantity,
		})
	}

	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "line added to cart",
		slog.String("customer", sess.Customer),
		slog.String("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// RemoveLine deletes the line with the given product ID. Removing a product
// that is not in the cart is a no-op, not an error.
func (s *CartService) RemoveLine(ctx context.Context, sess domain.Session, productID string) (*domain.Cart, error) {
	if !sess.CanMutateCart() {
		return nil, apperrors.Forbidden("role does not allow cart changes")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	cart, err := s.getOrCreateCart(ctx, sess.Customer)
	if err != nil {
		return nil, err
	}

	if idx := cart.FindLineIndex(productID); idx >= 0 {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	}

	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "line removed from cart",
		slog.String("customer", sess.Customer),
		slog.String("product_id", productID),
	)

	return cart, nil
}

// Clear empties the customer's cart and releases its order number.
func (s *CartService) Clear(ctx context.Context, sess domain.Session) error {
	if !sess.CanMutateCart() {
		return apperrors.Forbidden("role does not allow cart changes")
	}

	if err := s.repo.Delete(ctx, sess.Customer); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, sess.Customer); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("customer", sess.Customer),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("customer", sess.Customer),
	)

	return nil
}

func (s *CartService) getOrCreateCart(ctx context.Context, customer string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, customer)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			now := time.Now().UTC()
			return &domain.Cart{
				Customer:  customer,
				Lines:     []domain.CartLine{},
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("customer", cart.Customer),
			slog.String("error", err.Error()),
		)
	}
}
