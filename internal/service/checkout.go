package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tienda-labs/storefront/internal/domain"
	"github.com/tienda-labs/storefront/internal/event"
	"github.com/tienda-labs/storefront/internal/repository"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
)

// CheckoutState names the phases of one checkout attempt.
type CheckoutState string

const (
	StateIdle       CheckoutState = "idle"
	StateValidating CheckoutState = "validating"
	StateSubmitting CheckoutState = "submitting"
	StateSucceeded  CheckoutState = "succeeded"
	StateFailed     CheckoutState = "failed"
)

// OrderSubmitter delivers a prepared batch of order lines to the order
// boundary.
type OrderSubmitter interface {
	SubmitBatch(ctx context.Context, lines []domain.OrderLine, csrfToken string) error
}

// CheckoutResult reports the outcome of a successful checkout.
type CheckoutResult struct {
	State       CheckoutState `json:"state"`
	OrderNumber int64         `json:"order_number"`
	LineCount   int           `json:"line_count"`
	Total       float64       `json:"total"`
}

// CheckoutService converts a non-empty cart into a batch order submission
// and reconciles the outcome back into the cart. One attempt runs
// idle -> validating -> submitting -> succeeded or failed; only one attempt
// per customer may be in flight at a time.
type CheckoutService struct {
	repo     repository.CartRepository
	orders   OrderSubmitter
	producer *event.Producer
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(repo repository.CartRepository, orders OrderSubmitter, producer *event.Producer, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		repo:     repo,
		orders:   orders,
		producer: producer,
		logger:   logger,
		inFlight: map[string]struct{}{},
	}
}

// Finalize submits the customer's cart as one order batch. Validation
// failures (empty cart, wrong role) abort before any network call. On
// success the cart is cleared and its order number released. On failure
// the cart and order number are left intact so a manual retry resubmits
// the same batch under the same number; no automatic retry happens.
func (s *CheckoutService) Finalize(ctx context.Context, sess domain.Session, csrfToken string) (*CheckoutResult, error) {
	if !sess.CanMutateCart() {
		return nil, apperrors.Forbidden("role does not allow checkout")
	}

	if !s.begin(sess.Customer) {
		return nil, apperrors.Conflict("a checkout is already in progress")
	}
	defer s.end(sess.Customer)

	cart, err := s.repo.Get(ctx, sess.Customer)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("cart is empty")
		}
		return nil, fmt.Errorf("get cart for checkout: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	// Assign the order number before submitting and persist it with the
	// cart, so a retry after a failure reuses the same number and the
	// batch never fragments across two orders.
	if cart.OrderNumber == 0 {
		cart.EnsureOrderNumber()
		if err := s.repo.Save(ctx, cart); err != nil {
			return nil, fmt.Errorf("save order number: %w", err)
		}
	}

	lines := domain.BuildOrderLines(cart, sess, time.Now())

	s.logger.InfoContext(ctx, "submitting order batch",
		slog.String("customer", sess.Customer),
		slog.Int64("order_number", cart.OrderNumber),
		slog.Int("lines", len(lines)),
	)

	if err := s.orders.SubmitBatch(ctx, lines, csrfToken); err != nil {
		s.publishRejected(ctx, sess.Customer, cart.OrderNumber, err)
		s.logger.WarnContext(ctx, "order batch rejected",
			slog.String("customer", sess.Customer),
			slog.Int64("order_number", cart.OrderNumber),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	result := &CheckoutResult{
		State:       StateSucceeded,
		OrderNumber: cart.OrderNumber,
		LineCount:   len(cart.Lines),
		Total:       cart.Total(),
	}

	if err := s.repo.Delete(ctx, sess.Customer); err != nil {
		// The order went through; losing the clear would resubmit the
		// same lines under the same number on the next checkout.
		return nil, fmt.Errorf("clear cart after checkout: %w", err)
	}

	if err := s.producer.PublishOrderSubmitted(ctx, sess.Customer, result.OrderNumber, result.LineCount, result.Total); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.submitted event",
			slog.String("customer", sess.Customer),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishCartCleared(ctx, sess.Customer); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("customer", sess.Customer),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order submitted",
		slog.String("customer", sess.Customer),
		slog.Int64("order_number", result.OrderNumber),
		slog.Float64("total", result.Total),
	)

	return result, nil
}

// State reports whether a checkout is currently in flight for the customer.
func (s *CheckoutService) State(customer string) CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[customer]; ok {
		return StateSubmitting
	}
	return StateIdle
}

func (s *CheckoutService) begin(customer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[customer]; ok {
		return false
	}
	s.inFlight[customer] = struct{}{}
	return true
}

func (s *CheckoutService) end(customer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, customer)
}

func (s *CheckoutService) publishRejected(ctx context.Context, customer string, orderNumber int64, cause error) {
	reason := cause.Error()
	var appErr *apperrors.AppError
	if errors.As(cause, &appErr) {
		reason = appErr.Message
	}

	if err := s.producer.PublishOrderRejected(ctx, customer, orderNumber, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.rejected event",
			slog.String("customer", customer),
			slog.String("error", err.Error()),
		)
	}
}
