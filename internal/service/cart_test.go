package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tienda-labs/storefront/internal/domain"
	"github.com/tienda-labs/storefront/internal/event"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
	pkgkafka "github.com/tienda-labs/storefront/pkg/kafka"
)

// --- Mock repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, customer string) (*domain.Cart, error) {
	args := m.Called(ctx, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, customer string) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

// --- In-memory repository for multi-step scenarios ---

type memCartRepository struct {
	carts map[string]*domain.Cart
}

func newMemCartRepository() *memCartRepository {
	return &memCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *memCartRepository) Get(ctx context.Context, customer string) (*domain.Cart, error) {
	cart, ok := m.carts[customer]
	if !ok {
		return nil, apperrors.NotFound("cart", customer)
	}
	cp := *cart
	cp.Lines = append([]domain.CartLine(nil), cart.Lines...)
	return &cp, nil
}

func (m *memCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	cp := *cart
	cp.Lines = append([]domain.CartLine(nil), cart.Lines...)
	m.carts[cart.Customer] = &cp
	return nil
}

func (m *memCartRepository) Delete(ctx context.Context, customer string) error {
	delete(m.carts, customer)
	return nil
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProducer() *event.Producer {
	logger := newTestLogger()
	// No broker is running; publish failures are logged and ignored.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func userSession(customer string) domain.Session {
	return domain.Session{Customer: customer, CustomerName: customer, Role: domain.RoleUser}
}

// --- Tests ---

func TestCartService_Get_ReturnsEmptyCartWhenNoneStored(t *testing.T) {
	repo := new(mockCartRepository)
	repo.On("Get", mock.Anything, "maria").Return(nil, apperrors.NotFound("cart", "maria"))

	svc := NewCartService(repo, newTestProducer(), newTestLogger())

	cart, err := svc.Get(context.Background(), userSession("maria"))
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0.0, cart.Total())
	repo.AssertExpectations(t)
}

func TestCartService_AddLine_MergesByProductID(t *testing.T) {
	repo := newMemCartRepository()
	svc := NewCartService(repo, newTestProducer(), newTestLogger())
	sess := userSession("maria")

	_, err := svc.AddLine(context.Background(), sess, AddLineInput{
		ProductID: "7", DisplayName: "Widget", UnitPrice: 100, Quantity: 3,
	})
	require.NoError(t, err)

	// Same product again, with a different price and name: the quantity
	// merges and the original price and name win.
	cart, err := svc.AddLine(context.Background(), sess, AddLineInput{
		ProductID: "7", DisplayName: "Widget v2", UnitPrice: 120, Quantity: 2,
	})
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, "Widget", cart.Lines[0].DisplayName)
	assert.Equal(t, 100.0, cart.Lines[0].UnitPrice)
	assert.Equal(t, 500.0, cart.Total())
}

func TestCartService_AddLine_PreservesInsertionOrder(t *testing.T) {
	repo := newMemCartRepository()
	svc := NewCartService(repo, newTestProducer(), newTestLogger())
	sess := userSession("maria")

	for _, id := range []string{"3", "1", "2"} {
		_, err := svc.AddLine(context.Background(), sess, AddLineInput{
			ProductID: id, DisplayName: "P" + id, UnitPrice: 1, Quantity: 1,
		})
		require.NoError(t, err)
	}

	cart, err := svc.Get(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 3)
	assert.Equal(t, "3", cart.Lines[0].ProductID)
	assert.Equal(t, "1", cart.Lines[1].ProductID)
	assert.Equal(t, "2", cart.Lines[2].ProductID)
}

func TestCartService_AddLine_RejectsInvalidQuantity(t *testing.T) {
	svc := NewCartService(new(mockCartRepository), newTestProducer(), newTestLogger())

	for _, qty := range []int{0, -1} {
		_, err := svc.AddLine(context.Background(), userSession("maria"), AddLineInput{
			ProductID: "7", DisplayName: "Widget", UnitPrice: 100, Quantity: qty,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

func TestCartService_AddLine_RejectsNegativePrice(t *testing.T) {
	svc := NewCartService(new(mockCartRepository), newTestProducer(), newTestLogger())

	_, err := svc.AddLine(context.Background(), userSession("maria"), AddLineInput{
		ProductID: "7", DisplayName: "Widget", UnitPrice: -1, Quantity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCartService_AddLine_RejectsAdminRole(t *testing.T) {
	svc := NewCartService(new(mockCartRepository), newTestProducer(), newTestLogger())

	_, err := svc.AddLine(context.Background(), domain.Session{Customer: "admin1", Role: domain.RoleAdmin}, AddLineInput{
		ProductID: "7", DisplayName: "Widget", UnitPrice: 100, Quantity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCartService_RemoveLine_AbsentProductIsNoOp(t *testing.T) {
	repo := newMemCartRepository()
	svc := NewCartService(repo, newTestProducer(), newTestLogger())
	sess := userSession("maria")

	_, err := svc.AddLine(context.Background(), sess, AddLineInput{
		ProductID: "7", DisplayName: "Widget", UnitPrice: 100, Quantity: 3,
	})
	require.NoError(t, err)

	cart, err := svc.RemoveLine(context.Background(), sess, "does-not-exist")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 300.0, cart.Total())
}

func TestCartService_Clear_DeletesCart(t *testing.T) {
	repo := new(mockCartRepository)
	repo.On("Delete", mock.Anything, "maria").Return(nil)

	svc := NewCartService(repo, newTestProducer(), newTestLogger())

	require.NoError(t, svc.Clear(context.Background(), userSession("maria")))
	repo.AssertExpectations(t)
}

func TestCartService_AddRemoveScenario(t *testing.T) {
	repo := newMemCartRepository()
	svc := NewCartService(repo, newTestProducer(), newTestLogger())
	sess := userSession("maria")

	cart, err := svc.Get(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, cart.IsEmpty())

	cart, err = svc.AddLine(context.Background(), sess, AddLineInput{
		ProductID: "7", DisplayName: "Widget", UnitPrice: 100, Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 300.0, cart.Total())

	cart, err = svc.AddLine(context.Background(), sess, AddLineInput{
		ProductID: "7", DisplayName: "Widget", UnitPrice: 100, Quantity: 2,
	})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, 500.0, cart.Total())

	cart, err = svc.RemoveLine(context.Background(), sess, "7")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0.0, cart.Total())
}
