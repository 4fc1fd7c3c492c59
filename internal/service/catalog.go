package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tienda-labs/storefront/internal/domain"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
)

// Catalog reads and manages products through the catalog boundary.
type Catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id, csrfToken string) error
}

// CatalogService is a thin authorization layer over the catalog boundary.
type CatalogService struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(catalog Catalog, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		logger:  logger,
	}
}

// ListProducts returns the full product list. Public, no session needed.
func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct returns a single product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	return s.catalog.GetProduct(ctx, id)
}

// DeleteProduct removes a product from the catalog. Admin only; the caller's
// anti-forgery token is forwarded to the boundary.
func (s *CatalogService) DeleteProduct(ctx context.Context, sess domain.Session, id, csrfToken string) error {
	if !sess.CanManageCatalog() {
		return apperrors.Forbidden("role does not allow catalog changes")
	}
	if id == "" {
		return apperrors.InvalidInput("product id is required")
	}

	if err := s.catalog.DeleteProduct(ctx, id, csrfToken); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("customer", sess.Customer),
		slog.String("product_id", id),
	)

	return nil
}
