package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tienda-labs/storefront/internal/domain"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
	"github.com/tienda-labs/storefront/pkg/httpclient"
)

// CSRFHeader is the header the backoffice expects mutating requests to
// carry, echoing the anti-forgery token it issued in a cookie.
const CSRFHeader = "X-XSRF-TOKEN"

// productWire mirrors the catalog boundary's JSON field names.
type productWire struct {
	ID          json.Number `json:"id"`
	Nombre      string      `json:"nombre"`
	Descripcion string      `json:"descripcion"`
	Categoria   string      `json:"categoria"`
	Stock       int         `json:"stock"`
	Precio      float64     `json:"precio"`
	URLImagen   string      `json:"url_imagen"`
}

// CatalogClient queries the product catalog boundary. Reads retry and run
// behind a circuit breaker; deletes go through the same breaker.
type CatalogClient struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
}

// NewCatalogClient creates a client for the catalog at baseURL.
func NewCatalogClient(httpClient *httpclient.CircuitBreakerClient, baseURL string) *CatalogClient {
	return &CatalogClient{
		http:    httpClient,
		baseURL: baseURL,
	}
}

// ListProducts fetches the full product list.
func (c *CatalogClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/producto/list")
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("catalog", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}
	defer func() { _ = resp.Body.Close() }()

	var wire []productWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, apperrors.UpstreamUnavailable("catalog", fmt.Errorf("decode product list: %w", err))
	}

	products := make([]domain.Product, len(wire))
	for i, p := range wire {
		products[i] = domain.Product{
			ID:          p.ID.String(),
			Name:        p.Nombre,
			Description: p.Descripcion,
			Category:    p.Categoria,
			Stock:       p.Stock,
			Price:       p.Precio,
			ImageURL:    p.URLImagen,
		}
	}

	return products, nil
}

// GetProduct fetches a single product by ID. Returns ErrNotFound when the
// catalog has no product with that ID.
func (c *CatalogClient) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, apperrors.NotFound("product", id)
}

// DeleteProduct removes a product from the catalog, forwarding the caller's
// anti-forgery token.
func (c *CatalogClient) DeleteProduct(ctx context.Context, id, csrfToken string) error {
	url := fmt.Sprintf("%s/producto/delete/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create DELETE request: %w", err)
	}
	req.Header.Set(CSRFHeader, csrfToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.UpstreamUnavailable("catalog", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "catalog")
	}
	_ = resp.Body.Close()

	return nil
}
