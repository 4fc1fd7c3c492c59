package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tienda-labs/storefront/internal/domain"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
	"github.com/tienda-labs/storefront/pkg/httpclient"
)

// orderLineWire mirrors the order boundary's JSON field names.
type orderLineWire struct {
	Fecha         string  `json:"fecha"`
	Cliente       string  `json:"cliente"`
	Producto      string  `json:"producto"`
	Precio        float64 `json:"precio"`
	Cantidad      int     `json:"cantidad"`
	NroPedido     int64   `json:"nropedido"`
	NombreCliente string  `json:"nombreCliente"`
}

// OrderClient submits order batches to the order boundary. The underlying
// HTTP client must be configured with zero retries: the request is not
// idempotent and a retried send could create duplicate orders.
type OrderClient struct {
	http    *httpclient.Client
	baseURL string
}

// NewOrderClient creates a client for the order boundary at baseURL.
func NewOrderClient(httpClient *httpclient.Client, baseURL string) *OrderClient {
	return &OrderClient{
		http:    httpClient,
		baseURL: baseURL,
	}
}

// SubmitBatch sends all order lines as one request, with the caller's
// anti-forgery token. On a non-2xx response the boundary's {message} body,
// when present, is surfaced verbatim in the returned error.
func (c *OrderClient) SubmitBatch(ctx context.Context, lines []domain.OrderLine, csrfToken string) error {
	wire := make([]orderLineWire, len(lines))
	for i, l := range lines {
		wire[i] = orderLineWire{
			Fecha:         l.Date,
			Cliente:       l.Customer,
			Producto:      l.ProductID,
			Precio:        l.Price,
			Cantidad:      l.Quantity,
			NroPedido:     l.OrderNumber,
			NombreCliente: l.CustomerName,
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal order batch: %w", err)
	}

	url := c.baseURL + "/pedido/batchPedidos"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CSRFHeader, csrfToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.UpstreamUnavailable("orders", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "orders")
	}
	_ = resp.Body.Close()

	return nil
}
