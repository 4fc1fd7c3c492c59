package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-labs/storefront/internal/domain"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
	"github.com/tienda-labs/storefront/pkg/httpclient"
)

func testHTTPClient() *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 0
	return httpclient.New(cfg)
}

func testBreakerClient(t *testing.T) *httpclient.CircuitBreakerClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpclient.NewCircuitBreakerClient(testHTTPClient(), httpclient.DefaultCircuitBreakerConfig(t.Name()), logger)
}

// --- Directory ---

func TestDirectoryClient_FindUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/usuario/list", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"usuario":"admin1","clave":"hash-a","rol":1},
			{"usuario":"maria","clave":"hash-m","rol":2}
		]`))
	}))
	defer srv.Close()

	c := NewDirectoryClient(testHTTPClient(), srv.URL)

	user, err := c.FindUser(context.Background(), "maria")
	require.NoError(t, err)
	assert.Equal(t, "maria", user.Username)
	assert.Equal(t, "hash-m", user.Credential)
	assert.Equal(t, domain.RoleUser, user.Role)

	admin, err := c.FindUser(context.Background(), "admin1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestDirectoryClient_FindUser_Unknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewDirectoryClient(testHTTPClient(), srv.URL)

	_, err := c.FindUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Catalog ---

func TestCatalogClient_ListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/producto/list", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":7,"nombre":"Widget","descripcion":"A widget","categoria":"tools","stock":12,"precio":19.9,"url_imagen":"http://img/w.jpg"}
		]`))
	}))
	defer srv.Close()

	c := NewCatalogClient(testBreakerClient(t), srv.URL)

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "7", products[0].ID)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, "A widget", products[0].Description)
	assert.Equal(t, "tools", products[0].Category)
	assert.Equal(t, 12, products[0].Stock)
	assert.Equal(t, 19.9, products[0].Price)
	assert.Equal(t, "http://img/w.jpg", products[0].ImageURL)
}

func TestCatalogClient_GetProduct_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewCatalogClient(testBreakerClient(t), srv.URL)

	_, err := c.GetProduct(context.Background(), "7")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCatalogClient_DeleteProduct_ForwardsCSRFToken(t *testing.T) {
	var gotMethod, gotPath, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-XSRF-TOKEN")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewCatalogClient(testBreakerClient(t), srv.URL)

	require.NoError(t, c.DeleteProduct(context.Background(), "7", "csrf-abc"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/producto/delete/7", gotPath)
	assert.Equal(t, "csrf-abc", gotToken)
}

// --- Orders ---

func sampleOrderLines() []domain.OrderLine {
	return []domain.OrderLine{
		{Date: "05/03/2026", Customer: "maria", ProductID: "7", Price: 100, Quantity: 3, OrderNumber: 1700000000123, CustomerName: "Maria Lopez"},
		{Date: "05/03/2026", Customer: "maria", ProductID: "9", Price: 45.5, Quantity: 1, OrderNumber: 1700000000123, CustomerName: "Maria Lopez"},
	}
}

func TestOrderClient_SubmitBatch_WireFormat(t *testing.T) {
	var gotPath, gotToken string
	var gotBody []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-XSRF-TOKEN")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewOrderClient(testHTTPClient(), srv.URL)

	require.NoError(t, c.SubmitBatch(context.Background(), sampleOrderLines(), "csrf-abc"))
	assert.Equal(t, "/pedido/batchPedidos", gotPath)
	assert.Equal(t, "csrf-abc", gotToken)

	require.Len(t, gotBody, 2)
	first := gotBody[0]
	assert.Equal(t, "05/03/2026", first["fecha"])
	assert.Equal(t, "maria", first["cliente"])
	assert.Equal(t, "7", first["producto"])
	assert.Equal(t, 100.0, first["precio"])
	assert.Equal(t, 3.0, first["cantidad"])
	assert.Equal(t, 1700000000123.0, first["nropedido"])
	assert.Equal(t, "Maria Lopez", first["nombreCliente"])
}

func TestOrderClient_SubmitBatch_RejectionSurfacesMessageVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"stock insuficiente para el producto 7"}`))
	}))
	defer srv.Close()

	c := NewOrderClient(testHTTPClient(), srv.URL)

	err := c.SubmitBatch(context.Background(), sampleOrderLines(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Contains(t, err.Error(), "stock insuficiente para el producto 7")
}

func TestOrderClient_SubmitBatch_UnparsableBodyGetsGenericError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewOrderClient(testHTTPClient(), srv.URL)

	err := c.SubmitBatch(context.Background(), sampleOrderLines(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestOrderClient_SubmitBatch_NeverRetries(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOrderClient(testHTTPClient(), srv.URL)

	err := c.SubmitBatch(context.Background(), sampleOrderLines(), "tok")
	require.Error(t, err)
	assert.Equal(t, 1, requests)
}
