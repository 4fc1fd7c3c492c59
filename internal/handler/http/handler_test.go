package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-labs/storefront/internal/auth"
	"github.com/tienda-labs/storefront/internal/client"
	"github.com/tienda-labs/storefront/internal/event"
	redisrepo "github.com/tienda-labs/storefront/internal/repository/redis"
	"github.com/tienda-labs/storefront/internal/service"
	"github.com/tienda-labs/storefront/pkg/health"
	"github.com/tienda-labs/storefront/pkg/httpclient"
	pkgkafka "github.com/tienda-labs/storefront/pkg/kafka"
)

// ordersStub is a configurable fake for the order boundary.
type ordersStub struct {
	mu        sync.Mutex
	fail      bool
	failBody  string
	requests  int
	lastToken string
	lastBatch []map[string]any
}

func (o *ordersStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.requests++
		o.lastToken = r.Header.Get("X-XSRF-TOKEN")
		o.lastBatch = nil
		_ = json.NewDecoder(r.Body).Decode(&o.lastBatch)
		if o.fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(o.failBody))
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

type testEnv struct {
	router http.Handler
	orders *ordersStub

	catalogMu      sync.Mutex
	catalogDeletes []string
	catalogToken   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &testEnv{orders: &ordersStub{}}

	directorySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"usuario":"admin1","clave":"adminpass","rol":1},
			{"usuario":"maria","clave":"s3cret","rol":2}
		]`))
	}))
	t.Cleanup(directorySrv.Close)

	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			env.catalogMu.Lock()
			env.catalogDeletes = append(env.catalogDeletes, r.URL.Path)
			env.catalogToken = r.Header.Get("X-XSRF-TOKEN")
			env.catalogMu.Unlock()
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":7,"nombre":"Widget","descripcion":"A widget","categoria":"tools","stock":12,"precio":100,"url_imagen":""},
			{"id":9,"nombre":"Gadget","descripcion":"A gadget","categoria":"tools","stock":2,"precio":45.5,"url_imagen":""}
		]`))
	}))
	t.Cleanup(catalogSrv.Close)

	ordersSrv := httptest.NewServer(env.orders.handler())
	t.Cleanup(ordersSrv.Close)

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = 5 * time.Second
	httpCfg.MaxRetries = 0
	readClient := httpclient.New(httpCfg)
	breaker := httpclient.NewCircuitBreakerClient(readClient, httpclient.DefaultCircuitBreakerConfig(t.Name()), logger)

	cartRepo := redisrepo.NewCartRepository(rdb, 24*time.Hour, logger)
	sessionRepo := redisrepo.NewSessionRepository(rdb, time.Hour)

	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)

	jwtManager := auth.NewJWTManager("handler-test-secret-0123456789", time.Hour)
	authService := service.NewAuthService(
		client.NewDirectoryClient(readClient, directorySrv.URL), sessionRepo, jwtManager, logger)
	cartService := service.NewCartService(cartRepo, producer, logger)
	checkoutService := service.NewCheckoutService(cartRepo,
		client.NewOrderClient(readClient, ordersSrv.URL), producer, logger)
	catalogService := service.NewCatalogService(
		client.NewCatalogClient(breaker, catalogSrv.URL), logger)

	env.router = NewRouter(RouterDeps{
		Auth:       authService,
		Cart:       cartService,
		Checkout:   checkoutService,
		Catalog:    catalogService,
		Health:     health.NewHandler(),
		Logger:     logger,
		LoginRPS:   100,
		LoginBurst: 100,
	})

	return env
}

func (e *testEnv) do(t *testing.T, method, path, token, csrf string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrf})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

type cartViewResp struct {
	Data struct {
		Lines []struct {
			ProductID   string  `json:"product_id"`
			DisplayName string  `json:"display_name"`
			UnitPrice   float64 `json:"unit_price"`
			Quantity    int     `json:"quantity"`
		} `json:"lines"`
		ItemCount   int     `json:"item_count"`
		Total       float64 `json:"total"`
		OrderNumber int64   `json:"order_number"`
		CanCheckout bool    `json:"can_checkout"`
	} `json:"data"`
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) cartViewResp {
	t.Helper()
	var v cartViewResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func addLineBody(productID string, qty int) map[string]any {
	price := 100.0
	name := "Widget"
	if productID == "9" {
		price = 45.5
		name = "Gadget"
	}
	return map[string]any{
		"product_id":   productID,
		"display_name": name,
		"unit_price":   price,
		"quantity":     qty,
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": "maria",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_AddAndMergeLines(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "maria", "s3cret")

	rec := env.do(t, http.MethodPost, "/api/v1/cart/lines", token, "", addLineBody("7", 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, 300.0, view.Data.Total)
	assert.True(t, view.Data.CanCheckout)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/lines", token, "", addLineBody("7", 2))
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	require.Len(t, view.Data.Lines, 1)
	assert.Equal(t, 5, view.Data.Lines[0].Quantity)
	assert.Equal(t, 500.0, view.Data.Total)
}

func TestCart_AddLine_QuantityBoundedByStock(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "maria", "s3cret")

	// Product 9 has stock 2.
	rec := env.do(t, http.MethodPost, "/api/v1/cart/lines", token, "", addLineBody("9", 3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "stock")
}

func TestCart_AdminCannotMutate(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin1", "adminpass")

	rec := env.do(t, http.MethodPost, "/api/v1/cart/lines", token, "", addLineBody("7", 1))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckout_SuccessClearsCartAndForwardsCSRF(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "maria", "s3cret")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/cart/lines", token, "", addLineBody("7", 3)).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/cart/lines", token, "", addLineBody("9", 1)).Code)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/checkout", token, "csrf-cookie-value", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			State       string  `json:"state"`
			OrderNumber int64   `json:"order_number"`
			LineCount   int     `json:"line_count"`
			Total       float64 `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "succeeded", resp.Data.State)
	assert.Equal(t, 2, resp.Data.LineCount)
	assert.Equal(t, 345.5, resp.Data.Total)

	// The boundary saw the cookie's token and one shared order number.
	env.orders.mu.Lock()
	assert.Equal(t, "csrf-cookie-value", env.orders.lastToken)
	require.Len(t, env.orders.lastBatch, 2)
	assert.Equal(t, env.orders.lastBatch[0]["nropedido"], env.orders.lastBatch[1]["nropedido"])
	assert.Equal(t, fmt.Sprintf("%d", resp.Data.OrderNumber), fmt.Sprintf("%.0f", env.orders.lastBatch[0]["nropedido"]))
	env.orders.mu.Unlock()

	view := decodeView(t, env.do(t, http.MethodGet, "/api/v1/cart", token, "", nil))
	assert.Empty(t, view.Data.Lines)
	assert.Equal(t, 0.0, view.Data.Total)
	assert.Zero(t, view.Data.OrderNumber)
}

func TestCheckout_RejectionLeavesCartIntact(t *testing.T) {
	env := newTestEnv(t)
	env.orders.fail = true
	env.orders.failBody = `{"message":"pedido rechazado por stock"}`
	token := env.login(t, "maria", "s3cret")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/cart/lines", token, "", addLineBody("7", 3)).Code)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/checkout", token, "tok", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "pedido rechazado por stock")

	view := decodeView(t, env.do(t, http.MethodGet, "/api/v1/cart", token, "", nil))
	require.Len(t, view.Data.Lines, 1)
	assert.Equal(t, 300.0, view.Data.Total)
	assert.NotZero(t, view.Data.OrderNumber)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "maria", "s3cret")

	rec := env.do(t, http.MethodPost, "/api/v1/cart/checkout", token, "tok", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.orders.mu.Lock()
	assert.Zero(t, env.orders.requests)
	env.orders.mu.Unlock()
}

func TestProducts_ListIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/products", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Widget")
	assert.Contains(t, rec.Body.String(), "Gadget")
}

func TestProducts_DeleteRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	userToken := env.login(t, "maria", "s3cret")
	rec := env.do(t, http.MethodDelete, "/api/v1/products/7", userToken, "csrf-x", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := env.login(t, "admin1", "adminpass")
	rec = env.do(t, http.MethodDelete, "/api/v1/products/7", adminToken, "csrf-x", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.catalogMu.Lock()
	require.Len(t, env.catalogDeletes, 1)
	assert.Equal(t, "/producto/delete/7", env.catalogDeletes[0])
	assert.Equal(t, "csrf-x", env.catalogToken)
	env.catalogMu.Unlock()
}

func TestLogout_InvalidatesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "maria", "s3cret")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/auth/logout", token, "", nil).Code)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
