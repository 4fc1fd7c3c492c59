package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tienda-labs/storefront/internal/service"
	"github.com/tienda-labs/storefront/pkg/health"
	"github.com/tienda-labs/storefront/pkg/middleware"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Auth     *service.AuthService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Catalog  *service.CatalogService
	Health   *health.Handler
	Logger   *slog.Logger

	// LoginRPS and LoginBurst bound login attempts per client IP.
	LoginRPS   int
	LoginBurst int
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(deps.Auth, deps.Logger)
	cartHandler := NewCartHandler(deps.Cart, deps.Checkout, deps.Catalog, deps.Logger)
	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Logger)

	sessionAuth := SessionAuth(deps.Auth, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(deps.LoginRPS, deps.LoginBurst, deps.Logger))
			r.Post("/auth/login", authHandler.Login)
		})

		r.Get("/products", catalogHandler.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)

			r.Post("/auth/logout", authHandler.Logout)

			r.Delete("/products/{id}", catalogHandler.DeleteProduct)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/lines", cartHandler.AddLine)
			r.Delete("/cart/lines/{productId}", cartHandler.RemoveLine)
			r.Post("/cart/checkout", cartHandler.Checkout)
		})
	})

	return r
}
