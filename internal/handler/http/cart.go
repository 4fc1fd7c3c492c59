package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tienda-labs/storefront/internal/service"
	"github.com/tienda-labs/storefront/pkg/httputil"
	"github.com/tienda-labs/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart and checkout endpoints.
type CartHandler struct {
	cart     *service.CartService
	checkout *service.CheckoutService
	catalog  *service.CatalogService
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(cart *service.CartService, checkout *service.CheckoutService, catalog *service.CatalogService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:     cart,
		checkout: checkout,
		catalog:  catalog,
		logger:   logger,
	}
}

// AddLineRequest is the JSON request body for adding a line to the cart.
type AddLineRequest struct {
	ProductID   string  `json:"product_id" validate:"required"`
	DisplayName string  `json:"display_name" validate:"required,min=1,max=500"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"required,gte=1"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	cart, err := h.cart.Get(r.Context(), sess)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart.View(sess)})
}

// AddLine handles POST /api/v1/cart/lines
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	var req AddLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// Bound the requested quantity by the catalog's stock. The check is
	// best-effort: a catalog outage must not block the cart.
	if product, err := h.catalog.GetProduct(r.Context(), req.ProductID); err == nil {
		if req.Quantity > product.Stock {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "INVALID_INPUT",
					Message: fmt.Sprintf("quantity %d exceeds available stock %d", req.Quantity, product.Stock),
				},
			})
			return
		}
	} else {
		h.logger.WarnContext(r.Context(), "stock check skipped",
			slog.String("product_id", req.ProductID),
			slog.String("error", err.Error()),
		)
	}

	input := service.AddLineInput{
		ProductID:   req.ProductID,
		DisplayName: req.DisplayName,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
	}

	cart, err := h.cart.AddLine(r.Context(), sess, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart.View(sess)})
}

// RemoveLine handles DELETE /api/v1/cart/lines/{productId}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "productId is required"},
		})
		return
	}

	cart, err := h.cart.RemoveLine(r.Context(), sess, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart.View(sess)})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	if err := h.cart.Clear(r.Context(), sess); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "cleared"}})
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	result, err := h.checkout.Finalize(r.Context(), sess, csrfToken(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
