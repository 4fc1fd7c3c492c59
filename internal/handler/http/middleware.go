package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tienda-labs/storefront/internal/domain"
	"github.com/tienda-labs/storefront/internal/service"
	"github.com/tienda-labs/storefront/pkg/httputil"
	"github.com/tienda-labs/storefront/pkg/logger"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const sessionKey contextKey = "session"

// CSRFCookie is the cookie the backoffice issues its anti-forgery token in.
// Mutating boundary calls echo its value back in a header.
const CSRFCookie = "XSRF-TOKEN"

// SessionAuth validates the Bearer token and checks the session record still
// exists, then stores the resolved session in the request context. Requests
// without a valid, live session are rejected with 401.
func SessionAuth(authService *service.AuthService, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
				})
				return
			}

			sess, err := authService.Authenticate(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, log)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			ctx = logger.WithCustomer(ctx, sess.Customer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromContext extracts the authenticated session from the context.
func sessionFromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(domain.Session)
	return sess, ok && sess.Customer != ""
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// csrfToken reads the anti-forgery token cookie. Absence yields an empty
// token; the upstream decides whether to accept that.
func csrfToken(r *http.Request) string {
	c, err := r.Cookie(CSRFCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// ContentTypeJSON enforces that requests with a body carry application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
