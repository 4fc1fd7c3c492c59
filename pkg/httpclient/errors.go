package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/tienda-labs/storefront/pkg/errors"
)

// upstreamErrorBody is the error shape the backoffice services return on
// non-2xx responses: a bare JSON object with a human-readable message.
type upstreamErrorBody struct {
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx response from an upstream
// service and translates it into an AppError. When the body carries the
// conventional {"message": ...} shape, the message is preserved verbatim so
// callers can surface exactly what the upstream said. The body is fully
// consumed and closed.
func ParseResponseError(resp *http.Response, boundary string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.UpstreamUnavailable(boundary,
			fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	var upstream upstreamErrorBody
	if json.Unmarshal(bodyBytes, &upstream) == nil && upstream.Message != "" {
		return mapUpstreamError(resp.StatusCode, upstream.Message, boundary)
	}

	body := strings.TrimSpace(string(bodyBytes))
	if body == "" {
		body = http.StatusText(resp.StatusCode)
	}
	return mapUpstreamError(resp.StatusCode, body, boundary)
}

func mapUpstreamError(status int, message, boundary string) error {
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(boundary, message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status >= 500:
		return apperrors.UpstreamUnavailable(boundary,
			fmt.Errorf("status %d: %s", status, message))
	default:
		return apperrors.UpstreamRejected(boundary, message)
	}
}

// IsClientError reports whether status is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
