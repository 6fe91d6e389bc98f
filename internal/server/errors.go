package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hopelink/givecoin/internal/coinbase"
	donationdomain "github.com/hopelink/givecoin/internal/donation/domain"
	"github.com/hopelink/givecoin/internal/webhook"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrTooManyRequests = errors.New("too_many_requests")
	ErrInternal        = errors.New("internal_error")
)

// ErrorHandlingMiddleware converts errors recorded on the gin context into
// a JSON error body. Handlers report errors with AbortWithError and never
// write error responses themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case errors.Is(err, donationdomain.ErrMissingAmount),
		errors.Is(err, donationdomain.ErrMissingCurrency),
		errors.Is(err, donationdomain.ErrMissingPurpose):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "Missing required fields: amount, currency, productName",
		}
	case errors.Is(err, donationdomain.ErrInvalidChargeID):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid charge id",
		}
	case errors.Is(err, webhook.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "auth_error",
			Message: "invalid signature",
		}
	case errors.Is(err, webhook.ErrInvalidPayload):
		return http.StatusInternalServerError, errorPayload{
			Type:    "malformed_event",
			Message: "webhook payload could not be parsed",
		}
	case errors.Is(err, donationdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "donation not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	}

	var apiErr *coinbase.APIError
	if errors.As(err, &apiErr) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "upstream_error",
			Message: apiErr.Message,
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "upstream_error",
		Message: "Failed to process request",
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
