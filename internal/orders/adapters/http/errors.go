package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dejobratic/petstore/internal/auth"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ProductID string `json:"product_id,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrBusinessRule):
		return http.StatusUnprocessableEntity, "business_rule_violation"
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: err.Error(), Code: code}

	var stock *domain.InsufficientStockError
	var missing *domain.ProductNotFoundError
	var excess *domain.ReturnExceedsPurchaseError
	var pending *domain.RefundPendingError
	switch {
	case errors.As(err, &stock):
		body.ProductID = stock.ProductID
		body.Available = &stock.Available
		body.Requested = &stock.Requested
	case errors.As(err, &missing):
		body.ProductID = missing.ProductID
	case errors.As(err, &excess):
		body.ProductID = excess.ProductID
		body.Available = &excess.Purchased
		body.Requested = &excess.Requested
	case errors.As(err, &pending):
		body.ProductID = pending.ProductID
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", "status", status, "error", err)
		switch status {
		case http.StatusServiceUnavailable:
			body.Error = "storage temporarily unavailable"
		default:
			body.Error = "internal server error"
		}
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}
