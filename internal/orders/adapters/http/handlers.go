package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dejobratic/petstore/internal/auth"
	"github.com/dejobratic/petstore/internal/discounts"
	"github.com/dejobratic/petstore/internal/orders/app"
	"github.com/dejobratic/petstore/internal/orders/app/commands"
	"github.com/dejobratic/petstore/internal/orders/app/queries"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

// Handler exposes HTTP endpoints for order, refund and discount operations.
type Handler struct {
	service   *app.Service
	discounts *discounts.Service
	logger    *slog.Logger
}

func NewHandler(service *app.Service, discountService *discounts.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, discounts: discountService, logger: logger}
}

// Routes mounts the versioned API behind bearer authentication.
func (h *Handler) Routes(r chi.Router, verifier *auth.Verifier) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(Authenticate(verifier))

		r.With(RequireRole(auth.RoleCustomer)).Post("/orders", h.placeOrder)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Get("/customers/{customerID}/orders", h.listCustomerOrders)
		r.With(RequireRole(auth.RoleProductManager)).Patch("/orders/{orderID}/status", h.updateStatus)
		r.With(RequireRole(auth.RoleCustomer)).Post("/orders/{orderID}/cancel", h.cancelOrder)
		r.With(RequireRole(auth.RoleCustomer)).Post("/orders/{orderID}/returns", h.returnItem)
		r.With(RequireRole(auth.RoleCustomer)).Post("/orders/{orderID}/refunds", h.requestRefund)
		r.With(RequireRole(auth.RoleSalesManager)).Patch("/refunds/{refundID}", h.decideRefund)
		r.With(RequireRole(auth.RoleSalesManager)).Post("/discounts", h.createDiscount)
	})
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "is not valid JSON: " + err.Error()}
	}
	return nil
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.FromContext(ctx)

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key != "" {
		stored, err := h.service.GetIdempotentResponse(ctx, identity.Subject, key)
		if err != nil {
			h.logger.WarnContext(ctx, "idempotency lookup failed", "error", err)
		} else if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	var input app.PlaceOrderInput
	if err := decode(r, &input); err != nil {
		h.writeFailure(ctx, w, err)
		return
	}
	if input.CustomerID == "" {
		input.CustomerID = identity.Subject
	}
	if input.CustomerID != identity.Subject {
		h.writeFailure(ctx, w, domain.ErrForbidden)
		return
	}

	order, err := h.service.PlaceOrder(ctx, input)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	body, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	if key != "" {
		stored := ports.StoredResponse{StatusCode: http.StatusCreated, Body: body, OrderID: order.ID}
		if err := h.service.SaveIdempotentResponse(ctx, identity.Subject, key, stored); err != nil {
			h.logger.WarnContext(ctx, "failed to store idempotent response", "order_id", order.ID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/v1/orders/"+order.ID)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(append(body, '\n'))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "orderID"), scopedCustomer(r))
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if scoped := scopedCustomer(r); scoped != "" && scoped != customerID {
		h.writeFailure(r.Context(), w, domain.ErrForbidden)
		return
	}

	query := queries.ListCustomerOrdersQuery{CustomerID: customerID}
	var err error
	params := r.URL.Query()
	if query.Page, err = intParam(params.Get("page"), "page"); err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	if query.PageSize, err = intParam(params.Get("page_size"), "page_size"); err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	if raw := params.Get("status"); raw != "" {
		status, err := intParam(raw, "status")
		if err != nil {
			h.writeFailure(r.Context(), w, err)
			return
		}
		query.Status = &status
	}

	orders, err := h.service.ListCustomerOrders(r.Context(), query)
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return v, nil
}

type updateStatusRequest struct {
	OrderStatus *int `json:"order_status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	if req.OrderStatus == nil {
		h.writeFailure(r.Context(), w, &domain.ValidationError{Field: "order_status", Reason: "is required"})
		return
	}

	orderID := chi.URLParam(r, "orderID")
	status, err := h.service.UpdateOrderStatus(r.Context(), orderID, *req.OrderStatus)
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "order_status": status.Name()})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	order, err := h.service.CancelOrder(r.Context(), chi.URLParam(r, "orderID"), identity.Subject)
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

type returnRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) returnItem(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decode(r, &req); err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	order, err := h.service.ReturnItem(r.Context(), commands.ReturnItemCommand{
		OrderID:    chi.URLParam(r, "orderID"),
		CustomerID: identity.Subject,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

type refundRequest struct {
	ProductIDs []string `json:"product_ids"`
	Reason     string   `json:"reason"`
}

func (h *Handler) requestRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decode(r, &req); err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	refunds, err := h.service.RequestRefund(r.Context(), commands.RequestRefundCommand{
		OrderID:    chi.URLParam(r, "orderID"),
		CustomerID: identity.Subject,
		ProductIDs: req.ProductIDs,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"refunds": refunds})
}

type decideRefundRequest struct {
	Status string `json:"status"`
}

func (h *Handler) decideRefund(w http.ResponseWriter, r *http.Request) {
	var req decideRefundRequest
	if err := decode(r, &req); err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}

	refund, err := h.service.DecideRefund(r.Context(), chi.URLParam(r, "refundID"), req.Status)
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refund": refund})
}

type discountRequest struct {
	ProductID string          `json:"product_id"`
	Rate      decimal.Decimal `json:"rate"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := decode(r, &req); err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}

	result, err := h.discounts.CreateDiscount(r.Context(), discounts.CreateDiscountCommand{
		ProductID: req.ProductID,
		Rate:      req.Rate,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.writeFailure(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "is required"}
	}
	t, err := domain.ParseOrderDate(value)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "must use format YYYY-MM-DD or YYYY-MM-DD HH:MM:SS"}
	}
	return t, nil
}
