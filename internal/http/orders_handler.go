package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/order"
	"github.com/go-chi/chi/v5"
)

// OrderAPI is the order service surface the handler depends on.
type OrderAPI interface {
	Get(ctx context.Context, caller order.Caller, ref string) (*domain.Order, error)
	List(ctx context.Context, userID string) ([]*domain.Order, error)
	Cancel(ctx context.Context, caller order.Caller, ref, reason string) (*domain.Order, error)
	RequestRefund(ctx context.Context, caller order.Caller, ref, reason string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, ref string, newStatus domain.OrderStatus, reason string) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, ref string, newStatus domain.PaymentStatus, transactionID string) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderAPI
	timeout time.Duration
}

func NewOrdersHandler(orders OrderAPI, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout}
}

type ReasonRequestDTO struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type UpdatePaymentRequestDTO struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func callerFromContext(ctx context.Context) (order.Caller, bool) {
	userID := userIDFromContext(ctx)
	if userID == "" {
		return order.Caller{}, false
	}
	return order.Caller{UserID: userID, Privileged: isPrivileged(ctx)}, true
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.List(ctx, userID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_ref} where order_ref is an id or order number.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ref := chi.URLParam(r, "order_ref")
	if ref == "" {
		respondError(w, http.StatusBadRequest, "missing_order_ref", "order reference is required")
		return
	}

	o, err := h.orders.Get(ctx, caller, ref)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ReasonRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	o, err := h.orders.Cancel(ctx, caller, chi.URLParam(r, "order_ref"), req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ReasonRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "missing_reason", "a refund reason is required")
		return
	}

	o, err := h.orders.RequestRefund(ctx, caller, chi.URLParam(r, "order_ref"), req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// UpdateStatus is an administrative operation.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !isPrivileged(r.Context()) {
		respondError(w, http.StatusForbidden, "forbidden", "administrative access required")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}

	o, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "order_ref"), status, req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// UpdatePayment is an administrative operation, normally driven by the
// payment provider's webhook.
func (h *OrdersHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !isPrivileged(r.Context()) {
		respondError(w, http.StatusForbidden, "forbidden", "administrative access required")
		return
	}

	var req UpdatePaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status := domain.PaymentStatus(req.Status)
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown payment status")
		return
	}

	o, err := h.orders.UpdatePaymentStatus(ctx, chi.URLParam(r, "order_ref"), status, req.TransactionID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}
