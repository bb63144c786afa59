package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/checkout"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
)

// Checkouter converts the caller's active cart into an order.
type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout Checkouter
	timeout  time.Duration
}

func NewCheckoutHandler(c Checkouter, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{checkout: c, timeout: timeout}
}

type CheckoutRequestDTO struct {
	ShippingAddressID    string `json:"shipping_address_id"`
	BillingAddressID     string `json:"billing_address_id,omitempty"`
	UseShippingAsBilling bool   `json:"use_shipping_as_billing"`
	PaymentMethod        string `json:"payment_method"`
	SpecialInstructions  string `json:"special_instructions,omitempty"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "checkout requires an authenticated user")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ShippingAddressID == "" {
		respondError(w, http.StatusBadRequest, "missing_shipping_address", "shipping_address_id is required")
		return
	}
	if req.PaymentMethod == "" {
		respondError(w, http.StatusBadRequest, "missing_payment_method", "payment_method is required")
		return
	}

	o, err := h.checkout.Checkout(ctx, checkout.Request{
		UserID:               userID,
		ShippingAddressID:    req.ShippingAddressID,
		BillingAddressID:     req.BillingAddressID,
		UseShippingAsBilling: req.UseShippingAsBilling,
		PaymentMethod:        req.PaymentMethod,
		SpecialInstructions:  req.SpecialInstructions,
		IdempotencyKey:       r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}
