package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/cart"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/identity"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/order"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// errorStatus maps a domain error to its HTTP status and stable error code.
// Unknown errors fall through to 500 without leaking their message.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_quantity", "quantity must be positive"
	case errors.Is(err, domain.ErrQuantityLimitExceeded):
		return http.StatusBadRequest, "quantity_limit_exceeded", "quantity exceeds the per-line limit"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart", "cart is empty"
	case errors.Is(err, domain.ErrEmptyCartDiscount):
		return http.StatusBadRequest, "empty_cart_discount", "cannot apply a discount to an empty cart"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", "you do not have access to this resource"
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, "item_not_found", "cart item not found"
	case errors.Is(err, domain.ErrUnknownDiscountCode):
		return http.StatusNotFound, "unknown_discount_code", "discount code not recognized"
	case errors.Is(err, domain.ErrAddressNotFound):
		return http.StatusNotFound, "address_not_found", "address not found"
	case errors.Is(err, cart.ErrCartNotFound):
		return http.StatusNotFound, "cart_not_found", "cart not found"
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found", "order not found"
	case errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found", "product not found"
	case errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	case errors.Is(err, domain.ErrProductGone):
		return http.StatusConflict, "product_gone", "a cart item is no longer in the catalog"
	case errors.Is(err, domain.ErrProductUnavailable):
		return http.StatusConflict, "product_unavailable", "product is not available for purchase"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock", "not enough stock available"
	case errors.Is(err, domain.ErrDuplicateDiscount):
		return http.StatusConflict, "duplicate_discount", "discount already applied"
	case errors.Is(err, domain.ErrNotCancellable):
		return http.StatusConflict, "not_cancellable", "order can no longer be cancelled"
	case errors.Is(err, domain.ErrNotRefundable):
		return http.StatusConflict, "not_refundable", "order is not eligible for refund"
	case errors.Is(err, domain.ErrRefundAlreadyRequested):
		return http.StatusConflict, "refund_already_requested", "a refund was already requested"
	case errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict, "illegal_transition", "requested state change is not allowed"
	case errors.Is(err, domain.ErrInventoryConflict):
		return http.StatusConflict, "inventory_conflict", "order created but inventory could not be reserved"
	case errors.Is(err, order.ErrDuplicateOrder):
		return http.StatusConflict, "duplicate_checkout", "an identical checkout is already in progress"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func handleDomainError(w http.ResponseWriter, err error) {
	status, code, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("unhandled error: %v", err)
	}
	respondError(w, status, code, message)
}
