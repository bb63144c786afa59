package domain

import "errors"

var (
	ErrProductGone           = errors.New("product no longer exists")
	ErrProductUnavailable    = errors.New("product is not available for purchase")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrQuantityLimitExceeded = errors.New("line quantity limit exceeded")
	ErrItemNotFound          = errors.New("item not found in cart")

	ErrUnknownDiscountCode = errors.New("unknown discount code")
	ErrDuplicateDiscount   = errors.New("discount code already applied")
	ErrEmptyCartDiscount   = errors.New("cannot apply discount to an empty cart")

	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrAddressNotFound = errors.New("address not found in address book")

	ErrNotCancellable         = errors.New("order can no longer be cancelled")
	ErrNotRefundable          = errors.New("order is not eligible for refund")
	ErrRefundAlreadyRequested = errors.New("refund already requested")
	ErrIllegalTransition      = errors.New("illegal status transition")

	// ErrInventoryConflict marks a checkout whose order row exists but whose
	// stock decrement failed; the order is left with payment status failed
	// rather than silently inconsistent.
	ErrInventoryConflict = errors.New("inventory update failed after order creation")

	ErrForbidden = errors.New("caller does not own this resource")
)
