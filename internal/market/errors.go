package market

import "errors"

var (
	ErrInsufficientStock    = errors.New("not enough stock available")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrStockUnderflow       = errors.New("stock underflow")
	ErrEmptyCart            = errors.New("no items in your cart to place order")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidInput         = errors.New("invalid input")
)

// IsValidation reports whether err is a user-facing validation failure that
// must be recovered at the boundary.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidInput)
}
