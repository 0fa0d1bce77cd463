package service

import (
	"errors"
	"fmt"
)

// Checkout error taxonomy. The HTTP layer maps these onto status codes; the
// orchestrator never swallows them.
var (
	// ErrInvalidRequest missing or malformed input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrOrderNotFound no such order.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentNotFound no payment attempt exists for the order.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrOrderNotPending the order left PENDING and cannot be checked out.
	ErrOrderNotPending = errors.New("order is not pending")
	// ErrAlreadyPaid a payment for this order already succeeded.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrIllegalTransition the requested status change is not in the
	// transition table.
	ErrIllegalTransition = errors.New("illegal order status transition")
	// ErrCheckoutInProgress another checkout step holds the order lock.
	ErrCheckoutInProgress = errors.New("checkout already in progress for this order")
	// ErrPaidButOutOfStock money was captured but stock ran out before
	// confirmation; requires operator reconciliation.
	ErrPaidButOutOfStock = errors.New("payment captured but stock unavailable")
	// ErrPaymentFailed the provider reported a non-success result; the
	// attempt is FAILED but the order stays PENDING for a fresh attempt.
	ErrPaymentFailed = errors.New("payment attempt failed")
	// ErrNotOrderOwner the authenticated buyer does not own the order.
	ErrNotOrderOwner = errors.New("order belongs to another buyer")
)

// InsufficientStockError one of the order's items cannot be covered by the
// product's available count. Retryable once inventory changes.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}
