package payment

import (
	"context"
	"time"
)

// Method payment method for one attempt.
type Method string

const (
	MethodCOD    Method = "COD"
	MethodEsewa  Method = "ESEWA"
	MethodKhalti Method = "KHALTI"
)

// ParseMethod validates a method string coming off the wire.
func ParseMethod(raw string) (Method, bool) {
	switch Method(raw) {
	case MethodCOD, MethodEsewa, MethodKhalti:
		return Method(raw), true
	}
	return "", false
}

// Gateway reports whether the method goes through a redirect-based provider.
func (m Method) Gateway() bool {
	return m == MethodEsewa || m == MethodKhalti
}

// Status payment attempt state.
type Status string

const (
	StatusUnpaid Status = "UNPAID"
	StatusPaid   Status = "PAID"
	StatusFailed Status = "FAILED"
)

// Payment one attempt for an (order, method) pair. TransactionID is the
// correlation id tying the attempt to the provider transaction; it stays
// stable across retries of the same attempt.
type Payment struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	OrderID       int64  `gorm:"index;not null" json:"orderId"`
	Amount        int64  `gorm:"not null" json:"amount"` // paisa
	Method        Method `gorm:"size:16;index;not null" json:"method"`
	Status        Status `gorm:"size:16;index;not null" json:"status"`
	TransactionID string `gorm:"size:64;index" json:"transactionId"`
	// ProviderRef is the provider-assigned lookup handle (Khalti pidx);
	// empty for providers that key lookups off TransactionID.
	ProviderRef string `gorm:"size:64;index" json:"providerRef"`
	// NeedsReconcile marks a payment captured by the provider for an order
	// that could not be confirmed (stock gone); cleared by an operator.
	NeedsReconcile bool      `gorm:"index;not null;default:false" json:"needsReconcile"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Repository payment persistence.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	// GetOpenAttempt returns the UNPAID attempt for (order, method), if any.
	GetOpenAttempt(ctx context.Context, orderID int64, method Method) (*Payment, error)
	// GetLatestByOrder returns the most recent attempt for the order, if any.
	GetLatestByOrder(ctx context.Context, orderID int64) (*Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*Payment, error)
	ListNeedingReconcile(ctx context.Context, limit int) ([]*Payment, error)
	Save(ctx context.Context, p *Payment) error
}
