package order

import (
	"context"
	"time"
)

// Status lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// transitions is the legal transition table. Anything not listed is illegal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted},
}

// CanTransitionTo reports whether s -> next is a legal transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a status string coming off the wire.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled, StatusCompleted:
		return Status(raw), true
	}
	return "", false
}

// ShippingInfo delivery details captured at checkout time.
type ShippingInfo struct {
	Name    string `gorm:"size:128" json:"name"`
	Address string `gorm:"size:256" json:"address"`
	City    string `gorm:"size:64" json:"city"`
	Phone   string `gorm:"size:32" json:"phone"`
}

// Empty reports whether no shipping info was supplied.
func (s ShippingInfo) Empty() bool {
	return s.Name == "" && s.Address == "" && s.City == "" && s.Phone == ""
}

// Order buyer order. Total is fixed at placement time from the item price
// snapshots and is never recomputed from current product prices.
type Order struct {
	ID           int64        `gorm:"primaryKey" json:"id"`
	BuyerID      int64        `gorm:"index;not null" json:"buyerId"`
	Total        int64        `gorm:"not null" json:"total"` // paisa
	Status       Status       `gorm:"size:16;index;not null" json:"status"`
	ShippingInfo ShippingInfo `gorm:"embedded;embeddedPrefix:ship_" json:"shippingInfo"`
	// StockDeducted records whether this order's stock was taken, so that
	// cancellation restores exactly the orders that were deducted.
	StockDeducted bool      `gorm:"not null;default:false" json:"stockDeducted"`
	PaymentID     *int64    `gorm:"index" json:"paymentId"`
	ExpiresAt     time.Time `gorm:"index" json:"expiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// OrderItem immutable snapshot of one order line. Price is the unit price at
// placement time.
type OrderItem struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	OrderID   int64     `gorm:"index;not null" json:"orderId"`
	ProductID int64     `gorm:"index;not null" json:"productId"`
	Price     int64     `gorm:"not null" json:"price"` // paisa per unit
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository order persistence.
type Repository interface {
	Create(ctx context.Context, o *Order, items []*OrderItem) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ItemsByOrder(ctx context.Context, orderID int64) ([]*OrderItem, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Order, error)
	Save(ctx context.Context, o *Order) error
}
