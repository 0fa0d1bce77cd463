package product

import (
	"context"
	"time"
)

// Product marketplace listing. Count is the available stock and is only ever
// mutated through the inventory ledger's conditional decrement/increment.
type Product struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SellerID    int64     `gorm:"index;not null" json:"sellerId"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:512" json:"description"`
	Price       int64     `gorm:"not null" json:"price"` // paisa
	Count       int64     `gorm:"not null" json:"count"`
	Category    string    `gorm:"size:32;index" json:"category"`
	ImageURL    string    `gorm:"size:256" json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Repository product persistence. CRUD beyond what checkout needs lives in the
// seller/admin surface and is intentionally thin here.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
}
