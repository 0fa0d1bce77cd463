package user

import (
	"context"
	"time"
)

// Roles known to the marketplace.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User account record.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:128" json:"email"`
	Password  string    `gorm:"size:128;not null" json:"-"`
	Salt      string    `gorm:"size:32;not null" json:"-"`
	Role      string    `gorm:"size:16;index;not null" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository user persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
