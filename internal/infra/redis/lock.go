package redis

import (
	"context"
	"fmt"
	"strconv"

	radix "github.com/mediocregopher/radix/v3"
)

const checkoutLockKey = "checkout:lock:%d" // orderID

// OrderLock serializes checkout steps per order id via SET NX EX. The TTL
// bounds how long a crashed holder can block an order.
type OrderLock struct {
	client     radix.Client
	ttlSeconds int
}

// NewOrderLock creates a Redis-backed per-order lock.
func NewOrderLock(client radix.Client, ttlSeconds int) *OrderLock {
	if ttlSeconds <= 0 {
		ttlSeconds = 30
	}
	return &OrderLock{client: client, ttlSeconds: ttlSeconds}
}

// Acquire returns true when the lock for the order was taken.
func (l *OrderLock) Acquire(ctx context.Context, orderID int64) (bool, error) {
	key := fmt.Sprintf(checkoutLockKey, orderID)
	var reply string
	err := l.client.Do(radix.Cmd(&reply, "SET", key, "1", "NX", "EX", strconv.Itoa(l.ttlSeconds)))
	if err != nil {
		return false, err
	}
	return reply == "OK", nil
}

// Release drops the lock. Safe to call after a failed Acquire.
func (l *OrderLock) Release(ctx context.Context, orderID int64) error {
	key := fmt.Sprintf(checkoutLockKey, orderID)
	return l.client.Do(radix.Cmd(nil, "DEL", key))
}
