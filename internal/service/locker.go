package service

import (
	"context"
	"sync"
)

// OrderLocker serializes checkout steps (initiate, verify, cancel, expiry
// sweep) for a single order id. Contention on the same product across
// different orders is handled at the product row instead, by the ledger's
// conditional decrement.
type OrderLocker interface {
	Acquire(ctx context.Context, orderID int64) (bool, error)
	Release(ctx context.Context, orderID int64) error
}

// LocalOrderLock in-process locker for single-node runs and tests. The Redis
// locker in internal/infra/redis covers multi-node deployments.
type LocalOrderLock struct {
	mu   sync.Mutex
	held map[int64]bool
}

// NewLocalOrderLock creates an in-process per-order lock.
func NewLocalOrderLock() *LocalOrderLock {
	return &LocalOrderLock{held: make(map[int64]bool)}
}

func (l *LocalOrderLock) Acquire(ctx context.Context, orderID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[orderID] {
		return false, nil
	}
	l.held[orderID] = true
	return true, nil
}

func (l *LocalOrderLock) Release(ctx context.Context, orderID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, orderID)
	return nil
}
