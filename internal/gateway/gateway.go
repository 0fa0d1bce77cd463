// Package gateway isolates the provider-specific halves of the checkout
// protocol. Providers differ in transport (form-encoded vs JSON), auth
// (HMAC-signed fields vs bearer key) and success vocabulary; the Adapter
// interface keeps the orchestrator provider-agnostic.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
)

// ErrUnreachable means the provider could not be reached or timed out.
// Transient: the caller may retry the same attempt.
var ErrUnreachable = errors.New("payment gateway unreachable")

// RejectedError means the provider answered but refused the request or
// omitted a usable redirect URL. Permanent for this attempt.
type RejectedError struct {
	Provider string
	Reason   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected request: %s", e.Provider, e.Reason)
}

// Result unified outcome of a status verification.
type Result int

const (
	Failed Result = iota
	Paid
)

// RedirectTargets where the provider should send the buyer afterwards.
// Empty fields fall back to the configured defaults.
type RedirectTargets struct {
	SuccessURL string
	FailureURL string
}

// Initiation what a successful initiate call yields. ProviderRef is the
// provider-assigned handle for later status lookups (empty when the provider
// keys lookups off our own transaction id).
type Initiation struct {
	RedirectURL string
	ProviderRef string
}

// Adapter uniform capability set implemented per provider.
type Adapter interface {
	Method() payment.Method
	// Initiate builds and submits the provider-specific request and extracts
	// the URL the buyer must be redirected to.
	Initiate(ctx context.Context, p *payment.Payment, o *order.Order, targets RedirectTargets) (*Initiation, error)
	// Verify re-queries the provider for the authoritative payment state.
	// Client-supplied success flags are never trusted; only the stored
	// correlation id / provider ref is used.
	Verify(ctx context.Context, p *payment.Payment, o *order.Order) (Result, error)
}

// Registry adapters keyed by method.
type Registry map[payment.Method]Adapter

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) Registry {
	r := make(Registry, len(adapters))
	for _, a := range adapters {
		r[a.Method()] = a
	}
	return r
}

// For returns the adapter for a method, if registered.
func (r Registry) For(m payment.Method) (Adapter, bool) {
	a, ok := r[m]
	return a, ok
}
