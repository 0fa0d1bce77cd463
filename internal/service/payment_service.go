package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
)

// PaymentService owns payment attempt rows. Only the checkout orchestrator
// calls it, always inside the per-order lock.
type PaymentService struct{}

// NewPaymentService creates the payment service.
func NewPaymentService() *PaymentService {
	return &PaymentService{}
}

// NewCorrelationID mints the correlation id tying a local attempt to the
// provider transaction: "{orderId}-{timestamp}". Nanosecond resolution so a
// retry right after a failed attempt still gets a distinct id.
func NewCorrelationID(orderID int64) string {
	return fmt.Sprintf("%d-%d", orderID, time.Now().UnixNano())
}

// OpenAttempt returns the existing UNPAID attempt for (order, method) — so a
// retried initiation keeps its correlation id — or creates a fresh one.
func (s *PaymentService) OpenAttempt(ctx context.Context, tx *gorm.DB, o *order.Order, method payment.Method) (*payment.Payment, error) {
	var p payment.Payment
	err := tx.WithContext(ctx).
		Where("order_id = ? AND method = ? AND status = ?", o.ID, method, payment.StatusUnpaid).
		Order("id DESC").
		First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p = payment.Payment{
		OrderID:       o.ID,
		Amount:        o.Total,
		Method:        method,
		Status:        payment.StatusUnpaid,
		TransactionID: NewCorrelationID(o.ID),
	}
	if err := tx.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkStatus moves an attempt to the given status. A PAID record is terminal:
// the guard refuses to regress it, so late or duplicate callbacks cannot
// undo a finalized success.
func (s *PaymentService) MarkStatus(ctx context.Context, tx *gorm.DB, p *payment.Payment, st payment.Status) error {
	if p.Status == payment.StatusPaid && st != payment.StatusPaid {
		return ErrAlreadyPaid
	}
	res := tx.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ? AND status <> ?", p.ID, payment.StatusPaid).
		Update("status", st)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 && st != payment.StatusPaid {
		// Row reached PAID concurrently; keep it.
		return ErrAlreadyPaid
	}
	p.Status = st
	return nil
}

// SetProviderRef stores the provider-assigned lookup handle on the attempt.
func (s *PaymentService) SetProviderRef(ctx context.Context, tx *gorm.DB, p *payment.Payment, ref string) error {
	if err := tx.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ?", p.ID).
		Update("provider_ref", ref).Error; err != nil {
		return err
	}
	p.ProviderRef = ref
	return nil
}

// FlagReconcile marks a captured payment whose order could not be confirmed.
func (s *PaymentService) FlagReconcile(ctx context.Context, tx *gorm.DB, p *payment.Payment) error {
	if err := tx.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ?", p.ID).
		Update("needs_reconcile", true).Error; err != nil {
		return err
	}
	p.NeedsReconcile = true
	return nil
}
