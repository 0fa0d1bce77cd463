package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
	"github.com/prajjwolcodes/KinBech/internal/gateway"
	"github.com/prajjwolcodes/KinBech/internal/infra/mq"
)

// EventPublisher publishes checkout state changes. Satisfied by mq.Publisher;
// nil disables publishing.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, evtType string, orderID, paymentID int64) error
	PublishReconcile(ctx context.Context, orderID, paymentID, productID int64) error
}

// CheckoutRequest inbound body of an initiation.
type CheckoutRequest struct {
	PaymentMethod string             `json:"paymentMethod"`
	ShippingInfo  order.ShippingInfo `json:"shippingInfo"`
	SuccessURL    string             `json:"successUrl,omitempty"`
	FailureURL    string             `json:"failureUrl,omitempty"`
}

// CheckoutResult what a checkout step hands back to the HTTP layer.
type CheckoutResult struct {
	Order       *order.Order       `json:"order"`
	Items       []*order.OrderItem `json:"items"`
	Payment     *payment.Payment   `json:"payment"`
	RedirectURL string             `json:"redirectUrl,omitempty"`
}

// CheckoutService is the orchestrator: it owns every Order/Payment mutation
// of the checkout protocol and is the only caller of the inventory ledger.
type CheckoutService struct {
	db        *gorm.DB
	orderRepo order.Repository
	inventory *InventoryService
	payments  *PaymentService
	gateways  gateway.Registry
	locker    OrderLocker
	events    EventPublisher
	monitor   *Monitor
}

// NewCheckoutService creates the orchestrator. Gateways, locker and publisher
// are injected so process bootstrap owns their lifecycles.
func NewCheckoutService(db *gorm.DB, orderRepo order.Repository, gateways gateway.Registry, locker OrderLocker, events EventPublisher) *CheckoutService {
	return &CheckoutService{
		db:        db,
		orderRepo: orderRepo,
		inventory: NewInventoryService(),
		payments:  NewPaymentService(),
		gateways:  gateways,
		locker:    locker,
		events:    events,
		monitor:   GetMonitor(),
	}
}

// lockOrder takes the per-order mutex and returns the release func.
func (s *CheckoutService) lockOrder(ctx context.Context, orderID int64) (func(), error) {
	ok, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}
	return func() { _ = s.locker.Release(ctx, orderID) }, nil
}

// loadOrder fetches the order and enforces ownership. buyerID 0 skips the
// ownership check (admin/worker callers).
func (s *CheckoutService) loadOrder(ctx context.Context, orderID, buyerID int64) (*order.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if buyerID != 0 && o.BuyerID != buyerID {
		return nil, ErrNotOrderOwner
	}
	return o, nil
}

// InitiateCheckout starts a checkout for a PENDING order: settles immediately
// for cash on delivery, or obtains a provider redirect URL for gateway
// methods. Stock is only deducted once payment is confirmed, so an abandoned
// redirect leaves inventory untouched.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, buyerID, orderID int64, req CheckoutRequest) (*CheckoutResult, error) {
	start := time.Now()
	defer func() {
		s.monitor.CheckoutDuration.WithLabelValues("initiate").Observe(float64(time.Since(start).Milliseconds()))
	}()

	method, ok := payment.ParseMethod(req.PaymentMethod)
	if !ok || req.ShippingInfo.Empty() {
		return nil, ErrInvalidRequest
	}
	s.monitor.CheckoutInitiated.WithLabelValues(string(method)).Inc()

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.loadOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending {
		latest, lerr := s.latestPayment(ctx, orderID)
		if lerr == nil && latest != nil && latest.Status == payment.StatusPaid {
			return nil, ErrAlreadyPaid
		}
		return nil, ErrOrderNotPending
	}

	// Double-initiation guard: a PAID attempt on a still-PENDING order is a
	// reconciliation case, never a reason to charge again.
	if latest, lerr := s.latestPayment(ctx, orderID); lerr != nil {
		return nil, lerr
	} else if latest != nil && latest.Status == payment.StatusPaid {
		return nil, ErrAlreadyPaid
	}

	// Persist shipping info and open (or reuse) the UNPAID attempt. Reusing
	// keeps the correlation id stable across retries of the same attempt.
	var pay *payment.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o.ShippingInfo = req.ShippingInfo
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		var perr error
		pay, perr = s.payments.OpenAttempt(ctx, tx, o, method)
		return perr
	})
	if err != nil {
		return nil, err
	}

	if method == payment.MethodCOD {
		return s.settleCOD(ctx, o, pay)
	}
	return s.initiateGateway(ctx, o, pay, method, req)
}

// settleCOD finalizes a cash-on-delivery checkout: deduct stock, mark the
// attempt PAID and confirm the order as one atomic unit. On insufficient
// stock everything rolls back and the order stays PENDING with the attempt
// still UNPAID.
func (s *CheckoutService) settleCOD(ctx context.Context, o *order.Order, pay *payment.Payment) (*CheckoutResult, error) {
	err := s.confirmWithStock(ctx, o, pay)
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.monitor.CheckoutFailed.WithLabelValues(string(payment.MethodCOD), "insufficient_stock").Inc()
		}
		return nil, err
	}

	s.monitor.CheckoutConfirmed.WithLabelValues(string(payment.MethodCOD)).Inc()
	s.publishOrderEvent(ctx, mq.EventOrderConfirmed, o.ID, pay.ID)
	zap.L().Info("cod checkout settled",
		zap.Int64("order_id", o.ID),
		zap.Int64("payment_id", pay.ID))

	return s.result(ctx, o, pay, "")
}

// initiateGateway asks the provider for a redirect URL. The DB transaction
// committed before the outbound call, so a gateway failure leaves a
// retryable UNPAID attempt and nothing else.
func (s *CheckoutService) initiateGateway(ctx context.Context, o *order.Order, pay *payment.Payment, method payment.Method, req CheckoutRequest) (*CheckoutResult, error) {
	adapter, ok := s.gateways.For(method)
	if !ok {
		return nil, ErrInvalidRequest
	}

	init, err := adapter.Initiate(ctx, pay, o, gateway.RedirectTargets{
		SuccessURL: req.SuccessURL,
		FailureURL: req.FailureURL,
	})
	if err != nil {
		s.monitor.GatewayRequests.WithLabelValues(string(method), "initiate", "error").Inc()
		s.monitor.CheckoutFailed.WithLabelValues(string(method), gatewayFailReason(err)).Inc()
		return nil, err
	}
	s.monitor.GatewayRequests.WithLabelValues(string(method), "initiate", "ok").Inc()

	if init.ProviderRef != "" {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.payments.SetProviderRef(ctx, tx, pay, init.ProviderRef)
		})
		if err != nil {
			return nil, err
		}
	}

	zap.L().Info("gateway checkout initiated",
		zap.Int64("order_id", o.ID),
		zap.String("method", string(method)),
		zap.String("transaction_id", pay.TransactionID))

	return s.result(ctx, o, pay, init.RedirectURL)
}

// VerifyCheckout is called once the buyer returns from the provider. The
// provider is re-queried for the authoritative result; the callback token is
// only cross-checked against the stored correlation id.
func (s *CheckoutService) VerifyCheckout(ctx context.Context, buyerID, orderID int64, correlationToken string) (*CheckoutResult, error) {
	start := time.Now()
	defer func() {
		s.monitor.CheckoutDuration.WithLabelValues("verify").Observe(float64(time.Since(start).Milliseconds()))
	}()

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.loadOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	pay, err := s.latestPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pay == nil {
		return nil, ErrPaymentNotFound
	}
	if !pay.Method.Gateway() {
		return nil, ErrInvalidRequest
	}
	if correlationToken != "" && correlationToken != pay.TransactionID && correlationToken != pay.ProviderRef {
		return nil, ErrInvalidRequest
	}

	// Idempotent replay: a finalized success is never re-processed, so a
	// duplicate callback cannot deduct stock twice.
	if pay.Status == payment.StatusPaid && o.Status == order.StatusConfirmed {
		return s.result(ctx, o, pay, "")
	}

	// A captured payment already flagged for reconciliation is settled by an
	// operator; repeated callbacks must not re-verify or queue a second case.
	if pay.Status == payment.StatusPaid && pay.NeedsReconcile {
		return nil, ErrPaidButOutOfStock
	}

	adapter, ok := s.gateways.For(pay.Method)
	if !ok {
		return nil, ErrInvalidRequest
	}

	res, err := adapter.Verify(ctx, pay, o)
	if err != nil {
		s.monitor.GatewayRequests.WithLabelValues(string(pay.Method), "verify", "error").Inc()
		s.monitor.CheckoutFailed.WithLabelValues(string(pay.Method), gatewayFailReason(err)).Inc()
		return nil, err
	}
	s.monitor.GatewayRequests.WithLabelValues(string(pay.Method), "verify", "ok").Inc()

	if res != gateway.Paid {
		// Terminal for this attempt; a fresh initiation opens a new attempt
		// with a new correlation id. The order stays PENDING for retry.
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.payments.MarkStatus(ctx, tx, pay, payment.StatusFailed)
		})
		if err != nil {
			return nil, err
		}
		s.monitor.CheckoutFailed.WithLabelValues(string(pay.Method), "payment_failed").Inc()
		zap.L().Info("gateway verify failed",
			zap.Int64("order_id", o.ID),
			zap.String("transaction_id", pay.TransactionID))
		return nil, ErrPaymentFailed
	}

	err = s.confirmWithStock(ctx, o, pay)
	if err != nil {
		var stockErr *InsufficientStockError
		if !errors.As(err, &stockErr) {
			return nil, err
		}
		// Money is captured but the goods sold out while the payment was in
		// flight. Record the PAID attempt anyway and queue the case for
		// manual reconciliation instead of silently failing.
		ferr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.payments.MarkStatus(ctx, tx, pay, payment.StatusPaid); err != nil {
				return err
			}
			return s.payments.FlagReconcile(ctx, tx, pay)
		})
		if ferr != nil {
			return nil, ferr
		}
		s.monitor.ReconcileEvents.Inc()
		s.publishReconcile(ctx, o.ID, pay.ID, stockErr.ProductID)
		zap.L().Warn("payment captured but stock unavailable",
			zap.Int64("order_id", o.ID),
			zap.Int64("payment_id", pay.ID),
			zap.Int64("product_id", stockErr.ProductID))
		return nil, ErrPaidButOutOfStock
	}

	s.monitor.CheckoutConfirmed.WithLabelValues(string(pay.Method)).Inc()
	s.publishOrderEvent(ctx, mq.EventOrderConfirmed, o.ID, pay.ID)
	zap.L().Info("gateway checkout confirmed",
		zap.Int64("order_id", o.ID),
		zap.Int64("payment_id", pay.ID))

	return s.result(ctx, o, pay, "")
}

// confirmWithStock applies the finalization unit: deduct stock, mark the
// attempt PAID, transition the order to CONFIRMED with StockDeducted set.
// All of it commits or none of it does.
func (s *CheckoutService) confirmWithStock(ctx context.Context, o *order.Order, pay *payment.Payment) error {
	prevStatus, prevDeducted, prevPaymentID := o.Status, o.StockDeducted, o.PaymentID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.inventory.CheckAndDeduct(ctx, tx, o.ID); err != nil {
			return err
		}
		if err := s.payments.MarkStatus(ctx, tx, pay, payment.StatusPaid); err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(order.StatusConfirmed) {
			return ErrIllegalTransition
		}
		o.Status = order.StatusConfirmed
		o.StockDeducted = true
		o.PaymentID = &pay.ID
		return tx.Save(o).Error
	})
	if err != nil {
		// The in-memory order must not keep rolled-back state.
		o.Status = prevStatus
		o.StockDeducted = prevDeducted
		o.PaymentID = prevPaymentID
	}
	return err
}

// CancelOrder cancels a PENDING or still-undelivered CONFIRMED order,
// restoring stock exactly when it was deducted.
func (s *CheckoutService) CancelOrder(ctx context.Context, buyerID, orderID int64) (*CheckoutResult, error) {
	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.loadOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending && o.Status != order.StatusConfirmed {
		return nil, ErrIllegalTransition
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if o.StockDeducted {
			if err := s.inventory.Restore(ctx, tx, o.ID); err != nil {
				return err
			}
			o.StockDeducted = false
		}
		o.Status = order.StatusCancelled
		return tx.Save(o).Error
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderEvent(ctx, mq.EventOrderCancelled, o.ID, 0)
	zap.L().Info("order cancelled", zap.Int64("order_id", o.ID))

	return s.result(ctx, o, nil, "")
}

// ResolveReconciliation settles a paid-but-out-of-stock case. Action
// "confirm" retries the stock deduction (the seller restocked); "refund"
// cancels the order and leaves the PAID attempt for an out-of-band refund.
func (s *CheckoutService) ResolveReconciliation(ctx context.Context, paymentID int64, action string) (*CheckoutResult, error) {
	var pay payment.Payment
	if err := s.db.WithContext(ctx).First(&pay, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if !pay.NeedsReconcile {
		return nil, ErrInvalidRequest
	}

	unlock, err := s.lockOrder(ctx, pay.OrderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.loadOrder(ctx, pay.OrderID, 0)
	if err != nil {
		return nil, err
	}

	switch action {
	case "confirm":
		// The buyer may have cancelled while the case sat in the queue; a
		// cancelled order stays cancelled and the case is settled by refund.
		if !o.Status.CanTransitionTo(order.StatusConfirmed) {
			return nil, ErrIllegalTransition
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.inventory.CheckAndDeduct(ctx, tx, o.ID); err != nil {
				return err
			}
			o.Status = order.StatusConfirmed
			o.StockDeducted = true
			o.PaymentID = &pay.ID
			if err := tx.Save(o).Error; err != nil {
				return err
			}
			pay.NeedsReconcile = false
			return tx.Save(&pay).Error
		})
		if err != nil {
			return nil, err
		}
		s.publishOrderEvent(ctx, mq.EventOrderConfirmed, o.ID, pay.ID)
	case "refund":
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			o.Status = order.StatusCancelled
			if err := tx.Save(o).Error; err != nil {
				return err
			}
			pay.NeedsReconcile = false
			return tx.Save(&pay).Error
		})
		if err != nil {
			return nil, err
		}
		s.publishOrderEvent(ctx, mq.EventOrderCancelled, o.ID, pay.ID)
	default:
		return nil, ErrInvalidRequest
	}

	return s.result(ctx, o, &pay, "")
}

func (s *CheckoutService) latestPayment(ctx context.Context, orderID int64) (*payment.Payment, error) {
	var p payment.Payment
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CheckoutService) result(ctx context.Context, o *order.Order, pay *payment.Payment, redirectURL string) (*CheckoutResult, error) {
	items, err := s.orderRepo.ItemsByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		Order:       o,
		Items:       items,
		Payment:     pay,
		RedirectURL: redirectURL,
	}, nil
}

func (s *CheckoutService) publishOrderEvent(ctx context.Context, evtType string, orderID, paymentID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, evtType, orderID, paymentID); err != nil {
		zap.L().Error("publish order event failed",
			zap.String("type", evtType),
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}
}

func (s *CheckoutService) publishReconcile(ctx context.Context, orderID, paymentID, productID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReconcile(ctx, orderID, paymentID, productID); err != nil {
		zap.L().Error("publish reconcile event failed",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}
}

func gatewayFailReason(err error) string {
	if errors.Is(err, gateway.ErrUnreachable) {
		return "gateway_unreachable"
	}
	var rejected *gateway.RejectedError
	if errors.As(err, &rejected) {
		return "gateway_rejected"
	}
	return "error"
}
