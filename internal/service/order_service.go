package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/product"
)

// PlaceOrderItem one requested line of a new order.
type PlaceOrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// OrderWithItems order plus its line items and latest payment attempt.
type OrderWithItems struct {
	Order   *order.Order       `json:"order"`
	Items   []*order.OrderItem `json:"items"`
	Payment *payment.Payment   `json:"payment,omitempty"`
}

// OrderService order placement, queries and fulfilment transitions.
type OrderService struct {
	orderRepo   order.Repository
	paymentRepo payment.Repository
	productRepo product.Repository
	orderTTL    time.Duration
}

// NewOrderService creates the order service.
func NewOrderService(orderRepo order.Repository, paymentRepo payment.Repository, productRepo product.Repository, orderTTL time.Duration) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		productRepo: productRepo,
		orderTTL:    orderTTL,
	}
}

// PlaceOrder creates a PENDING order with immutable price snapshots. No stock
// is reserved here; stock is only touched at checkout and cancel.
func (s *OrderService) PlaceOrder(ctx context.Context, buyerID int64, items []PlaceOrderItem) (*OrderWithItems, error) {
	if len(items) == 0 {
		return nil, ErrInvalidRequest
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, ErrInvalidRequest
		}
		ids = append(ids, it.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var total int64
	orderItems := make([]*order.OrderItem, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, ErrInvalidRequest
		}
		// Advisory availability check; the binding check happens at checkout.
		if p.Count < it.Quantity {
			return nil, &InsufficientStockError{ProductID: p.ID}
		}
		orderItems = append(orderItems, &order.OrderItem{
			ProductID: p.ID,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
		total += p.Price * it.Quantity
	}

	o := &order.Order{
		BuyerID:   buyerID,
		Total:     total,
		Status:    order.StatusPending,
		ExpiresAt: time.Now().Add(s.orderTTL),
	}
	if err := s.orderRepo.Create(ctx, o, orderItems); err != nil {
		return nil, err
	}
	return &OrderWithItems{Order: o, Items: orderItems}, nil
}

// GetOrder returns one order with items and latest payment.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderWithItems, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	items, err := s.orderRepo.ItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p, err := s.paymentRepo.GetLatestByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderWithItems{Order: o, Items: items, Payment: p}, nil
}

// ListBuyerOrders returns the buyer's orders, newest first.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID int64) ([]*OrderWithItems, error) {
	orders, err := s.orderRepo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, orders)
}

// ListRecentOrders returns the newest orders across all buyers (admin view).
func (s *OrderService) ListRecentOrders(ctx context.Context, limit int) ([]*OrderWithItems, error) {
	orders, err := s.orderRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, orders)
}

func (s *OrderService) expand(ctx context.Context, orders []*order.Order) ([]*OrderWithItems, error) {
	out := make([]*OrderWithItems, 0, len(orders))
	for _, o := range orders {
		items, err := s.orderRepo.ItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		p, err := s.paymentRepo.GetLatestByOrder(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &OrderWithItems{Order: o, Items: items, Payment: p})
	}
	return out, nil
}

// UpdateStatus drives fulfilment transitions (CONFIRMED→DELIVERED→COMPLETED).
// Confirmation and cancellation are owned by the checkout orchestrator and
// are rejected here even when the raw transition would be legal.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, next order.Status) (*order.Order, error) {
	if next == order.StatusConfirmed || next == order.StatusCancelled {
		return nil, ErrIllegalTransition
	}
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, ErrIllegalTransition
	}
	o.Status = next
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
