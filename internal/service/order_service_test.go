package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/repository/mysql"
)

func newTestOrders(db *gorm.DB) *OrderService {
	return NewOrderService(
		mysql.NewOrderRepository(db),
		mysql.NewPaymentRepository(db),
		mysql.NewProductRepository(db),
		30*time.Minute,
	)
}

func TestPlaceOrderSnapshotsPrices(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	cheap := seedProduct(t, db, 100, 10)
	dear := seedProduct(t, db, 250, 10)

	svc := newTestOrders(db)
	res, err := svc.PlaceOrder(context.Background(), buyer.ID, []PlaceOrderItem{
		{ProductID: cheap.ID, Quantity: 2},
		{ProductID: dear.ID, Quantity: 1},
	})
	require.NoError(t, err)

	require.Equal(t, order.StatusPending, res.Order.Status)
	require.EqualValues(t, 450, res.Order.Total)
	require.Len(t, res.Items, 2)
	require.EqualValues(t, 100, res.Items[0].Price)
	require.EqualValues(t, 250, res.Items[1].Price)
	require.False(t, res.Order.ExpiresAt.IsZero())

	// Placement reserves nothing.
	require.EqualValues(t, 10, productCount(t, db, cheap.ID))

	// A later price change does not move the stored total.
	require.NoError(t, db.Model(cheap).UpdateColumn("price", 900).Error)
	got, err := svc.GetOrder(context.Background(), res.Order.ID)
	require.NoError(t, err)
	require.EqualValues(t, 450, got.Order.Total)
	require.EqualValues(t, 100, got.Items[0].Price)
}

func TestPlaceOrderValidation(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 100, 2)

	svc := newTestOrders(db)

	_, err := svc.PlaceOrder(context.Background(), buyer.ID, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.PlaceOrder(context.Background(), buyer.ID, []PlaceOrderItem{{ProductID: p.ID, Quantity: 0}})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.PlaceOrder(context.Background(), buyer.ID, []PlaceOrderItem{{ProductID: 999999, Quantity: 1}})
	require.ErrorIs(t, err, ErrInvalidRequest)

	var stockErr *InsufficientStockError
	_, err = svc.PlaceOrder(context.Background(), buyer.ID, []PlaceOrderItem{{ProductID: p.ID, Quantity: 5}})
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, p.ID, stockErr.ProductID)
}

func TestListBuyerOrdersScopedToBuyer(t *testing.T) {
	db := newTestDB(t)
	alice := seedBuyer(t, db)
	bob := seedBuyer(t, db)
	p := seedProduct(t, db, 100, 10)
	seedOrder(t, db, alice.ID, p, 1)
	seedOrder(t, db, alice.ID, p, 2)
	seedOrder(t, db, bob.ID, p, 1)

	svc := newTestOrders(db)
	mine, err := svc.ListBuyerOrders(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, o := range mine {
		require.Equal(t, alice.ID, o.Order.BuyerID)
	}
}

func TestUpdateStatusFulfilmentFlow(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 100, 10)
	o := seedOrder(t, db, buyer.ID, p, 1)
	require.NoError(t, db.Model(o).UpdateColumn("status", order.StatusConfirmed).Error)

	svc := newTestOrders(db)
	got, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, order.StatusDelivered, got.Status)

	got, err = svc.UpdateStatus(context.Background(), o.ID, order.StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, order.StatusCompleted, got.Status)

	// Completed is terminal.
	_, err = svc.UpdateStatus(context.Background(), o.ID, order.StatusDelivered)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestUpdateStatusRejectsCheckoutOwnedTransitions(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 100, 10)
	o := seedOrder(t, db, buyer.ID, p, 1)

	svc := newTestOrders(db)
	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusConfirmed)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.UpdateStatus(context.Background(), o.ID, order.StatusCancelled)
	require.ErrorIs(t, err, ErrIllegalTransition)

	// Skipping DELIVERED from PENDING is illegal too.
	_, err = svc.UpdateStatus(context.Background(), o.ID, order.StatusDelivered)
	require.ErrorIs(t, err, ErrIllegalTransition)
}
