package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/product"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/user"
	"github.com/prajjwolcodes/KinBech/internal/gateway"
	"github.com/prajjwolcodes/KinBech/internal/repository/mysql"
)

var testDBSeq atomic.Int64

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:checkout_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache memory DB alive and avoids
	// sqlite write contention in tests.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, mysql.Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, price, count int64) *product.Product {
	t.Helper()
	p := &product.Product{
		SellerID: 1,
		Name:     "test product",
		Price:    price,
		Count:    count,
		Category: "misc",
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedBuyer(t *testing.T, db *gorm.DB) *user.User {
	t.Helper()
	u := &user.User{
		Username: fmt.Sprintf("buyer%d", testDBSeq.Add(1)),
		Password: "x",
		Salt:     "x",
		Role:     user.RoleBuyer,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedOrder(t *testing.T, db *gorm.DB, buyerID int64, p *product.Product, qty int64) *order.Order {
	t.Helper()
	o := &order.Order{
		BuyerID:   buyerID,
		Total:     p.Price * qty,
		Status:    order.StatusPending,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, db.Create(o).Error)
	require.NoError(t, db.Create(&order.OrderItem{
		OrderID:   o.ID,
		ProductID: p.ID,
		Price:     p.Price,
		Quantity:  qty,
	}).Error)
	return o
}

func productCount(t *testing.T, db *gorm.DB, id int64) int64 {
	t.Helper()
	var p product.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.Count
}

// fakeAdapter scripted gateway adapter for orchestrator tests.
type fakeAdapter struct {
	method payment.Method

	mu            sync.Mutex
	initiations   []string // transaction ids seen by Initiate
	verifications int

	initiation  *gateway.Initiation
	initiateErr error
	verifyRes   gateway.Result
	verifyErr   error
}

func newFakeAdapter(method payment.Method) *fakeAdapter {
	return &fakeAdapter{
		method:     method,
		initiation: &gateway.Initiation{RedirectURL: "https://pay.example.com/redirect", ProviderRef: "pidx-1"},
		verifyRes:  gateway.Paid,
	}
}

func (f *fakeAdapter) Method() payment.Method { return f.method }

func (f *fakeAdapter) Initiate(ctx context.Context, p *payment.Payment, o *order.Order, targets gateway.RedirectTargets) (*gateway.Initiation, error) {
	f.mu.Lock()
	f.initiations = append(f.initiations, p.TransactionID)
	f.mu.Unlock()
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	return f.initiation, nil
}

func (f *fakeAdapter) Verify(ctx context.Context, p *payment.Payment, o *order.Order) (gateway.Result, error) {
	f.mu.Lock()
	f.verifications++
	f.mu.Unlock()
	return f.verifyRes, f.verifyErr
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu         sync.Mutex
	events     []string
	reconciles int
}

func (r *recordingPublisher) PublishOrderEvent(ctx context.Context, evtType string, orderID, paymentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evtType)
	return nil
}

func (r *recordingPublisher) PublishReconcile(ctx context.Context, orderID, paymentID, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciles++
	return nil
}

// newTestCheckout wires an orchestrator over the test DB with fake gateways.
func newTestCheckout(t *testing.T, db *gorm.DB, adapters ...gateway.Adapter) (*CheckoutService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewCheckoutService(
		db,
		mysql.NewOrderRepository(db),
		gateway.NewRegistry(adapters...),
		NewLocalOrderLock(),
		pub,
	)
	return svc, pub
}

func shipping() order.ShippingInfo {
	return order.ShippingInfo{
		Name:    "Test Buyer",
		Address: "Baneshwor",
		City:    "Kathmandu",
		Phone:   "9800000000",
	}
}
