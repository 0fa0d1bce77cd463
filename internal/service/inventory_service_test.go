package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
)

func TestCheckAndDeductDecrementsStock(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 250, 10)
	o := seedOrder(t, db, buyer.ID, p, 3)

	inv := NewInventoryService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return inv.CheckAndDeduct(context.Background(), tx, o.ID)
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, productCount(t, db, p.ID))
}

func TestCheckAndDeductInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 250, 2)
	o := seedOrder(t, db, buyer.ID, p, 3)

	inv := NewInventoryService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return inv.CheckAndDeduct(context.Background(), tx, o.ID)
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, p.ID, stockErr.ProductID)
	require.EqualValues(t, 2, productCount(t, db, p.ID))
}

func TestCheckAndDeductAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	pOK := seedProduct(t, db, 100, 5)
	pShort := seedProduct(t, db, 100, 1)

	o := seedOrder(t, db, buyer.ID, pOK, 2)
	require.NoError(t, db.Create(&order.OrderItem{
		OrderID:   o.ID,
		ProductID: pShort.ID,
		Price:     pShort.Price,
		Quantity:  2,
	}).Error)

	inv := NewInventoryService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return inv.CheckAndDeduct(context.Background(), tx, o.ID)
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	// The first item's decrement must not survive the rollback.
	require.EqualValues(t, 5, productCount(t, db, pOK.ID))
	require.EqualValues(t, 1, productCount(t, db, pShort.ID))
}

func TestRestoreIsExactInverseOfDeduct(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 250, 10)
	o := seedOrder(t, db, buyer.ID, p, 4)

	inv := NewInventoryService()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return inv.CheckAndDeduct(context.Background(), tx, o.ID)
	}))
	require.EqualValues(t, 6, productCount(t, db, p.ID))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return inv.Restore(context.Background(), tx, o.ID)
	}))
	require.EqualValues(t, 10, productCount(t, db, p.ID))
}

func TestDeductContendedProductOnlyOneWins(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 500, 1)
	first := seedOrder(t, db, buyer.ID, p, 1)
	second := seedOrder(t, db, buyer.ID, p, 1)

	inv := NewInventoryService()
	err1 := db.Transaction(func(tx *gorm.DB) error {
		return inv.CheckAndDeduct(context.Background(), tx, first.ID)
	})
	err2 := db.Transaction(func(tx *gorm.DB) error {
		return inv.CheckAndDeduct(context.Background(), tx, second.ID)
	})

	require.NoError(t, err1)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err2, &stockErr))
	require.EqualValues(t, 0, productCount(t, db, p.ID))
}
