package service

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
)

func TestOpenAttemptCreatesAndReuses(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 500, 5)
	o := seedOrder(t, db, buyer.ID, p, 1)

	svc := NewPaymentService()

	var first, second *payment.Payment
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = svc.OpenAttempt(context.Background(), tx, o, payment.MethodKhalti)
		return err
	}))
	require.Equal(t, payment.StatusUnpaid, first.Status)
	require.Equal(t, o.Total, first.Amount)
	require.True(t, strings.HasPrefix(first.TransactionID, strconv.FormatInt(o.ID, 10)+"-"))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = svc.OpenAttempt(context.Background(), tx, o, payment.MethodKhalti)
		return err
	}))
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.TransactionID, second.TransactionID)
}

func TestOpenAttemptPerMethod(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 500, 5)
	o := seedOrder(t, db, buyer.ID, p, 1)

	svc := NewPaymentService()
	var khalti, esewa *payment.Payment
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		khalti, err = svc.OpenAttempt(context.Background(), tx, o, payment.MethodKhalti)
		if err != nil {
			return err
		}
		esewa, err = svc.OpenAttempt(context.Background(), tx, o, payment.MethodEsewa)
		return err
	}))
	require.NotEqual(t, khalti.ID, esewa.ID)
}

func TestFreshAttemptAfterFailureGetsNewCorrelationID(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 500, 5)
	o := seedOrder(t, db, buyer.ID, p, 1)

	svc := NewPaymentService()
	var first, second *payment.Payment
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		if first, err = svc.OpenAttempt(context.Background(), tx, o, payment.MethodEsewa); err != nil {
			return err
		}
		if err = svc.MarkStatus(context.Background(), tx, first, payment.StatusFailed); err != nil {
			return err
		}
		// Immediately retried in the same second; the id must still change.
		second, err = svc.OpenAttempt(context.Background(), tx, o, payment.MethodEsewa)
		return err
	}))
	require.NotEqual(t, first.ID, second.ID)
	require.NotEqual(t, first.TransactionID, second.TransactionID)
}

func TestMarkStatusRefusesToRegressPaid(t *testing.T) {
	db := newTestDB(t)
	buyer := seedBuyer(t, db)
	p := seedProduct(t, db, 500, 5)
	o := seedOrder(t, db, buyer.ID, p, 1)

	svc := NewPaymentService()
	var pay *payment.Payment
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		pay, err = svc.OpenAttempt(context.Background(), tx, o, payment.MethodEsewa)
		if err != nil {
			return err
		}
		return svc.MarkStatus(context.Background(), tx, pay, payment.StatusPaid)
	}))
	require.Equal(t, payment.StatusPaid, pay.Status)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.MarkStatus(context.Background(), tx, pay, payment.StatusFailed)
	})
	require.ErrorIs(t, err, ErrAlreadyPaid)

	var stored payment.Payment
	require.NoError(t, db.First(&stored, pay.ID).Error)
	require.Equal(t, payment.StatusPaid, stored.Status)
}
