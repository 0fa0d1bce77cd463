package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/product"
)

// InventoryService is the inventory ledger: the only code allowed to mutate
// Product.Count. Both operations run inside the caller's transaction so the
// whole checkout step commits or aborts as one unit.
type InventoryService struct{}

// NewInventoryService creates the ledger.
func NewInventoryService() *InventoryService {
	return &InventoryService{}
}

// CheckAndDeduct decrements stock for every item of the order. Each decrement
// is a compare-and-decrement (count >= quantity) so concurrent orders on the
// same product serialize at the row, never oversell. Returns
// InsufficientStockError on the first item that cannot be covered; the
// enclosing transaction then rolls back any decrements already applied.
func (s *InventoryService) CheckAndDeduct(ctx context.Context, tx *gorm.DB, orderID int64) error {
	var items []*order.OrderItem
	if err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&items).Error; err != nil {
		return err
	}

	for _, it := range items {
		res := tx.WithContext(ctx).Model(&product.Product{}).
			Where("id = ? AND count >= ?", it.ProductID, it.Quantity).
			UpdateColumn("count", gorm.Expr("count - ?", it.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InsufficientStockError{ProductID: it.ProductID}
		}
	}
	return nil
}

// Restore credits stock back for every item of the order. Callers must only
// restore orders whose stock was actually deducted (Order.StockDeducted);
// restoring an undeducted order would over-credit the products.
func (s *InventoryService) Restore(ctx context.Context, tx *gorm.DB, orderID int64) error {
	var items []*order.OrderItem
	if err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&items).Error; err != nil {
		return err
	}

	for _, it := range items {
		res := tx.WithContext(ctx).Model(&product.Product{}).
			Where("id = ?", it.ProductID).
			UpdateColumn("count", gorm.Expr("count + ?", it.Quantity))
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}
