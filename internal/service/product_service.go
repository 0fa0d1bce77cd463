package service

import (
	"context"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/product"
)

// ProductService read-only product browsing. Seller CRUD lives outside this
// core; checkout only needs to show listings and resolve item snapshots.
type ProductService struct {
	repo product.Repository
}

// NewProductService creates the product service.
func NewProductService(repo product.Repository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) ListAll(ctx context.Context) ([]*product.Product, error) {
	return s.repo.ListAll(ctx)
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return s.repo.GetByID(ctx, id)
}
