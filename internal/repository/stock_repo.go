package repository

import (
	"context"

	"medpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository interface {
	// LockLatestForProduct returns the most recently updated stock record of
	// a product, locked FOR UPDATE. ErrNotFound when the product has none.
	LockLatestForProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*model.Stock, error)
	// Decrement lowers the quantity by qty, floored at zero, and returns the new quantity.
	Decrement(ctx context.Context, tx *gorm.DB, stockID uuid.UUID, qty int) (int, error)
	CreateMovement(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) LockLatestForProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*model.Stock, error) {
	var s model.Stock
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		Order("updated_at DESC").
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *stockRepo) Decrement(ctx context.Context, tx *gorm.DB, stockID uuid.UUID, qty int) (int, error) {
	var s model.Stock
	res := tx.WithContext(ctx).Model(&s).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "quantity"}}}).
		Where("id = ?", stockID).
		Update("quantity", gorm.Expr("GREATEST(quantity - ?, 0)", qty))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return s.Quantity, nil
}

func (r *stockRepo) CreateMovement(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error {
	return tx.WithContext(ctx).Create(m).Error
}
