package repository

import (
	"context"

	"medpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	// Create inserts the sale together with its items.
	Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	InvoiceNumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	return tx.WithContext(ctx).Omit("Patient", "Company", "ProcessedBy", "Payment", "Dossiers").Create(s).Error
}

func (r *saleRepo) InvoiceNumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.Sale{}).Where("invoice_number = ?", number).Count(&n).Error
	return n > 0, err
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("Items.MedicalDevice").
		Preload("Payment.Details").
		Preload("Patient").
		Preload("Company").
		Preload("Dossiers").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
