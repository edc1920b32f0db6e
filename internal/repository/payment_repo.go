package repository

import (
	"context"

	"medpos/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	// Create inserts the payment and its details in one statement batch.
	Create(ctx context.Context, tx *gorm.DB, p *model.Payment) error
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Payment) error {
	return tx.WithContext(ctx).Create(p).Error
}
