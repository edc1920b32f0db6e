package service

import (
	"context"
	"errors"
	"fmt"

	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InventoryService applies the stock side-effects of a sale.
type InventoryService interface {
	// ApplySale decrements product stock and marks sold devices. A product with
	// no stock record is logged and skipped; an unknown device fails the sale.
	ApplySale(ctx context.Context, tx *gorm.DB, sale *model.Sale) error
}

type inventoryService struct {
	stock   repository.StockRepository
	devices repository.MedicalDeviceRepository
}

func NewInventoryService(stock repository.StockRepository, devices repository.MedicalDeviceRepository) InventoryService {
	return &inventoryService{stock: stock, devices: devices}
}

func (s *inventoryService) ApplySale(ctx context.Context, tx *gorm.DB, sale *model.Sale) error {
	for _, item := range sale.Items {
		switch {
		case item.ProductID != nil:
			if err := s.decrementProduct(ctx, tx, sale, *item.ProductID, item.Quantity); err != nil {
				return err
			}
		case item.MedicalDeviceID != nil:
			err := s.devices.MarkSold(ctx, tx, *item.MedicalDeviceID, sale.PatientID, sale.CompanyID)
			if err != nil {
				return fmt.Errorf("medical device %s: %w", item.MedicalDeviceID, err)
			}
		}
	}
	return nil
}

func (s *inventoryService) decrementProduct(ctx context.Context, tx *gorm.DB, sale *model.Sale, productID uuid.UUID, qty int) error {
	rec, err := s.stock.LockLatestForProduct(ctx, tx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn().
			Str("product_id", productID.String()).
			Str("invoice_number", sale.InvoiceNumber).
			Msg("no stock record for product, skipping decrement")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock stock for product %s: %w", productID, err)
	}

	after, err := s.stock.Decrement(ctx, tx, rec.ID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock %s: %w", rec.ID, err)
	}
	if rec.Quantity < qty {
		log.Warn().
			Str("product_id", productID.String()).
			Int("available", rec.Quantity).
			Int("sold", qty).
			Msg("stock insufficient, floored at zero")
	}

	saleID := sale.ID
	return s.stock.CreateMovement(ctx, tx, &model.StockMovement{
		ID:             uuid.New(),
		ProductID:      productID,
		StockID:        rec.ID,
		Type:           model.StockMovementSale,
		Quantity:       -qty,
		QuantityBefore: rec.Quantity,
		QuantityAfter:  after,
		Reason:         "Vente " + sale.InvoiceNumber,
		ReferenceID:    &saleID,
	})
}
