package repository

import (
	"context"

	"medpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicalDeviceRepository interface {
	// MarkSold flags the device SOLD and attaches it to the buying client.
	// ErrNotFound when no unsold device has that id; the sale is one-way.
	MarkSold(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID, patientID, companyID *uuid.UUID) error
}

type medicalDeviceRepo struct{ db *gorm.DB }

func NewMedicalDeviceRepository(db *gorm.DB) MedicalDeviceRepository {
	return &medicalDeviceRepo{db: db}
}

func (r *medicalDeviceRepo) MarkSold(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID, patientID, companyID *uuid.UUID) error {
	res := tx.WithContext(ctx).Model(&model.MedicalDevice{}).
		Where("id = ? AND status <> ?", deviceID, model.DeviceStatusSold).
		Updates(map[string]any{
			"status":     model.DeviceStatusSold,
			"patient_id": patientID,
			"company_id": companyID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
