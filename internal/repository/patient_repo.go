package repository

import (
	"context"

	"medpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Patient, error)
	CreateHistory(ctx context.Context, tx *gorm.DB, h *model.PatientHistory) error
}

type patientRepo struct{ db *gorm.DB }

func NewPatientRepository(db *gorm.DB) PatientRepository { return &patientRepo{db: db} }

func (r *patientRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	if err := tx.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *patientRepo) CreateHistory(ctx context.Context, tx *gorm.DB, h *model.PatientHistory) error {
	return tx.WithContext(ctx).Create(h).Error
}
