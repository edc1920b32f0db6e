package repository

import (
	"context"

	"medpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CNAMDossierRepository interface {
	Create(ctx context.Context, tx *gorm.DB, d *model.CNAMDossier) error
	AppendHistory(ctx context.Context, tx *gorm.DB, h *model.CNAMStepHistory) error
	// LockByID loads a dossier FOR UPDATE so concurrent transitions serialise.
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CNAMDossier, error)
	UpdateProgress(ctx context.Context, tx *gorm.DB, id uuid.UUID, step int, status model.CNAMStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CNAMDossier, error)
}

type cnamDossierRepo struct{ db *gorm.DB }

func NewCNAMDossierRepository(db *gorm.DB) CNAMDossierRepository { return &cnamDossierRepo{db: db} }

func (r *cnamDossierRepo) Create(ctx context.Context, tx *gorm.DB, d *model.CNAMDossier) error {
	return tx.WithContext(ctx).Omit("StepHistory").Create(d).Error
}

func (r *cnamDossierRepo) AppendHistory(ctx context.Context, tx *gorm.DB, h *model.CNAMStepHistory) error {
	return tx.WithContext(ctx).Create(h).Error
}

func (r *cnamDossierRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CNAMDossier, error) {
	var d model.CNAMDossier
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *cnamDossierRepo) UpdateProgress(ctx context.Context, tx *gorm.DB, id uuid.UUID, step int, status model.CNAMStatus) error {
	return tx.WithContext(ctx).Model(&model.CNAMDossier{}).
		Where("id = ?", id).
		Updates(map[string]any{"current_step": step, "status": status}).Error
}

func (r *cnamDossierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CNAMDossier, error) {
	var d model.CNAMDossier
	err := r.db.WithContext(ctx).
		Preload("StepHistory", func(db *gorm.DB) *gorm.DB { return db.Order("changed_at ASC") }).
		First(&d, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}
