package repository

import (
	"context"

	"medpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindActiveByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.User, error)
	Upsert(ctx context.Context, u *model.User) error
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) FindActiveByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.User, error) {
	if tx == nil {
		tx = r.db
	}
	var u model.User
	if err := tx.WithContext(ctx).Where("id = ? AND active = true", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Upsert creates the user or refreshes its profile, keyed on username.
func (r *userRepo) Upsert(ctx context.Context, u *model.User) error {
	var existing model.User
	err := r.db.WithContext(ctx).Where("username = ?", u.Username).First(&existing).Error
	switch {
	case err == nil:
		u.ID = existing.ID
		return r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"email":      u.Email,
			"role":       u.Role,
			"active":     true,
		}).Error
	case notFound(err) == ErrNotFound:
		u.Active = true
		return r.db.WithContext(ctx).Create(u).Error
	default:
		return err
	}
}
