package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff member. Role: "ADMIN" | "EMPLOYEE" | "DOCTOR"
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username  string    `gorm:"uniqueIndex;not null"`
	FirstName string    `gorm:"not null"`
	LastName  string    `gorm:"not null"`
	Email     *string
	Role      string `gorm:"type:varchar(20);not null"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
	RoleDoctor   = "DOCTOR"
)
