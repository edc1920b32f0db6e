package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a consumable tracked by quantity per stock location.
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string          `gorm:"index;not null"`
	Reference    *string         `gorm:"index"`
	Brand        *string
	SellingPrice decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StockLocation is a warehouse, van or showroom holding inventory.
type StockLocation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// Stock is the quantity of one product at one location. Quantity never goes below zero.
type Stock struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity   int       `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index"`

	Product  *Product       `gorm:"foreignKey:ProductID"`
	Location *StockLocation `gorm:"foreignKey:LocationID"`
}

// StockMovementType: "SALE" | "ADJUSTMENT"
type StockMovementType string

const (
	StockMovementSale       StockMovementType = "SALE"
	StockMovementAdjustment StockMovementType = "ADJUSTMENT"
)

// StockMovement records every stock change. Quantity is negative for outflows.
type StockMovement struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	StockID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	Type           StockMovementType `gorm:"type:varchar(20);not null"`
	Quantity       int               `gorm:"not null"`
	QuantityBefore int               `gorm:"not null"`
	QuantityAfter  int               `gorm:"not null"`
	Reason         string
	ReferenceID    *uuid.UUID `gorm:"type:uuid"` // sale id when Type == SALE
	CreatedAt      time.Time
}
