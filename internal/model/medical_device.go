package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeviceStatus: "ACTIVE" | "RESERVED" | "SOLD" | "MAINTENANCE"
type DeviceStatus string

const (
	DeviceStatusActive      DeviceStatus = "ACTIVE"
	DeviceStatusReserved    DeviceStatus = "RESERVED"
	DeviceStatusSold        DeviceStatus = "SOLD"
	DeviceStatusMaintenance DeviceStatus = "MAINTENANCE"
)

// MedicalDevice is a serialised unit. Once sold it is attached to its client.
type MedicalDevice struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string          `gorm:"not null"`
	Type            string          `gorm:"type:varchar(32);not null"`
	SerialNumber    *string         `gorm:"index"`
	Status          DeviceStatus    `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	StockLocationID *uuid.UUID      `gorm:"type:uuid"`
	PatientID       *uuid.UUID      `gorm:"type:uuid;index"`
	CompanyID       *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
