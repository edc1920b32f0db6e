package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus: "PENDING" | "COMPLETED" | "CANCELLED"
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "PENDING"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
)

// Valid reports whether s is one of the known sale statuses.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled:
		return true
	}
	return false
}

// SaleInvoiceNumberConstraint is the unique constraint guarding invoice numbers.
// The invoice allocator matches on it to tell a collision from other duplicates.
const SaleInvoiceNumberConstraint = "uni_sales_invoice_number"

// Sale is one commercial transaction with exactly one client (patient XOR company).
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceNumber string          `gorm:"type:varchar(32);uniqueIndex:uni_sales_invoice_number;not null"`
	SaleDate      time.Time       `gorm:"not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	FinalAmount   decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Status        SaleStatus      `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Notes         *string
	PatientID     *uuid.UUID `gorm:"type:uuid;index"`
	CompanyID     *uuid.UUID `gorm:"type:uuid;index"`
	ProcessedByID uuid.UUID  `gorm:"type:uuid;not null;index"`
	PaymentID     *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Patient     *Patient      `gorm:"foreignKey:PatientID"`
	Company     *Company      `gorm:"foreignKey:CompanyID"`
	ProcessedBy *User         `gorm:"foreignKey:ProcessedByID"`
	Payment     *Payment      `gorm:"foreignKey:PaymentID"`
	Items       []SaleItem    `gorm:"foreignKey:SaleID"`
	Dossiers    []CNAMDossier `gorm:"foreignKey:SaleID"`
}

// SaleItem references exactly one of a consumable product or a serialised device.
type SaleItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       *uuid.UUID      `gorm:"type:uuid;index"`
	MedicalDeviceID *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity        int             `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Discount        decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	ItemTotal       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	SerialNumber    *string
	Warranty        *string
	Description     *string
	CreatedAt       time.Time

	Product       *Product       `gorm:"foreignKey:ProductID"`
	MedicalDevice *MedicalDevice `gorm:"foreignKey:MedicalDeviceID"`
}
