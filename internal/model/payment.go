package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentMethod is the canonical wire tag of a payment instrument.
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "especes"
	PaymentMethodCheque     PaymentMethod = "cheque"
	PaymentMethodTransfer   PaymentMethod = "virement"
	PaymentMethodInsurance  PaymentMethod = "cnam"
	PaymentMethodPromissory PaymentMethod = "traite"
	PaymentMethodMoneyOrder PaymentMethod = "mandat"
)

// PaymentStatus: "PAID" when the instruments cover the final amount, "PARTIAL" otherwise.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
)

// PaymentClassification marks an instrument as the principal one or a complement.
type PaymentClassification string

const (
	ClassificationPrincipal     PaymentClassification = "principal"
	ClassificationComplementary PaymentClassification = "complementary"
)

// Payment aggregates every instrument tendered for one sale. The primary
// instrument's identifying fields are copied onto the row for listing.
type Payment struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Amount              decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Method              PaymentMethod   `gorm:"type:varchar(20);not null"`
	Status              PaymentStatus   `gorm:"type:varchar(20);not null"`
	PaymentDate         time.Time       `gorm:"not null"`
	PatientID           *uuid.UUID      `gorm:"type:uuid;index"`
	CompanyID           *uuid.UUID      `gorm:"type:uuid;index"`
	ChequeNumber        *string
	BankName            *string
	TransferReference   *string
	InsuranceFileNumber *string
	DueDate             *time.Time
	Notes               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Details []PaymentDetail `gorm:"foreignKey:PaymentID"`
}

// PaymentDetail is one tendered instrument. Metadata keeps the method-specific
// fields exactly as submitted.
type PaymentDetail struct {
	ID             uuid.UUID             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PaymentID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	Method         PaymentMethod         `gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal       `gorm:"type:decimal(12,3);not null"`
	Classification PaymentClassification `gorm:"type:varchar(20);not null"`
	Reference      string                `gorm:"not null"`
	Metadata       datatypes.JSONMap     `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt      time.Time
}
