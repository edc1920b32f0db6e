package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

type SaleItemRequest struct {
	ProductID       *uuid.UUID       `json:"product_id"`
	MedicalDeviceID *uuid.UUID       `json:"medical_device_id"`
	Quantity        *int             `json:"quantity"   validate:"required,min=1"`
	UnitPrice       *decimal.Decimal `json:"unit_price" validate:"required"`
	Discount        *decimal.Decimal `json:"discount"`
	ItemTotal       *decimal.Decimal `json:"item_total" validate:"required"`
	SerialNumber    *string          `json:"serial_number"`
	Warranty        *string          `json:"warranty"`
	Description     *string          `json:"description"`
}

// InsuranceClaimRequest is the optional CNAM block nested in an insurance instrument.
type InsuranceClaimRequest struct {
	DossierNumber    string           `json:"dossier_number"`
	BondType         string           `json:"bond_type"`
	BondAmount       *decimal.Decimal `json:"bond_amount"`
	DevicePrice      *decimal.Decimal `json:"device_price"`
	ComplementAmount *decimal.Decimal `json:"complement_amount"`
	CurrentStep      *int             `json:"current_step" validate:"omitempty,min=1"`
	TotalSteps       *int             `json:"total_steps"  validate:"omitempty,min=1"`
	Status           string           `json:"status"`
	Notes            *string          `json:"notes"`
}

// PaymentInstrumentRequest is one tendered instrument. Which optional fields
// apply depends on Method.
type PaymentInstrumentRequest struct {
	Method            string                 `json:"method" validate:"required"`
	Amount            *decimal.Decimal       `json:"amount" validate:"required"`
	Classification    string                 `json:"classification"`
	ChequeNumber      *string                `json:"cheque_number"`
	BankName          *string                `json:"bank_name"`
	TransferReference *string                `json:"transfer_reference"`
	DocumentNumber    *string                `json:"document_number"` // traite / mandat
	DueDate           *time.Time             `json:"due_date"`
	Notes             *string                `json:"notes"`
	Insurance         *InsuranceClaimRequest `json:"insurance"`
}

// CreateSaleRequest is the sale submission. Exactly one of PatientID/CompanyID is set.
type CreateSaleRequest struct {
	PatientID     *uuid.UUID                 `json:"patient_id"`
	CompanyID     *uuid.UUID                 `json:"company_id"`
	SaleDate      *time.Time                 `json:"sale_date"`
	Items         []SaleItemRequest          `json:"items"        validate:"required,min=1,dive"`
	TotalAmount   *decimal.Decimal           `json:"total_amount" validate:"required"`
	Discount      *decimal.Decimal           `json:"discount"`
	FinalAmount   *decimal.Decimal           `json:"final_amount" validate:"required"`
	Status        string                     `json:"status"`
	Notes         *string                    `json:"notes"`
	ProcessedByID *uuid.UUID                 `json:"processed_by_id"`
	Payment       []PaymentInstrumentRequest `json:"payment" validate:"dive"`
	ClientEmail   *string                    `json:"client_email" validate:"omitempty,email"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       *uuid.UUID      `json:"product_id,omitempty"`
	MedicalDeviceID *uuid.UUID      `json:"medical_device_id,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Discount        decimal.Decimal `json:"discount"`
	ItemTotal       decimal.Decimal `json:"item_total"`
	SerialNumber    *string         `json:"serial_number,omitempty"`
	Warranty        *string         `json:"warranty,omitempty"`
}

type PaymentDetailResponse struct {
	ID             uuid.UUID       `json:"id"`
	Method         string          `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	Classification string          `json:"classification"`
	Reference      string          `json:"reference"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

type PaymentResponse struct {
	ID      uuid.UUID               `json:"id"`
	Amount  decimal.Decimal         `json:"amount"`
	Method  string                  `json:"method"`
	Status  string                  `json:"status"`
	Details []PaymentDetailResponse `json:"details"`
}

type SaleResponse struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	SaleDate      time.Time          `json:"sale_date"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Discount      decimal.Decimal    `json:"discount"`
	FinalAmount   decimal.Decimal    `json:"final_amount"`
	Status        string             `json:"status"`
	Notes         *string            `json:"notes,omitempty"`
	PatientID     *uuid.UUID         `json:"patient_id,omitempty"`
	CompanyID     *uuid.UUID         `json:"company_id,omitempty"`
	ProcessedByID uuid.UUID          `json:"processed_by_id"`
	Items         []SaleItemResponse `json:"items"`
	Payment       *PaymentResponse   `json:"payment,omitempty"`
	DossierIDs    []uuid.UUID        `json:"dossier_ids,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
