package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DossierTransitionRequest moves a dossier along its approval workflow.
// CurrentStep is optional; when omitted the step is left unchanged.
type DossierTransitionRequest struct {
	Status      string  `json:"status"       validate:"required"`
	CurrentStep *int    `json:"current_step" validate:"omitempty,min=1"`
	Notes       *string `json:"notes"`
}

type DossierStepResponse struct {
	Step        int       `json:"step"`
	Status      string    `json:"status"`
	ChangedByID uuid.UUID `json:"changed_by_id"`
	ChangedAt   time.Time `json:"changed_at"`
	Notes       *string   `json:"notes,omitempty"`
}

type DossierResponse struct {
	ID               uuid.UUID             `json:"id"`
	DossierNumber    string                `json:"dossier_number"`
	SaleID           uuid.UUID             `json:"sale_id"`
	PatientID        uuid.UUID             `json:"patient_id"`
	BondType         string                `json:"bond_type"`
	BondAmount       decimal.Decimal       `json:"bond_amount"`
	DevicePrice      decimal.Decimal       `json:"device_price"`
	ComplementAmount decimal.Decimal       `json:"complement_amount"`
	CurrentStep      int                   `json:"current_step"`
	TotalSteps       int                   `json:"total_steps"`
	Status           string                `json:"status"`
	Notes            *string               `json:"notes,omitempty"`
	History          []DossierStepResponse `json:"history"`
}
