package service

import (
	"context"
	"encoding/json"
	"fmt"

	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PatientHistoryRecorder appends the SALE entry to a patient's timeline.
type PatientHistoryRecorder struct {
	patients repository.PatientRepository
}

func NewPatientHistoryRecorder(patients repository.PatientRepository) *PatientHistoryRecorder {
	return &PatientHistoryRecorder{patients: patients}
}

type saleHistoryDetails struct {
	SaleID                 uuid.UUID  `json:"sale_id"`
	InvoiceNumber          string     `json:"invoice_number"`
	Amount                 string     `json:"amount"`
	Notes                  *string    `json:"notes,omitempty"`
	ItemCount              int        `json:"item_count"`
	ResponsibleClinicianID *uuid.UUID `json:"responsible_clinician_id,omitempty"`
}

// RecordSale is a no-op for company sales.
func (r *PatientHistoryRecorder) RecordSale(ctx context.Context, tx *gorm.DB, sale *model.Sale, actorID uuid.UUID) error {
	if sale.PatientID == nil {
		return nil
	}
	patient, err := r.patients.FindByID(ctx, tx, *sale.PatientID)
	if err != nil {
		return fmt.Errorf("patient %s: %w", sale.PatientID, err)
	}

	details, err := json.Marshal(saleHistoryDetails{
		SaleID:                 sale.ID,
		InvoiceNumber:          sale.InvoiceNumber,
		Amount:                 sale.FinalAmount.String(),
		Notes:                  sale.Notes,
		ItemCount:              len(sale.Items),
		ResponsibleClinicianID: patient.ResponsibleClinicianID,
	})
	if err != nil {
		return err
	}

	saleID := sale.ID
	relatedType := "sale"
	return r.patients.CreateHistory(ctx, tx, &model.PatientHistory{
		ID:            uuid.New(),
		PatientID:     patient.ID,
		ActionType:    model.PatientHistorySale,
		PerformedByID: actorID,
		RelatedItemID: &saleID,
		RelatedType:   &relatedType,
		Details:       datatypes.JSON(details),
	})
}
