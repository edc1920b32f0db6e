package service

import (
	"context"
	"time"

	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Allocation is the persisted payment together with the instruments that
// produced it. Payment.Details[i] was built from Instruments[i].
type Allocation struct {
	Payment     *model.Payment
	Instruments []Instrument
}

// PaymentAllocator turns the tendered instruments into one Payment with one
// PaymentDetail per instrument.
type PaymentAllocator struct {
	payments repository.PaymentRepository
}

func NewPaymentAllocator(payments repository.PaymentRepository) *PaymentAllocator {
	return &PaymentAllocator{payments: payments}
}

// Allocate persists the payment for a sale. An empty instrument list yields a
// nil Allocation and no rows.
func (a *PaymentAllocator) Allocate(ctx context.Context, tx *gorm.DB, instruments []Instrument, finalAmount decimal.Decimal, client clientRef, at time.Time) (*Allocation, error) {
	if len(instruments) == 0 {
		return nil, nil
	}
	p := BuildPayment(instruments, finalAmount, at)
	p.PatientID = client.patientID
	p.CompanyID = client.companyID

	if err := a.payments.Create(ctx, tx, p); err != nil {
		return nil, err
	}
	return &Allocation{Payment: p, Instruments: instruments}, nil
}

// BuildPayment computes the aggregate payment without touching storage.
// Status is PAID when the instruments cover finalAmount, PARTIAL otherwise.
func BuildPayment(instruments []Instrument, finalAmount decimal.Decimal, at time.Time) *model.Payment {
	total := decimal.Zero
	details := make([]model.PaymentDetail, 0, len(instruments))
	for _, in := range instruments {
		total = total.Add(in.Amount())
		details = append(details, model.PaymentDetail{
			ID:             uuid.New(),
			Method:         in.Method(),
			Amount:         in.Amount(),
			Classification: in.Classification(),
			Reference:      in.Reference(),
			Metadata:       datatypes.JSONMap(in.Metadata()),
		})
	}

	status := model.PaymentStatusPartial
	if total.GreaterThanOrEqual(finalAmount) {
		status = model.PaymentStatusPaid
	}

	primary := PrimaryInstrument(instruments)
	p := &model.Payment{
		ID:          uuid.New(),
		Amount:      total,
		Method:      primary.Method(),
		Status:      status,
		PaymentDate: at,
		Details:     details,
	}
	for i := range p.Details {
		p.Details[i].PaymentID = p.ID
	}
	primary.stamp(p)
	return p
}

// PrimaryInstrument is the first principal instrument, or the first one.
// instruments must not be empty.
func PrimaryInstrument(instruments []Instrument) Instrument {
	for _, in := range instruments {
		if in.Classification() == model.ClassificationPrincipal {
			return in
		}
	}
	return instruments[0]
}
