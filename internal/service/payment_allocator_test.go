package service

import (
	"context"
	"testing"

	"medpos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayment_StatusBoundary(t *testing.T) {
	exact := BuildPayment([]Instrument{CashPayment{tender{amount: *dec("450"), class: model.ClassificationPrincipal}}}, *dec("450"), fixedNow)
	assert.Equal(t, model.PaymentStatusPaid, exact.Status)

	over := BuildPayment([]Instrument{CashPayment{tender{amount: *dec("500")}}}, *dec("450"), fixedNow)
	assert.Equal(t, model.PaymentStatusPaid, over.Status)

	short := BuildPayment([]Instrument{CashPayment{tender{amount: *dec("449.999")}}}, *dec("450"), fixedNow)
	assert.Equal(t, model.PaymentStatusPartial, short.Status)
}

func TestBuildPayment_OneDetailPerInstrument(t *testing.T) {
	instruments := []Instrument{
		CashPayment{tender{amount: *dec("100"), class: model.ClassificationComplementary}},
		TransferPayment{tender: tender{amount: *dec("200"), class: model.ClassificationComplementary}, TransferRef: "T-1"},
		ChequePayment{tender: tender{amount: *dec("50"), class: model.ClassificationPrincipal}, Number: "42", Bank: "BNA"},
	}
	p := BuildPayment(instruments, *dec("400"), fixedNow)

	assert.True(t, p.Amount.Equal(*dec("350")))
	assert.Equal(t, model.PaymentStatusPartial, p.Status)
	require.Len(t, p.Details, 3)
	for i, d := range p.Details {
		assert.Equal(t, p.ID, d.PaymentID)
		assert.Equal(t, instruments[i].Method(), d.Method)
		assert.True(t, instruments[i].Amount().Equal(d.Amount))
		assert.Equal(t, instruments[i].Reference(), d.Reference)
	}

	// the principal cheque is primary even though it comes last
	assert.Equal(t, model.PaymentMethodCheque, p.Method)
	assert.Equal(t, "42", *p.ChequeNumber)
	assert.Equal(t, "BNA", *p.BankName)
	assert.Nil(t, p.TransferReference)
}

func TestPrimaryInstrument_FallsBackToFirst(t *testing.T) {
	first := TransferPayment{tender: tender{amount: *dec("1"), class: model.ClassificationComplementary}}
	second := CashPayment{tender{amount: *dec("2"), class: model.ClassificationComplementary}}

	assert.Equal(t, Instrument(first), PrimaryInstrument([]Instrument{first, second}))
}

func TestAllocate_EmptyListCreatesNothing(t *testing.T) {
	store := newMemStore()
	a := NewPaymentAllocator(memPayments{s: store})

	alloc, err := a.Allocate(context.Background(), nil, nil, *dec("450"), clientRef{}, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, alloc)
	assert.Empty(t, store.payments)
}

func TestAllocate_PersistsWithClient(t *testing.T) {
	store := newMemStore()
	a := NewPaymentAllocator(memPayments{s: store})
	patient := uuid.New()

	alloc, err := a.Allocate(context.Background(), nil,
		[]Instrument{CashPayment{tender{amount: *dec("10"), class: model.ClassificationPrincipal}}},
		*dec("10"), clientRef{patientID: &patient}, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, alloc)

	require.Len(t, store.payments, 1)
	assert.Equal(t, patient, *store.payments[0].PatientID)
	assert.Equal(t, fixedNow, store.payments[0].PaymentDate)
	assert.Len(t, store.payments[0].Details, 1)
}
