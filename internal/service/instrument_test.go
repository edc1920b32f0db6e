package service

import (
	"testing"
	"time"

	"medpos/internal/dto"
	"medpos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstruments_AliasesAndTypes(t *testing.T) {
	due := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	reqs := []dto.PaymentInstrumentRequest{
		{Method: "Especes", Amount: dec("10")},
		{Method: "check", Amount: dec("20"), ChequeNumber: strp("77"), DueDate: &due},
		{Method: "bank_transfer", Amount: dec("30"), TransferReference: strp("TRX-9")},
		{Method: "cnam", Amount: dec("40")},
		{Method: "promissory_note", Amount: dec("50"), DueDate: &due},
		{Method: "draft", Amount: dec("60"), DocumentNumber: strp("M-1")},
	}
	fields := map[string]string{}
	got := parseInstruments(reqs, fields)
	require.Empty(t, fields)
	require.Len(t, got, 6)

	assert.IsType(t, CashPayment{}, got[0])
	assert.IsType(t, ChequePayment{}, got[1])
	assert.IsType(t, TransferPayment{}, got[2])
	assert.IsType(t, InsurancePayment{}, got[3])
	assert.IsType(t, PromissoryNotePayment{}, got[4])
	assert.IsType(t, MoneyOrderPayment{}, got[5])

	assert.Equal(t, model.PaymentMethodCash, got[0].Method())
	assert.Equal(t, model.PaymentMethodMoneyOrder, got[5].Method())
}

func TestParseInstruments_ClassificationDefaults(t *testing.T) {
	fields := map[string]string{}
	got := parseInstruments([]dto.PaymentInstrumentRequest{
		cash("1"),
		cash("2"),
		{Method: "cash", Amount: dec("3"), Classification: "Principale"},
	}, fields)
	require.Empty(t, fields)

	assert.Equal(t, model.ClassificationPrincipal, got[0].Classification())
	assert.Equal(t, model.ClassificationComplementary, got[1].Classification())
	assert.Equal(t, model.ClassificationPrincipal, got[2].Classification())
}

func TestParseInstruments_Rejects(t *testing.T) {
	fields := map[string]string{}
	parseInstruments([]dto.PaymentInstrumentRequest{
		{Method: "crypto", Amount: dec("1")},
		{Method: "cash"},
		{Method: "cash", Amount: dec("1"), Classification: "main"},
	}, fields)

	assert.Contains(t, fields, "payment[0].method")
	assert.Contains(t, fields, "payment[1].amount")
	assert.Contains(t, fields, "payment[2].classification")
}

func TestInstrumentReferences(t *testing.T) {
	due := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	amt := tender{amount: *dec("150.500")}

	cases := []struct {
		in   Instrument
		want string
	}{
		{CashPayment{tender{amount: *dec("450")}}, "Espèces: 450 DT"},
		{ChequePayment{tender: amt, Number: "1234", Bank: "STB"}, "Chèque N°1234 STB: 150.5 DT"},
		{ChequePayment{tender: amt}, "Chèque: 150.5 DT"},
		{TransferPayment{tender: amt, TransferRef: "VIR-88"}, "Virement Réf. VIR-88: 150.5 DT"},
		{TransferPayment{tender: amt}, "Virement: 150.5 DT"},
		{InsurancePayment{tender: amt, Claim: &InsuranceClaim{DossierNumber: "D-1", BondType: "vni"}}, "CNAM Dossier D-1 (VNI): 150.5 DT"},
		{InsurancePayment{tender: amt, Claim: &InsuranceClaim{DossierNumber: "D-1", BondType: "lit"}}, "CNAM Dossier D-1 (AUTRE): 150.5 DT"},
		{InsurancePayment{tender: amt}, "CNAM: 150.5 DT"},
		{PromissoryNotePayment{tender: amt, DueDate: &due}, "Traite échéance 2026-11-30: 150.5 DT"},
		{MoneyOrderPayment{tender: amt, Number: "77"}, "Mandat N°77: 150.5 DT"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Reference())
	}
}

func TestInstrumentMetadataKeepsSubmittedFields(t *testing.T) {
	due := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	cheque := ChequePayment{tender: tender{amount: *dec("10"), notes: strp("post-daté")}, Number: "9", Bank: "UIB", DueDate: &due}

	assert.Equal(t, map[string]any{
		"cheque_number": "9",
		"bank_name":     "UIB",
		"due_date":      "2026-11-30",
		"notes":         "post-daté",
	}, cheque.Metadata())

	ins := InsurancePayment{
		tender: tender{amount: *dec("300")},
		Claim:  &InsuranceClaim{DossierNumber: "D-1", BondType: "CPAP", BondAmount: dec("300"), TotalSteps: intp(3)},
	}
	md := ins.Metadata()
	require.Contains(t, md, "insurance")
	claim := md["insurance"].(map[string]any)
	assert.Equal(t, "D-1", claim["dossier_number"])
	assert.Equal(t, "300", claim["bond_amount"])
	assert.Equal(t, 3, claim["total_steps"])
}
