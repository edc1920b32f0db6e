package service

import (
	"fmt"
	"strings"
	"time"

	"medpos/internal/dto"
	"medpos/internal/model"

	"github.com/shopspring/decimal"
)

// Instrument is one parsed payment instrument. Each wire tag maps to exactly
// one concrete type below; nothing downstream switches on the raw tag again.
type Instrument interface {
	Method() model.PaymentMethod
	Amount() decimal.Decimal
	Classification() model.PaymentClassification
	// Reference is the human-readable line printed on receipts.
	Reference() string
	// Metadata returns the method-specific fields as submitted.
	Metadata() map[string]any
	// stamp copies the instrument's identifying fields onto the aggregate payment.
	stamp(p *model.Payment)
}

type tender struct {
	amount decimal.Decimal
	class  model.PaymentClassification
	notes  *string
}

func (t tender) Amount() decimal.Decimal                     { return t.amount }
func (t tender) Classification() model.PaymentClassification { return t.class }

func (t tender) baseMetadata() map[string]any {
	m := map[string]any{}
	if t.notes != nil && *t.notes != "" {
		m["notes"] = *t.notes
	}
	return m
}

type CashPayment struct{ tender }

func (CashPayment) Method() model.PaymentMethod { return model.PaymentMethodCash }
func (p CashPayment) Reference() string         { return "Espèces: " + formatDT(p.amount) }
func (p CashPayment) Metadata() map[string]any  { return p.baseMetadata() }
func (CashPayment) stamp(*model.Payment)        {}

type ChequePayment struct {
	tender
	Number  string
	Bank    string
	DueDate *time.Time
}

func (ChequePayment) Method() model.PaymentMethod { return model.PaymentMethodCheque }

func (p ChequePayment) Reference() string {
	var b strings.Builder
	b.WriteString("Chèque")
	if p.Number != "" {
		b.WriteString(" N°" + p.Number)
	}
	if p.Bank != "" {
		b.WriteString(" " + p.Bank)
	}
	return b.String() + ": " + formatDT(p.amount)
}

func (p ChequePayment) Metadata() map[string]any {
	m := p.baseMetadata()
	putString(m, "cheque_number", p.Number)
	putString(m, "bank_name", p.Bank)
	putDate(m, "due_date", p.DueDate)
	return m
}

func (p ChequePayment) stamp(pay *model.Payment) {
	pay.ChequeNumber = optString(p.Number)
	pay.BankName = optString(p.Bank)
	pay.DueDate = p.DueDate
}

type TransferPayment struct {
	tender
	TransferRef string
	Bank        string
}

func (TransferPayment) Method() model.PaymentMethod { return model.PaymentMethodTransfer }

func (p TransferPayment) Reference() string {
	if p.TransferRef == "" {
		return "Virement: " + formatDT(p.amount)
	}
	return "Virement Réf. " + p.TransferRef + ": " + formatDT(p.amount)
}

func (p TransferPayment) Metadata() map[string]any {
	m := p.baseMetadata()
	putString(m, "transfer_reference", p.TransferRef)
	putString(m, "bank_name", p.Bank)
	return m
}

func (p TransferPayment) stamp(pay *model.Payment) {
	pay.TransferReference = optString(p.TransferRef)
	pay.BankName = optString(p.Bank)
}

// InsuranceClaim is the CNAM block carried by an insurance instrument, before coercion.
type InsuranceClaim struct {
	DossierNumber    string
	BondType         string
	BondAmount       *decimal.Decimal
	DevicePrice      *decimal.Decimal
	ComplementAmount *decimal.Decimal
	CurrentStep      *int
	TotalSteps       *int
	Status           string
	Notes            *string
}

type InsurancePayment struct {
	tender
	Claim *InsuranceClaim
}

func (InsurancePayment) Method() model.PaymentMethod { return model.PaymentMethodInsurance }

// OpensDossier reports whether a CNAM dossier must be created for this instrument.
func (p InsurancePayment) OpensDossier() bool {
	return p.Claim != nil && p.Claim.DossierNumber != ""
}

func (p InsurancePayment) Reference() string {
	var b strings.Builder
	b.WriteString("CNAM")
	if p.Claim != nil {
		if p.Claim.DossierNumber != "" {
			b.WriteString(" Dossier " + p.Claim.DossierNumber)
		}
		if p.Claim.BondType != "" {
			bond, _ := parseBondType(p.Claim.BondType)
			b.WriteString(" (" + string(bond) + ")")
		}
	}
	return b.String() + ": " + formatDT(p.amount)
}

func (p InsurancePayment) Metadata() map[string]any {
	m := p.baseMetadata()
	if p.Claim == nil {
		return m
	}
	claim := map[string]any{}
	putString(claim, "dossier_number", p.Claim.DossierNumber)
	putString(claim, "bond_type", p.Claim.BondType)
	putString(claim, "status", p.Claim.Status)
	putDecimal(claim, "bond_amount", p.Claim.BondAmount)
	putDecimal(claim, "device_price", p.Claim.DevicePrice)
	putDecimal(claim, "complement_amount", p.Claim.ComplementAmount)
	if p.Claim.CurrentStep != nil {
		claim["current_step"] = *p.Claim.CurrentStep
	}
	if p.Claim.TotalSteps != nil {
		claim["total_steps"] = *p.Claim.TotalSteps
	}
	if p.Claim.Notes != nil {
		putString(claim, "notes", *p.Claim.Notes)
	}
	m["insurance"] = claim
	return m
}

func (p InsurancePayment) stamp(pay *model.Payment) {
	if p.Claim != nil {
		pay.InsuranceFileNumber = optString(p.Claim.DossierNumber)
	}
}

// PromissoryNotePayment is a "traite": payable at a future due date.
type PromissoryNotePayment struct {
	tender
	Number  string
	DueDate *time.Time
}

func (PromissoryNotePayment) Method() model.PaymentMethod { return model.PaymentMethodPromissory }

func (p PromissoryNotePayment) Reference() string {
	var b strings.Builder
	b.WriteString("Traite")
	if p.Number != "" {
		b.WriteString(" N°" + p.Number)
	}
	if p.DueDate != nil {
		b.WriteString(" échéance " + p.DueDate.Format(time.DateOnly))
	}
	return b.String() + ": " + formatDT(p.amount)
}

func (p PromissoryNotePayment) Metadata() map[string]any {
	m := p.baseMetadata()
	putString(m, "document_number", p.Number)
	putDate(m, "due_date", p.DueDate)
	return m
}

func (p PromissoryNotePayment) stamp(pay *model.Payment) { pay.DueDate = p.DueDate }

// MoneyOrderPayment is a "mandat".
type MoneyOrderPayment struct {
	tender
	Number string
}

func (MoneyOrderPayment) Method() model.PaymentMethod { return model.PaymentMethodMoneyOrder }

func (p MoneyOrderPayment) Reference() string {
	if p.Number == "" {
		return "Mandat: " + formatDT(p.amount)
	}
	return "Mandat N°" + p.Number + ": " + formatDT(p.amount)
}

func (p MoneyOrderPayment) Metadata() map[string]any {
	m := p.baseMetadata()
	putString(m, "document_number", p.Number)
	return m
}

func (MoneyOrderPayment) stamp(*model.Payment) {}

// ── Parsing ───────────────────────────────────────────────────────────────────

var methodAliases = map[string]model.PaymentMethod{
	"especes":         model.PaymentMethodCash,
	"espèces":         model.PaymentMethodCash,
	"cash":            model.PaymentMethodCash,
	"cheque":          model.PaymentMethodCheque,
	"chèque":          model.PaymentMethodCheque,
	"check":           model.PaymentMethodCheque,
	"virement":        model.PaymentMethodTransfer,
	"transfer":        model.PaymentMethodTransfer,
	"bank_transfer":   model.PaymentMethodTransfer,
	"cnam":            model.PaymentMethodInsurance,
	"insurance":       model.PaymentMethodInsurance,
	"traite":          model.PaymentMethodPromissory,
	"promissory_note": model.PaymentMethodPromissory,
	"mandat":          model.PaymentMethodMoneyOrder,
	"draft":           model.PaymentMethodMoneyOrder,
	"money_order":     model.PaymentMethodMoneyOrder,
}

var classificationAliases = map[string]model.PaymentClassification{
	"principal":      model.ClassificationPrincipal,
	"principale":     model.ClassificationPrincipal,
	"complementary":  model.ClassificationComplementary,
	"complementaire": model.ClassificationComplementary,
	"complémentaire": model.ClassificationComplementary,
}

// parseInstruments converts the wire list into typed instruments. Problems are
// written into fields keyed by path; the returned slice is only meaningful when
// no field was added.
func parseInstruments(reqs []dto.PaymentInstrumentRequest, fields map[string]string) []Instrument {
	out := make([]Instrument, 0, len(reqs))
	for i, r := range reqs {
		path := fmt.Sprintf("payment[%d]", i)

		method, ok := methodAliases[strings.ToLower(strings.TrimSpace(r.Method))]
		if !ok {
			fields[path+".method"] = "unknown payment method"
			continue
		}
		if r.Amount == nil {
			fields[path+".amount"] = "required"
			continue
		}
		if r.Amount.IsNegative() {
			fields[path+".amount"] = "must be >= 0"
			continue
		}

		class := model.ClassificationComplementary
		if i == 0 {
			class = model.ClassificationPrincipal
		}
		if r.Classification != "" {
			c, ok := classificationAliases[strings.ToLower(r.Classification)]
			if !ok {
				fields[path+".classification"] = "must be principal or complementary"
				continue
			}
			class = c
		}

		t := tender{amount: *r.Amount, class: class, notes: r.Notes}
		switch method {
		case model.PaymentMethodCash:
			out = append(out, CashPayment{t})
		case model.PaymentMethodCheque:
			out = append(out, ChequePayment{tender: t, Number: deref(r.ChequeNumber), Bank: deref(r.BankName), DueDate: r.DueDate})
		case model.PaymentMethodTransfer:
			out = append(out, TransferPayment{tender: t, TransferRef: deref(r.TransferReference), Bank: deref(r.BankName)})
		case model.PaymentMethodInsurance:
			out = append(out, InsurancePayment{tender: t, Claim: claimFromRequest(r.Insurance)})
		case model.PaymentMethodPromissory:
			out = append(out, PromissoryNotePayment{tender: t, Number: deref(r.DocumentNumber), DueDate: r.DueDate})
		case model.PaymentMethodMoneyOrder:
			out = append(out, MoneyOrderPayment{tender: t, Number: deref(r.DocumentNumber)})
		}
	}
	return out
}

func claimFromRequest(r *dto.InsuranceClaimRequest) *InsuranceClaim {
	if r == nil {
		return nil
	}
	return &InsuranceClaim{
		DossierNumber:    strings.TrimSpace(r.DossierNumber),
		BondType:         r.BondType,
		BondAmount:       r.BondAmount,
		DevicePrice:      r.DevicePrice,
		ComplementAmount: r.ComplementAmount,
		CurrentStep:      r.CurrentStep,
		TotalSteps:       r.TotalSteps,
		Status:           r.Status,
		Notes:            r.Notes,
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func formatDT(d decimal.Decimal) string { return d.String() + " DT" }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func putDate(m map[string]any, key string, t *time.Time) {
	if t != nil {
		m[key] = t.Format(time.DateOnly)
	}
}

func putDecimal(m map[string]any, key string, d *decimal.Decimal) {
	if d != nil {
		m[key] = d.String()
	}
}
