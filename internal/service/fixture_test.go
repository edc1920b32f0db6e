package service

import (
	"testing"
	"time"

	"medpos/internal/dto"
	"medpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fixedNow is 2026-03-14 09:26:53 UTC; invoice numbers start at 20260314-092653.
var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

const baseInvoice = "20260314-092653"

type saleFixture struct {
	store    *memStore
	svc      SaleService
	dossiers CNAMDossierService
	receipts *stubReceipts

	actorID   uuid.UUID
	patientID uuid.UUID
	companyID uuid.UUID
	productID uuid.UUID
	stockID   uuid.UUID
	deviceID  uuid.UUID
	clinician uuid.UUID
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	f := &saleFixture{
		store:     newMemStore(),
		receipts:  &stubReceipts{},
		actorID:   uuid.New(),
		patientID: uuid.New(),
		companyID: uuid.New(),
		productID: uuid.New(),
		stockID:   uuid.New(),
		deviceID:  uuid.New(),
		clinician: uuid.New(),
	}
	s := f.store
	s.users[f.actorID] = model.User{ID: f.actorID, Username: "caissier", Role: model.RoleEmployee, Active: true}
	s.users[f.clinician] = model.User{ID: f.clinician, Username: "tech", Role: model.RoleEmployee, Active: true}
	s.patients[f.patientID] = model.Patient{ID: f.patientID, FirstName: "Amal", LastName: "Ben Salah", ResponsibleClinicianID: &f.clinician}
	s.companies[f.companyID] = model.Company{ID: f.companyID, CompanyName: "Clinique Les Oliviers"}
	s.products[f.productID] = model.Product{ID: f.productID, Name: "Masque nasal"}
	s.stocks = append(s.stocks, model.Stock{ID: f.stockID, ProductID: f.productID, LocationID: uuid.New(), Quantity: 10, UpdatedAt: fixedNow.Add(-time.Hour)})
	s.devices[f.deviceID] = model.MedicalDevice{ID: f.deviceID, Name: "CPAP AirSense 10", Status: model.DeviceStatusActive}

	uow := memUoW{s: s}
	clock := func() time.Time { return fixedNow }
	sales := memSales{s: s}
	f.dossiers = NewCNAMDossierService(uow, memDossiers{s: s}, clock)
	f.svc = NewSaleService(
		uow,
		sales,
		memUsers{s: s},
		NewInvoiceNumberGenerator(sales, uow, time.UTC),
		NewPaymentAllocator(memPayments{s: s}),
		f.dossiers,
		NewInventoryService(memStock{s: s}, memDevices{s: s}),
		NewPatientHistoryRecorder(memPatients{s: s}),
		f.receipts,
		clock,
	)
	return f
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(i int) *int { return &i }

func strp(s string) *string { return &s }

func (f *saleFixture) productItem(qty int, unit string) dto.SaleItemRequest {
	u := decimal.RequireFromString(unit)
	total := u.Mul(decimal.NewFromInt(int64(qty)))
	return dto.SaleItemRequest{
		ProductID: &f.productID,
		Quantity:  intp(qty),
		UnitPrice: &u,
		ItemTotal: &total,
	}
}

func (f *saleFixture) deviceItem(price string) dto.SaleItemRequest {
	return dto.SaleItemRequest{
		MedicalDeviceID: &f.deviceID,
		Quantity:        intp(1),
		UnitPrice:       dec(price),
		ItemTotal:       dec(price),
		SerialNumber:    strp("SN-2231"),
	}
}

// patientSale is a one-item patient sale of total 500, final 450.
func (f *saleFixture) patientSale(payment ...dto.PaymentInstrumentRequest) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		PatientID:   &f.patientID,
		Items:       []dto.SaleItemRequest{f.productItem(1, "500")},
		TotalAmount: dec("500"),
		Discount:    dec("50"),
		FinalAmount: dec("450"),
		Notes:       strp("livraison à domicile"),
		Payment:     payment,
	}
}

func cash(amount string) dto.PaymentInstrumentRequest {
	return dto.PaymentInstrumentRequest{Method: "cash", Amount: dec(amount)}
}
