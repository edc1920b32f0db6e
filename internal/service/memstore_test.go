package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// memData is everything a unit of work may write. It is cloned on entry and
// restored on error, which gives the fake the same all-or-nothing behaviour
// as a postgres transaction.
type memData struct {
	users     map[uuid.UUID]model.User
	patients  map[uuid.UUID]model.Patient
	companies map[uuid.UUID]model.Company
	products  map[uuid.UUID]model.Product
	devices   map[uuid.UUID]model.MedicalDevice
	stocks    []model.Stock
	sales     []model.Sale
	payments  []model.Payment
	dossiers  []model.CNAMDossier
	steps     []model.CNAMStepHistory
	movements []model.StockMovement
	history   []model.PatientHistory
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](s []T) []T { return append([]T(nil), s...) }

func (d memData) clone() memData {
	return memData{
		users:     cloneMap(d.users),
		patients:  cloneMap(d.patients),
		companies: cloneMap(d.companies),
		products:  cloneMap(d.products),
		devices:   cloneMap(d.devices),
		stocks:    cloneSlice(d.stocks),
		sales:     cloneSlice(d.sales),
		payments:  cloneSlice(d.payments),
		dossiers:  cloneSlice(d.dossiers),
		steps:     cloneSlice(d.steps),
		movements: cloneSlice(d.movements),
		history:   cloneSlice(d.history),
	}
}

type memStore struct {
	mu sync.Mutex // held for the whole of a unit of work
	memData

	// onSaleInsert runs before a sale insert; a non-nil error aborts it, the
	// way a concurrent transaction that committed the same number would.
	onSaleInsert func(number string) error
	// historyErr makes CreateHistory fail, to exercise rollback.
	historyErr error
}

func newMemStore() *memStore {
	return &memStore{memData: memData{
		users:     map[uuid.UUID]model.User{},
		patients:  map[uuid.UUID]model.Patient{},
		companies: map[uuid.UUID]model.Company{},
		products:  map[uuid.UUID]model.Product{},
		devices:   map[uuid.UUID]model.MedicalDevice{},
	}}
}

func pgError(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint, Message: "mem: " + constraint}
}

// snapshot returns a copy of the store's rows, safe to inspect from tests.
func (s *memStore) snapshot() memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memData.clone()
}

// ── Unit of work ─────────────────────────────────────────────────────────────

type memUoW struct{ s *memStore }

var _ repository.UnitOfWork = memUoW{}

func (u memUoW) Do(_ context.Context, fn func(tx *gorm.DB) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	snap := u.s.memData.clone()
	if err := fn(nil); err != nil {
		u.s.memData = snap
		return err
	}
	return nil
}

func (u memUoW) Savepoint(_ context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	snap := u.s.memData.clone()
	if err := fn(tx); err != nil {
		u.s.memData = snap
		return err
	}
	return nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

type memSales struct{ s *memStore }

var _ repository.SaleRepository = memSales{}

func (r memSales) Create(_ context.Context, _ *gorm.DB, sale *model.Sale) error {
	if r.s.onSaleInsert != nil {
		if err := r.s.onSaleInsert(sale.InvoiceNumber); err != nil {
			return err
		}
	}
	for _, existing := range r.s.sales {
		if existing.InvoiceNumber == sale.InvoiceNumber {
			return pgError(pgUniqueViolation, model.SaleInvoiceNumberConstraint)
		}
	}
	if sale.PatientID != nil {
		if _, ok := r.s.patients[*sale.PatientID]; !ok {
			return pgError(pgForeignKeyViolation, "fk_sales_patient")
		}
	}
	if sale.CompanyID != nil {
		if _, ok := r.s.companies[*sale.CompanyID]; !ok {
			return pgError(pgForeignKeyViolation, "fk_sales_company")
		}
	}
	if _, ok := r.s.users[sale.ProcessedByID]; !ok {
		return pgError(pgForeignKeyViolation, "fk_sales_processed_by")
	}
	for _, it := range sale.Items {
		if it.ProductID != nil {
			if _, ok := r.s.products[*it.ProductID]; !ok {
				return pgError(pgForeignKeyViolation, "fk_sale_items_product")
			}
		}
		if it.MedicalDeviceID != nil {
			if _, ok := r.s.devices[*it.MedicalDeviceID]; !ok {
				return pgError(pgForeignKeyViolation, "fk_sale_items_medical_device")
			}
		}
	}
	row := *sale
	row.Items = cloneSlice(sale.Items)
	row.CreatedAt = time.Now()
	r.s.sales = append(r.s.sales, row)
	return nil
}

func (r memSales) InvoiceNumberExists(_ context.Context, _ *gorm.DB, number string) (bool, error) {
	for _, existing := range r.s.sales {
		if existing.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r memSales) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sale := range r.s.sales {
		if sale.ID != id {
			continue
		}
		out := sale
		if sale.PaymentID != nil {
			for _, p := range r.s.payments {
				if p.ID == *sale.PaymentID {
					p := p
					out.Payment = &p
				}
			}
		}
		for _, d := range r.s.dossiers {
			if d.SaleID == id {
				out.Dossiers = append(out.Dossiers, d)
			}
		}
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

// ── Payments ─────────────────────────────────────────────────────────────────

type memPayments struct{ s *memStore }

var _ repository.PaymentRepository = memPayments{}

func (r memPayments) Create(_ context.Context, _ *gorm.DB, p *model.Payment) error {
	row := *p
	row.Details = cloneSlice(p.Details)
	r.s.payments = append(r.s.payments, row)
	return nil
}

// ── Dossiers ─────────────────────────────────────────────────────────────────

type memDossiers struct{ s *memStore }

var _ repository.CNAMDossierRepository = memDossiers{}

func (r memDossiers) Create(_ context.Context, _ *gorm.DB, d *model.CNAMDossier) error {
	found := false
	for _, sale := range r.s.sales {
		if sale.ID == d.SaleID {
			found = true
		}
	}
	if !found {
		return pgError(pgForeignKeyViolation, "fk_cnam_dossiers_sale")
	}
	row := *d
	row.StepHistory = nil
	r.s.dossiers = append(r.s.dossiers, row)
	return nil
}

func (r memDossiers) AppendHistory(_ context.Context, _ *gorm.DB, h *model.CNAMStepHistory) error {
	r.s.steps = append(r.s.steps, *h)
	return nil
}

func (r memDossiers) LockByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.CNAMDossier, error) {
	for _, d := range r.s.dossiers {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memDossiers) UpdateProgress(_ context.Context, _ *gorm.DB, id uuid.UUID, step int, status model.CNAMStatus) error {
	for i := range r.s.dossiers {
		if r.s.dossiers[i].ID == id {
			r.s.dossiers[i].CurrentStep = step
			r.s.dossiers[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r memDossiers) FindByID(_ context.Context, id uuid.UUID) (*model.CNAMDossier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.dossiers {
		if d.ID != id {
			continue
		}
		out := d
		for _, h := range r.s.steps {
			if h.DossierID == id {
				out.StepHistory = append(out.StepHistory, h)
			}
		}
		sort.SliceStable(out.StepHistory, func(i, j int) bool {
			return out.StepHistory[i].ChangedAt.Before(out.StepHistory[j].ChangedAt)
		})
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

// ── Stock & devices ──────────────────────────────────────────────────────────

type memStock struct{ s *memStore }

var _ repository.StockRepository = memStock{}

func (r memStock) LockLatestForProduct(_ context.Context, _ *gorm.DB, productID uuid.UUID) (*model.Stock, error) {
	var latest *model.Stock
	for i := range r.s.stocks {
		st := r.s.stocks[i]
		if st.ProductID != productID {
			continue
		}
		if latest == nil || st.UpdatedAt.After(latest.UpdatedAt) {
			latest = &st
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r memStock) Decrement(_ context.Context, _ *gorm.DB, stockID uuid.UUID, qty int) (int, error) {
	for i := range r.s.stocks {
		if r.s.stocks[i].ID != stockID {
			continue
		}
		q := r.s.stocks[i].Quantity - qty
		if q < 0 {
			q = 0
		}
		r.s.stocks[i].Quantity = q
		return q, nil
	}
	return 0, repository.ErrNotFound
}

func (r memStock) CreateMovement(_ context.Context, _ *gorm.DB, m *model.StockMovement) error {
	r.s.movements = append(r.s.movements, *m)
	return nil
}

type memDevices struct{ s *memStore }

var _ repository.MedicalDeviceRepository = memDevices{}

func (r memDevices) MarkSold(_ context.Context, _ *gorm.DB, deviceID uuid.UUID, patientID, companyID *uuid.UUID) error {
	d, ok := r.s.devices[deviceID]
	if !ok || d.Status == model.DeviceStatusSold {
		return repository.ErrNotFound
	}
	d.Status = model.DeviceStatusSold
	d.PatientID = patientID
	d.CompanyID = companyID
	r.s.devices[deviceID] = d
	return nil
}

// ── Patients & users ─────────────────────────────────────────────────────────

type memPatients struct{ s *memStore }

var _ repository.PatientRepository = memPatients{}

func (r memPatients) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPatients) CreateHistory(_ context.Context, _ *gorm.DB, h *model.PatientHistory) error {
	if r.s.historyErr != nil {
		return r.s.historyErr
	}
	r.s.history = append(r.s.history, *h)
	return nil
}

type memUsers struct{ s *memStore }

var _ repository.UserRepository = memUsers{}

func (r memUsers) FindActiveByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.User, error) {
	u, ok := r.s.users[id]
	if !ok || !u.Active {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) Upsert(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Active = true
	r.s.users[u.ID] = *u
	return nil
}

// ── Receipts ─────────────────────────────────────────────────────────────────

type stubReceipts struct {
	mu    sync.Mutex
	sales []uuid.UUID
	err   error
}

func (q *stubReceipts) EnqueueReceipt(_ context.Context, saleID uuid.UUID, _ *string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.sales = append(q.sales, saleID)
	return nil
}
