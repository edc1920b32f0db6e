package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medpos/internal/apierror"
	"medpos/internal/dto"
	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleService records sales atomically: invoice number, payment, items,
// inventory, insurance dossiers and patient history commit together or not at all.
type SaleService interface {
	CreateSale(ctx context.Context, actorID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
}

// ReceiptQueue receives committed sales for receipt rendering.
type ReceiptQueue interface {
	EnqueueReceipt(ctx context.Context, saleID uuid.UUID, clientEmail *string) error
}

type clientRef struct {
	patientID *uuid.UUID
	companyID *uuid.UUID
}

type saleService struct {
	uow       repository.UnitOfWork
	sales     repository.SaleRepository
	users     repository.UserRepository
	invoices  *InvoiceNumberGenerator
	payments  *PaymentAllocator
	dossiers  CNAMDossierService
	inventory InventoryService
	history   *PatientHistoryRecorder
	receipts  ReceiptQueue // nil disables post-commit receipts
	now       func() time.Time
}

func NewSaleService(
	uow repository.UnitOfWork,
	sales repository.SaleRepository,
	users repository.UserRepository,
	invoices *InvoiceNumberGenerator,
	payments *PaymentAllocator,
	dossiers CNAMDossierService,
	inventory InventoryService,
	history *PatientHistoryRecorder,
	receipts ReceiptQueue,
	now func() time.Time,
) SaleService {
	if now == nil {
		now = time.Now
	}
	return &saleService{
		uow:       uow,
		sales:     sales,
		users:     users,
		invoices:  invoices,
		payments:  payments,
		dossiers:  dossiers,
		inventory: inventory,
		history:   history,
		receipts:  receipts,
		now:       now,
	}
}

// salePlan is a validated submission, ready to persist.
type salePlan struct {
	sale        *model.Sale
	instruments []Instrument
	client      clientRef
	actorID     uuid.UUID
}

// ── CreateSale ───────────────────────────────────────────────────────────────

func (s *saleService) CreateSale(ctx context.Context, actorID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	plan, fields := planSale(actorID, req, s.now())
	if len(fields) > 0 {
		log.Warn().Interface("fields", fields).Msg("sale rejected by validation")
		return nil, newValidationError(fields)
	}
	sale := plan.sale

	var (
		alloc    *Allocation
		dossiers []model.CNAMDossier
	)
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if _, err := s.users.FindActiveByID(ctx, tx, sale.ProcessedByID); err != nil {
			return fmt.Errorf("processed_by %s: %w", sale.ProcessedByID, err)
		}

		var err error
		alloc, err = s.payments.Allocate(ctx, tx, plan.instruments, sale.FinalAmount, plan.client, sale.SaleDate)
		if err != nil {
			return fmt.Errorf("allocate payment: %w", err)
		}
		if alloc != nil {
			sale.PaymentID = &alloc.Payment.ID
		}

		_, err = s.invoices.Allocate(ctx, tx, s.now(), func(sp *gorm.DB, number string) error {
			sale.InvoiceNumber = number
			return s.sales.Create(ctx, sp, sale)
		})
		if err != nil {
			return err
		}

		if err := s.inventory.ApplySale(ctx, tx, sale); err != nil {
			return err
		}
		if dossiers, err = s.dossiers.OpenForSale(ctx, tx, sale, alloc, plan.actorID); err != nil {
			return err
		}
		return s.history.RecordSale(ctx, tx, sale, plan.actorID)
	})
	if err != nil {
		se := classify(err)
		ev := log.Warn()
		if se.Category == apierror.CategoryInternal {
			ev = log.Error()
		}
		ev.Err(err).Str("category", string(se.Category)).Msg("sale transaction rolled back")
		return nil, se
	}

	resp := toSaleResponse(sale, alloc, dossiers)
	ev := log.Info().
		Str("invoice_number", sale.InvoiceNumber).
		Str("sale_id", sale.ID.String()).
		Int("items", len(sale.Items)).
		Int("dossiers", len(dossiers))
	if resp.Payment != nil {
		ev = ev.Str("payment_status", resp.Payment.Status)
	}
	ev.Msg("sale recorded")

	// Best-effort post-commit work: the sale stands even if the queue is down
	if s.receipts != nil {
		if err := s.receipts.EnqueueReceipt(ctx, sale.ID, req.ClientEmail); err != nil {
			log.Warn().Err(err).Str("sale_id", sale.ID.String()).Msg("could not enqueue receipt job")
		}
	}
	return resp, nil
}

// planSale validates the submission and builds the sale rows. It never touches
// storage, so a rejected submission consumes no invoice number.
func planSale(actorID uuid.UUID, req dto.CreateSaleRequest, now time.Time) (*salePlan, map[string]string) {
	fields := structFieldErrors(&req)
	if fields == nil {
		fields = map[string]string{}
	}

	if (req.PatientID == nil) == (req.CompanyID == nil) {
		fields["client"] = "exactly one of patient_id or company_id is required"
	}

	processedBy := actorID
	if req.ProcessedByID != nil {
		processedBy = *req.ProcessedByID
	}
	if processedBy == uuid.Nil {
		fields["processed_by_id"] = "required"
	}
	actor := actorID
	if actor == uuid.Nil {
		actor = processedBy
	}

	status := model.SaleStatusPending
	if req.Status != "" {
		status = model.SaleStatus(strings.ToUpper(req.Status))
		if !status.Valid() {
			fields["status"] = "must be PENDING, COMPLETED or CANCELLED"
		}
	}

	discount := checkAmounts(req, fields)
	items := planItems(req.Items, fields)

	instruments := parseInstruments(req.Payment, fields)
	checkClaims(instruments, req.PatientID != nil, fields)

	if len(fields) > 0 {
		return nil, fields
	}

	saleDate := now
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}
	sale := &model.Sale{
		ID:            uuid.New(),
		SaleDate:      saleDate,
		TotalAmount:   *req.TotalAmount,
		Discount:      discount,
		FinalAmount:   req.TotalAmount.Sub(discount),
		Status:        status,
		Notes:         req.Notes,
		PatientID:     req.PatientID,
		CompanyID:     req.CompanyID,
		ProcessedByID: processedBy,
		Items:         items,
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}

	itemsTotal := decimal.Zero
	for _, it := range items {
		itemsTotal = itemsTotal.Add(it.ItemTotal)
	}
	if !itemsTotal.Equal(sale.TotalAmount) {
		log.Warn().
			Str("items_total", itemsTotal.String()).
			Str("total_amount", sale.TotalAmount.String()).
			Msg("sale total differs from sum of item totals")
	}

	return &salePlan{
		sale:        sale,
		instruments: instruments,
		client:      clientRef{patientID: req.PatientID, companyID: req.CompanyID},
		actorID:     actor,
	}, nil
}

// checkAmounts enforces final = total - discount and returns the discount.
// An omitted discount is derived from total and final.
func checkAmounts(req dto.CreateSaleRequest, fields map[string]string) decimal.Decimal {
	if req.TotalAmount == nil || req.FinalAmount == nil {
		return decimal.Zero
	}
	if req.TotalAmount.IsNegative() {
		fields["total_amount"] = "must be >= 0"
	}
	if req.FinalAmount.IsNegative() {
		fields["final_amount"] = "must be >= 0"
	}

	discount := req.TotalAmount.Sub(*req.FinalAmount)
	if req.Discount != nil {
		if req.Discount.IsNegative() {
			fields["discount"] = "must be >= 0"
		} else if !req.TotalAmount.Sub(*req.Discount).Equal(*req.FinalAmount) {
			fields["final_amount"] = "must equal total_amount - discount"
		}
		return *req.Discount
	}
	if discount.IsNegative() {
		fields["final_amount"] = "must not exceed total_amount"
	}
	return discount
}

func planItems(reqs []dto.SaleItemRequest, fields map[string]string) []model.SaleItem {
	items := make([]model.SaleItem, 0, len(reqs))
	for i, r := range reqs {
		path := fmt.Sprintf("items[%d]", i)
		if (r.ProductID == nil) == (r.MedicalDeviceID == nil) {
			fields[path] = "exactly one of product_id or medical_device_id is required"
			continue
		}
		if r.Quantity == nil || r.UnitPrice == nil || r.ItemTotal == nil {
			continue // already reported by struct tags
		}
		if r.MedicalDeviceID != nil && *r.Quantity != 1 {
			fields[path+".quantity"] = "a medical device is sold one unit at a time"
			continue
		}
		if r.UnitPrice.IsNegative() {
			fields[path+".unit_price"] = "must be >= 0"
			continue
		}
		discount := decimal.Zero
		if r.Discount != nil {
			if r.Discount.IsNegative() {
				fields[path+".discount"] = "must be >= 0"
				continue
			}
			discount = *r.Discount
		}
		expected := r.UnitPrice.Mul(decimal.NewFromInt(int64(*r.Quantity))).Sub(discount)
		if !r.ItemTotal.Equal(expected) {
			fields[path+".item_total"] = "must equal quantity * unit_price - discount"
			continue
		}

		items = append(items, model.SaleItem{
			ID:              uuid.New(),
			ProductID:       r.ProductID,
			MedicalDeviceID: r.MedicalDeviceID,
			Quantity:        *r.Quantity,
			UnitPrice:       *r.UnitPrice,
			Discount:        discount,
			ItemTotal:       *r.ItemTotal,
			SerialNumber:    r.SerialNumber,
			Warranty:        r.Warranty,
			Description:     r.Description,
		})
	}
	return items
}

// checkClaims rejects dossier data the dossier manager could not persist.
func checkClaims(instruments []Instrument, patientSale bool, fields map[string]string) {
	for i, in := range instruments {
		ins, ok := in.(InsurancePayment)
		if !ok || !ins.OpensDossier() {
			continue
		}
		path := fmt.Sprintf("payment[%d].insurance", i)
		if !patientSale {
			fields[path] = "a CNAM dossier requires a patient client"
			continue
		}
		c := ins.Claim
		if c.BondAmount != nil && c.BondAmount.IsNegative() {
			fields[path+".bond_amount"] = "must be >= 0"
		}
		if c.DevicePrice != nil {
			bond := ins.Amount()
			if c.BondAmount != nil {
				bond = *c.BondAmount
			}
			if c.DevicePrice.LessThan(bond) {
				fields[path+".device_price"] = "must be >= bond_amount"
			}
		}
		if c.CurrentStep != nil && c.TotalSteps != nil && *c.CurrentStep > *c.TotalSteps {
			fields[path+".current_step"] = "must not exceed total_steps"
		} else if c.CurrentStep != nil && c.TotalSteps == nil && *c.CurrentStep > 1 {
			fields[path+".total_steps"] = "required when current_step > 1"
		}
	}
}

// ── GetSale ──────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newServiceError(apierror.CategoryNotFound, err)
		}
		return nil, newServiceError(apierror.CategoryInternal, err)
	}
	var alloc *Allocation
	if sale.Payment != nil {
		alloc = &Allocation{Payment: sale.Payment}
	}
	return toSaleResponse(sale, alloc, sale.Dossiers), nil
}

func toSaleResponse(s *model.Sale, alloc *Allocation, dossiers []model.CNAMDossier) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:            s.ID,
		InvoiceNumber: s.InvoiceNumber,
		SaleDate:      s.SaleDate,
		TotalAmount:   s.TotalAmount,
		Discount:      s.Discount,
		FinalAmount:   s.FinalAmount,
		Status:        string(s.Status),
		Notes:         s.Notes,
		PatientID:     s.PatientID,
		CompanyID:     s.CompanyID,
		ProcessedByID: s.ProcessedByID,
		Items:         make([]dto.SaleItemResponse, 0, len(s.Items)),
		CreatedAt:     s.CreatedAt,
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:              it.ID,
			ProductID:       it.ProductID,
			MedicalDeviceID: it.MedicalDeviceID,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			Discount:        it.Discount,
			ItemTotal:       it.ItemTotal,
			SerialNumber:    it.SerialNumber,
			Warranty:        it.Warranty,
		})
	}
	if alloc != nil && alloc.Payment != nil {
		p := alloc.Payment
		pr := &dto.PaymentResponse{
			ID:      p.ID,
			Amount:  p.Amount,
			Method:  string(p.Method),
			Status:  string(p.Status),
			Details: make([]dto.PaymentDetailResponse, 0, len(p.Details)),
		}
		for _, d := range p.Details {
			pr.Details = append(pr.Details, dto.PaymentDetailResponse{
				ID:             d.ID,
				Method:         string(d.Method),
				Amount:         d.Amount,
				Classification: string(d.Classification),
				Reference:      d.Reference,
				Metadata:       d.Metadata,
			})
		}
		resp.Payment = pr
	}
	for _, d := range dossiers {
		resp.DossierIDs = append(resp.DossierIDs, d.ID)
	}
	return resp
}
