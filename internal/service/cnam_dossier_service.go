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

// CNAMDossierService opens insurance dossiers for sales and moves them through
// the insurer's approval workflow.
type CNAMDossierService interface {
	// OpenForSale creates one dossier per insurance instrument of alloc that
	// carries a dossier number, each with its first history row.
	OpenForSale(ctx context.Context, tx *gorm.DB, sale *model.Sale, alloc *Allocation, actorID uuid.UUID) ([]model.CNAMDossier, error)
	Transition(ctx context.Context, id, actorID uuid.UUID, req dto.DossierTransitionRequest) (*dto.DossierResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.DossierResponse, error)
}

type cnamDossierService struct {
	uow      repository.UnitOfWork
	dossiers repository.CNAMDossierRepository
	now      func() time.Time
}

func NewCNAMDossierService(uow repository.UnitOfWork, dossiers repository.CNAMDossierRepository, now func() time.Time) CNAMDossierService {
	if now == nil {
		now = time.Now
	}
	return &cnamDossierService{uow: uow, dossiers: dossiers, now: now}
}

var knownBondTypes = map[model.CNAMBondType]bool{
	model.BondOxygenConcentrator: true,
	model.BondVNI:                true,
	model.BondCPAP:               true,
	model.BondMask:               true,
	model.BondOther:              true,
}

var knownDossierStatuses = map[model.CNAMStatus]bool{
	model.CNAMPendingApproval: true,
	model.CNAMApproved:        true,
	model.CNAMInProgress:      true,
	model.CNAMCompleted:       true,
	model.CNAMRefused:         true,
}

// dossierTransitions lists the statuses reachable from each non-terminal status.
// Staying on the same status is how the current step advances.
var dossierTransitions = map[model.CNAMStatus][]model.CNAMStatus{
	model.CNAMPendingApproval: {model.CNAMPendingApproval, model.CNAMApproved, model.CNAMRefused},
	model.CNAMApproved:        {model.CNAMApproved, model.CNAMInProgress, model.CNAMRefused},
	model.CNAMInProgress:      {model.CNAMInProgress, model.CNAMCompleted},
}

// parseBondType normalises a bond type tag. Unknown tags become AUTRE; ok is
// false in that case.
func parseBondType(raw string) (model.CNAMBondType, bool) {
	bt := model.CNAMBondType(strings.ToUpper(strings.TrimSpace(raw)))
	if knownBondTypes[bt] {
		return bt, true
	}
	return model.BondOther, false
}

// parseDossierStatus normalises a status tag; empty and unknown tags become
// EN_ATTENTE_APPROBATION. ok is false only for unknown non-empty tags.
func parseDossierStatus(raw string) (model.CNAMStatus, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.CNAMPendingApproval, true
	}
	st := model.CNAMStatus(strings.ToUpper(raw))
	if knownDossierStatuses[st] {
		return st, true
	}
	return model.CNAMPendingApproval, false
}

// DossierFromClaim builds the dossier for an insurance instrument without
// persisting it. The complement is always device price minus bond amount; a
// submitted complement only fills in a missing device price.
func DossierFromClaim(in InsurancePayment) model.CNAMDossier {
	c := in.Claim

	bondType, ok := parseBondType(c.BondType)
	if !ok && c.BondType != "" {
		log.Warn().Str("bond_type", c.BondType).Str("dossier", c.DossierNumber).Msg("unknown CNAM bond type, using AUTRE")
	}
	status, ok := parseDossierStatus(c.Status)
	if !ok {
		log.Warn().Str("status", c.Status).Str("dossier", c.DossierNumber).Msg("unknown CNAM status, using EN_ATTENTE_APPROBATION")
	}

	bond := in.Amount()
	if c.BondAmount != nil {
		bond = *c.BondAmount
	}
	var devicePrice decimal.Decimal
	switch {
	case c.DevicePrice != nil:
		devicePrice = *c.DevicePrice
	case c.ComplementAmount != nil:
		devicePrice = bond.Add(*c.ComplementAmount)
	default:
		devicePrice = bond
	}
	complement := devicePrice.Sub(bond)
	if c.ComplementAmount != nil && !c.ComplementAmount.Equal(complement) {
		log.Warn().
			Str("dossier", c.DossierNumber).
			Str("submitted", c.ComplementAmount.String()).
			Str("computed", complement.String()).
			Msg("CNAM complement recomputed from device price and bond")
	}

	step, total := 1, 1
	if c.CurrentStep != nil {
		step = *c.CurrentStep
	}
	if c.TotalSteps != nil {
		total = *c.TotalSteps
	}

	return model.CNAMDossier{
		ID:               uuid.New(),
		DossierNumber:    c.DossierNumber,
		BondType:         bondType,
		BondAmount:       bond,
		DevicePrice:      devicePrice,
		ComplementAmount: complement,
		CurrentStep:      step,
		TotalSteps:       total,
		Status:           status,
		Notes:            c.Notes,
	}
}

func (s *cnamDossierService) OpenForSale(ctx context.Context, tx *gorm.DB, sale *model.Sale, alloc *Allocation, actorID uuid.UUID) ([]model.CNAMDossier, error) {
	if alloc == nil {
		return nil, nil
	}
	var opened []model.CNAMDossier
	for i, in := range alloc.Instruments {
		ins, ok := in.(InsurancePayment)
		if !ok || !ins.OpensDossier() {
			continue
		}
		if sale.PatientID == nil {
			return nil, fmt.Errorf("dossier %s: %w", ins.Claim.DossierNumber, ErrDossierRequiresPatient)
		}

		d := DossierFromClaim(ins)
		d.SaleID = sale.ID
		d.PatientID = *sale.PatientID
		d.CreatedByID = actorID
		detailID := alloc.Payment.Details[i].ID
		d.PaymentDetailID = &detailID

		if err := s.dossiers.Create(ctx, tx, &d); err != nil {
			return nil, fmt.Errorf("create dossier %s: %w", d.DossierNumber, err)
		}
		note := "Dossier créé lors de la vente " + sale.InvoiceNumber
		h := model.CNAMStepHistory{
			ID:          uuid.New(),
			DossierID:   d.ID,
			Step:        d.CurrentStep,
			Status:      d.Status,
			ChangedByID: actorID,
			ChangedAt:   s.now(),
			Notes:       &note,
		}
		if err := s.dossiers.AppendHistory(ctx, tx, &h); err != nil {
			return nil, fmt.Errorf("dossier %s history: %w", d.DossierNumber, err)
		}
		d.StepHistory = []model.CNAMStepHistory{h}
		opened = append(opened, d)
	}
	return opened, nil
}

// ── Workflow ─────────────────────────────────────────────────────────────────

func (s *cnamDossierService) Transition(ctx context.Context, id, actorID uuid.UUID, req dto.DossierTransitionRequest) (*dto.DossierResponse, error) {
	target := model.CNAMStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !knownDossierStatuses[target] {
		return nil, newValidationError(map[string]string{"status": "unknown dossier status"})
	}

	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		d, err := s.dossiers.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		step, err := nextDossierStep(d, target, req.CurrentStep)
		if err != nil {
			return err
		}
		if err := s.dossiers.UpdateProgress(ctx, tx, d.ID, step, target); err != nil {
			return err
		}
		return s.dossiers.AppendHistory(ctx, tx, &model.CNAMStepHistory{
			ID:          uuid.New(),
			DossierID:   d.ID,
			Step:        step,
			Status:      target,
			ChangedByID: actorID,
			ChangedAt:   s.now(),
			Notes:       req.Notes,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newServiceError(apierror.CategoryNotFound, err)
		}
		se := classify(err)
		log.Warn().Err(err).Str("dossier_id", id.String()).Str("category", string(se.Category)).Msg("dossier transition rejected")
		return nil, se
	}

	log.Info().Str("dossier_id", id.String()).Str("status", string(target)).Msg("dossier status updated")
	return s.GetByID(ctx, id)
}

// nextDossierStep validates the move from d's status to target and returns
// the step the dossier ends on.
func nextDossierStep(d *model.CNAMDossier, target model.CNAMStatus, requested *int) (int, error) {
	if d.Status.Terminal() {
		return 0, fmt.Errorf("%s is terminal: %w", d.Status, ErrInvalidTransition)
	}
	allowed := false
	for _, st := range dossierTransitions[d.Status] {
		if st == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return 0, fmt.Errorf("%s -> %s: %w", d.Status, target, ErrInvalidTransition)
	}

	step := d.CurrentStep
	if requested != nil {
		step = *requested
	}
	if target == model.CNAMCompleted {
		step = d.TotalSteps
	}
	if step < 1 || step > d.TotalSteps {
		return 0, newValidationError(map[string]string{
			"current_step": fmt.Sprintf("must be between 1 and %d", d.TotalSteps),
		})
	}
	if step < d.CurrentStep {
		return 0, fmt.Errorf("step %d -> %d: %w", d.CurrentStep, step, ErrInvalidTransition)
	}
	if target == d.Status && step == d.CurrentStep {
		return 0, fmt.Errorf("no change from %s step %d: %w", d.Status, step, ErrInvalidTransition)
	}
	return step, nil
}

func (s *cnamDossierService) GetByID(ctx context.Context, id uuid.UUID) (*dto.DossierResponse, error) {
	d, err := s.dossiers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newServiceError(apierror.CategoryNotFound, err)
		}
		return nil, newServiceError(apierror.CategoryInternal, err)
	}
	return toDossierResponse(d), nil
}

func toDossierResponse(d *model.CNAMDossier) *dto.DossierResponse {
	resp := &dto.DossierResponse{
		ID:               d.ID,
		DossierNumber:    d.DossierNumber,
		SaleID:           d.SaleID,
		PatientID:        d.PatientID,
		BondType:         string(d.BondType),
		BondAmount:       d.BondAmount,
		DevicePrice:      d.DevicePrice,
		ComplementAmount: d.ComplementAmount,
		CurrentStep:      d.CurrentStep,
		TotalSteps:       d.TotalSteps,
		Status:           string(d.Status),
		Notes:            d.Notes,
		History:          make([]dto.DossierStepResponse, 0, len(d.StepHistory)),
	}
	for _, h := range d.StepHistory {
		resp.History = append(resp.History, dto.DossierStepResponse{
			Step:        h.Step,
			Status:      string(h.Status),
			ChangedByID: h.ChangedByID,
			ChangedAt:   h.ChangedAt,
			Notes:       h.Notes,
		})
	}
	return resp
}
