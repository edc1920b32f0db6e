package service

import (
	"context"
	"fmt"
	"time"

	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	invoiceNumberLayout = "20060102-150405"
	// base candidate plus suffixes -001 … -099
	maxInvoiceNumberAttempts = 100
)

// InvoiceNumberGenerator hands out unique, human-readable invoice numbers of
// the form YYYYMMDD-HHMMSS[-NNN] stamped in a fixed timezone.
type InvoiceNumberGenerator struct {
	sales repository.SaleRepository
	uow   repository.UnitOfWork
	loc   *time.Location
}

func NewInvoiceNumberGenerator(sales repository.SaleRepository, uow repository.UnitOfWork, loc *time.Location) *InvoiceNumberGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceNumberGenerator{sales: sales, uow: uow, loc: loc}
}

// Candidate returns the attempt-th candidate for instant at. Attempt 0 has no suffix.
func (g *InvoiceNumberGenerator) Candidate(at time.Time, attempt int) string {
	base := at.In(g.loc).Format(invoiceNumberLayout)
	if attempt == 0 {
		return base
	}
	return fmt.Sprintf("%s-%03d", base, attempt)
}

// Allocate picks the first free candidate and runs insert with it inside a
// savepoint of tx. A unique violation on the invoice number from insert (a
// concurrent sale won the race after our existence check) rolls back to the
// savepoint and moves to the next candidate. Any other insert error is returned
// as is. After maxInvoiceNumberAttempts candidates ErrInvoiceNumberExhausted is returned.
func (g *InvoiceNumberGenerator) Allocate(ctx context.Context, tx *gorm.DB, at time.Time, insert func(tx *gorm.DB, number string) error) (string, error) {
	for attempt := 0; attempt < maxInvoiceNumberAttempts; attempt++ {
		candidate := g.Candidate(at, attempt)

		taken, err := g.sales.InvoiceNumberExists(ctx, tx, candidate)
		if err != nil {
			return "", fmt.Errorf("check invoice number %s: %w", candidate, err)
		}
		if taken {
			continue
		}

		err = g.uow.Savepoint(ctx, tx, func(sp *gorm.DB) error {
			return insert(sp, candidate)
		})
		if err == nil {
			return candidate, nil
		}
		if !isUniqueViolation(err, model.SaleInvoiceNumberConstraint) {
			return "", err
		}
		log.Debug().
			Str("candidate", candidate).
			Int("attempt", attempt).
			Msg("invoice number taken concurrently, retrying")
	}
	return "", ErrInvoiceNumberExhausted
}
