package worker

// receipt_worker.go
// Renders the invoice PDF of a committed sale and, when the client left an
// email address, hands it to the email queue.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SaleLoader is the read side the receipt worker needs.
type SaleLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
}

// EmailQueue receives rendered receipts to mail.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

// RenderFunc writes the PDF for a sale and returns its path.
type RenderFunc func(sale *model.Sale, companyName, storagePath string) (string, error)

type ReceiptWorker struct {
	sales       SaleLoader
	emails      EmailQueue
	render      RenderFunc
	companyName string
	storagePath string
}

func NewReceiptWorker(sales SaleLoader, emails EmailQueue, render RenderFunc, companyName, storagePath string) *ReceiptWorker {
	return &ReceiptWorker{sales: sales, emails: emails, render: render, companyName: companyName, storagePath: storagePath}
}

// Process is the JobHandler for JobReceipt.
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return permanent(fmt.Errorf("receipt_worker: invalid payload: %w", err))
	}

	sale, err := w.sales.FindByID(ctx, payload.SaleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return permanent(fmt.Errorf("receipt_worker: sale %s: %w", payload.SaleID, err))
		}
		return err
	}

	pdfPath, err := w.render(sale, w.companyName, w.storagePath)
	if err != nil {
		return fmt.Errorf("receipt_worker: render: %w", err)
	}
	log.Info().Str("pdf", pdfPath).Str("invoice_number", sale.InvoiceNumber).Msg("receipt_worker: invoice rendered")

	if payload.ClientEmail == nil || *payload.ClientEmail == "" {
		return nil
	}
	job := EmailJobPayload{ToEmail: *payload.ClientEmail, InvoiceNumber: sale.InvoiceNumber, PDFPath: pdfPath}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("receipt_worker: enqueue email: %w", err)
	}
	return nil
}
