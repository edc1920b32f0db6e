package worker

// email_worker.go
// Sends rendered invoices by SMTP. Calls go through the circuit breaker so a
// dead relay fails fast; the pool's retry then dead-letters the job.

import (
	"context"
	"encoding/json"
	"fmt"

	"medpos/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail       string `json:"to_email"`
	InvoiceNumber string `json:"invoice_number"`
	PDFPath       string `json:"pdf_path"`
}

// ReceiptSender delivers one invoice; *infra.Mailer implements it.
type ReceiptSender interface {
	Enabled() bool
	SendReceipt(to, invoiceNumber, pdfPath string) error
}

type EmailWorker struct {
	sender  ReceiptSender
	breaker *infra.CircuitBreaker
}

func NewEmailWorker(sender ReceiptSender, breaker *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, breaker: breaker}
}

// Process is the JobHandler for JobEmail.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return permanent(fmt.Errorf("email_worker: invalid payload: %w", err))
	}
	if payload.ToEmail == "" {
		log.Warn().Str("invoice_number", payload.InvoiceNumber).Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if !w.sender.Enabled() {
		log.Info().Str("invoice_number", payload.InvoiceNumber).Msg("email_worker: SMTP not configured, skipping")
		return nil
	}

	err := w.breaker.Execute(func() error {
		return w.sender.SendReceipt(payload.ToEmail, payload.InvoiceNumber, payload.PDFPath)
	})
	if err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Str("invoice_number", payload.InvoiceNumber).Msg("email_worker: invoice sent")
	return nil
}
