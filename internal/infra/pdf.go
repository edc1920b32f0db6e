package infra

// pdf.go: invoice PDF rendered with go-pdf/fpdf.
// A5 portrait with:
//   - Company header, invoice number and sale date
//   - Client block (patient or company)
//   - Item table (designation, quantity, unit price, total)
//   - Discount and final amount
//   - Tendered instruments with their references
//
// The output file is saved to storagePath/facture_{invoice}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"medpos/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateInvoicePDF renders sale (loaded with Items, Payment.Details and its
// client) and returns the path of the written file.
func GenerateInvoicePDF(sale *model.Sale, companyName, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("facture_%s.pdf", sale.InvoiceNumber))

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	// Core fonts are cp1252; accented labels need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(companyName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr("Facture N° "+sale.InvoiceNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, sale.SaleDate.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Client ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, tr("Client : "+clientName(sale)), "", 1, "L", false, 0, "")
	if sale.Patient != nil && sale.Patient.CNAMID != nil {
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(contentW, 4, tr("Matricule CNAM : "+*sale.Patient.CNAMID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.46
	col2 := contentW * 0.12
	col3 := contentW * 0.21
	col4 := contentW * 0.21

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 6, tr("Désignation"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, tr("Qté"), "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "P.U. (DT)", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Total (DT)", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, item := range sale.Items {
		name := []rune(itemLabel(item))
		if len(name) > 34 {
			name = append(name[:33], '…')
		}
		pdf.CellFormat(col1, 5, tr(string(name)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, item.UnitPrice.StringFixed(3), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, item.ItemTotal.StringFixed(3), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := col1 + col2 + col3
	amountRow(pdf, labelW, col4, "Total brut :", sale.TotalAmount, false)
	if !sale.Discount.IsZero() {
		amountRow(pdf, labelW, col4, "Remise :", sale.Discount.Neg(), false)
	}
	amountRow(pdf, labelW, col4, tr("Net à payer :"), sale.FinalAmount, true)

	// ── Payment ──────────────────────────────────────────────────────────────
	if sale.Payment != nil && len(sale.Payment.Details) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, tr("Règlement"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		for _, d := range sale.Payment.Details {
			pdf.CellFormat(contentW, 4, tr(d.Reference), "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 4, "Merci de votre confiance.", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func amountRow(pdf *fpdf.Fpdf, labelW, amountW float64, label string, amount decimal.Decimal, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 9)
	pdf.CellFormat(labelW, 5, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(amountW, 5, amount.StringFixed(3), "", 1, "R", false, 0, "")
}

func clientName(sale *model.Sale) string {
	switch {
	case sale.Patient != nil:
		return sale.Patient.FirstName + " " + sale.Patient.LastName
	case sale.Company != nil:
		return sale.Company.CompanyName
	default:
		return "-"
	}
}

func itemLabel(item model.SaleItem) string {
	switch {
	case item.Description != nil && *item.Description != "":
		return *item.Description
	case item.MedicalDevice != nil:
		label := item.MedicalDevice.Name
		if item.SerialNumber != nil {
			label += " (S/N " + *item.SerialNumber + ")"
		}
		return label
	case item.Product != nil:
		return item.Product.Name
	default:
		return "Article"
	}
}
