package infra

import (
	"fmt"
	"net/smtp"

	"medpos/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends receipts over SMTP with the PDF attached.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     fmt.Sprintf("%s <%s>", cfg.CompanyName, cfg.SMTPUser),
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Enabled is false when no SMTP host is configured; receipts are then only stored.
func (m *Mailer) Enabled() bool { return m.host != "" }

// SendReceipt mails the invoice PDF for invoiceNumber to the client.
func (m *Mailer) SendReceipt(to, invoiceNumber, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Facture %s", invoiceNumber)
	e.Text = []byte(fmt.Sprintf("Bonjour,\n\nVeuillez trouver ci-joint votre facture N° %s.\n\nCordialement.", invoiceNumber))

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
