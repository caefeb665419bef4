package worker

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/teamrally/backend/config"
)

// Mailer sends a single email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail via plain SMTP with optional auth.
type SMTPMailer struct {
	cfg config.EmailConfig
}

// NewSMTPMailer returns a mailer for the given config, or nil when SMTPHost
// is empty (delivery disabled, jobs get marked skipped).
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	from := m.cfg.FromAddress

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String()))
}
