// Package email sends plain-text notification mail over SMTP. Every caller
// treats dispatch as fire-and-forget: errors are returned for logging but
// must never fail the operation that triggered the mail.
package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"visualizar-api/config"
)

type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Send(to []string, subject, body string) error {
	if m.cfg.Host == "" {
		return errors.New("smtp not configured")
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + m.cfg.From + "\r\n" +
		"To: " + strings.Join(to, ", ") + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	return smtp.SendMail(addr, auth, m.cfg.From, to, message)
}
