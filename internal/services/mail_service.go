// services/mail_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/google/uuid"
)

type IMailService interface {
	SendLifecycleMail(userID uuid.UUID, subject, body string) error
}

// SMTPConfig holds SMTP + branding config.
type SMTPConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // 587 STARTTLS
	Username string
	Password string
	From     string // e.g. "no-reply@yourapp.com"
	FromName string
	AppName  string
}

// UserEmailResolver maps a user id onto a deliverable address. The user
// directory is owned by the auth service; this is the only contact point.
type UserEmailResolver func(userID uuid.UUID) (string, bool)

type smtpMailService struct {
	cfg     SMTPConfig
	resolve UserEmailResolver
	tpl     *template.Template
}

func NewSMTPMailService(cfg SMTPConfig, resolve UserEmailResolver) (IMailService, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("missing SMTP configuration")
	}
	return &smtpMailService{
		cfg:     cfg,
		resolve: resolve,
		tpl:     template.Must(template.New("lifecycle").Parse(lifecycleHTMLTemplate)),
	}, nil
}

func (s *smtpMailService) SendLifecycleMail(userID uuid.UUID, subject, body string) error {
	to, ok := s.resolve(userID)
	if !ok {
		return fmt.Errorf("no address for user %s", userID)
	}

	var html bytes.Buffer
	err := s.tpl.Execute(&html, struct {
		Title   string
		Body    string
		AppName string
		Year    int
	}{
		Title:   subject,
		Body:    body,
		AppName: s.cfg.AppName,
		Year:    time.Now().Year(),
	})
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.cfg.FromName, s.cfg.From, to, subject, html.String())

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

const lifecycleHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:24px;background:#0f172a;color:#f1f5f9;font-family:-apple-system,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;">
  <div style="max-width:600px;margin:0 auto;background:#1e293b;border-radius:12px;padding:32px;">
    <div style="font-weight:700;font-size:20px;color:#60a5fa;">{{.AppName}}</div>
    <h1 style="font-size:24px;margin:24px 0 12px;">{{.Title}}</h1>
    <p style="line-height:1.7;color:#cbd5e1;">{{.Body}}</p>
    <p style="margin-top:32px;font-size:12px;color:#94a3b8;">&copy; {{.Year}} {{.AppName}}</p>
  </div>
</body>
</html>`
