package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/synesthesie/verification/internal/config"
)

// EmailService renders HTML templates and sends them over SMTP.
type EmailService struct {
	cfg       *config.Config
	templates map[string]*template.Template

	// transport delivers a fully built message; swapped in tests.
	transport func(ctx context.Context, to string, message []byte) error
}

func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{
		cfg:       cfg,
		templates: make(map[string]*template.Template),
	}
	service.transport = service.sendSMTP
	service.loadTemplates(filepath.Join(cfg.EmailTemplateDir, "*.html"))
	return service
}

// loadTemplates parses every template matching pattern, keyed by file name.
func (s *EmailService) loadTemplates(pattern string) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		log.Error().Err(err).Str("pattern", pattern).Msg("invalid email template pattern")
		return
	}
	for _, file := range files {
		tmpl, err := template.ParseFiles(file)
		if err != nil {
			log.Error().Err(err).Str("template", file).Msg("failed to load email template")
			continue
		}
		s.templates[filepath.Base(file)] = tmpl
	}
	log.Debug().Int("count", len(s.templates)).Msg("email templates loaded")
}

// RegisterTemplate adds or replaces a template under templateID.
func (s *EmailService) RegisterTemplate(templateID, text string) error {
	tmpl, err := template.New(templateID).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", templateID, err)
	}
	s.templates[templateID] = tmpl
	return nil
}

// SendTemplate renders templateID with data and mails it to to.
func (s *EmailService) SendTemplate(ctx context.Context, to, subject, templateID string, data map[string]string) error {
	tmpl, exists := s.templates[templateID]
	if !exists {
		return fmt.Errorf("template %s not found", templateID)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return s.transport(ctx, to, s.buildMessage(to, subject, body.String()))
}

func (s *EmailService) buildMessage(to, subject, htmlBody string) []byte {
	from := fmt.Sprintf("%s <%s>", s.cfg.SMTPFromName, s.cfg.SMTPFrom)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return msg.Bytes()
}

// sendSMTP uses implicit TLS on port 465 and STARTTLS when offered otherwise.
func (s *EmailService) sendSMTP(ctx context.Context, to string, message []byte) error {
	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	dialer := &net.Dialer{}

	var conn net.Conn
	var err error
	if s.cfg.SMTPPort == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.SMTPHost}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if s.cfg.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if s.cfg.SMTPUsername != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(message); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
