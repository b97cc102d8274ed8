package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
)

const dialTimeout = 10 * time.Second

// Service sends HTML email over SMTP
type Service struct {
	config *config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig) *Service {
	return &Service{
		config: cfg,
	}
}

// Send delivers one HTML message and reports whether the server accepted
// it. Failures are logged, never returned.
func (s *Service) Send(ctx context.Context, to, subject, html string) bool {
	if s.config.SMTPHost == "" {
		slog.Warn("SMTP is not configured, dropping email", "to", to, "subject", subject)
		return false
	}
	if err := s.sendEmail(ctx, to, subject, html); err != nil {
		slog.Error("Failed to send email", "to", to, "subject", subject, "error", err)
		return false
	}
	return true
}

// buildMessage renders headers and body in a fixed order
func (s *Service) buildMessage(to, subject, body string, now time.Time) []byte {
	headers := [][2]string{
		{"From", s.config.SMTPFrom},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message bytes.Buffer
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.Bytes()
}

// sendEmail sends an email using SMTP
func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	message := s.buildMessage(to, subject, body, time.Now())

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Attempting to connect to SMTP server", "address", addr)

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		err := conn.Close()
		if err != nil {
			slog.Debug("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		err := client.Close()
		if err != nil {
			slog.Debug("Failed to close SMTP client", "error", err)
		}
	}(client)

	// Local catchers such as Mailpit accept mail without auth
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := wc.Write(message); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := closeData(wc); err != nil {
		return err
	}

	if err := client.Quit(); err != nil {
		slog.Debug("SMTP QUIT failed", "error", err)
	}

	slog.Info("Email sent successfully", "to", to)
	return nil
}

func closeData(wc io.WriteCloser) error {
	if err := wc.Close(); err != nil {
		return fmt.Errorf("server rejected message: %w", err)
	}
	return nil
}
