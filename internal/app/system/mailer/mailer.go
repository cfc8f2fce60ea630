// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned by New when the selected backend is missing
// credentials.
var ErrNotConfigured = errors.New("mailer: email configuration is missing")

// Email is one outbound message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Config selects and configures a backend. Backend is "sendgrid" or "smtp".
type Config struct {
	Backend  string
	From     string
	FromName string

	SendGridKey string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
}

// New returns the configured Sender. It returns ErrNotConfigured when the
// backend is unset or lacks credentials, so callers can report a missing
// configuration instead of failing at send time.
func New(cfg Config, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "sendgrid":
		if cfg.SendGridKey == "" || cfg.From == "" {
			return nil, ErrNotConfigured
		}
		logger.Info("mailer configured", zap.String("backend", "sendgrid"))
		return NewSendGrid(cfg.SendGridKey, cfg.FromName, cfg.From), nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPUser == "" || cfg.SMTPPass == "" {
			return nil, ErrNotConfigured
		}
		from := cfg.From
		if from == "" {
			from = cfg.SMTPUser
		}
		port := cfg.SMTPPort
		if port == 0 {
			port = 587
		}
		logger.Info("mailer configured",
			zap.String("backend", "smtp"),
			zap.String("host", cfg.SMTPHost),
			zap.Int("port", port))
		return NewSMTP(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPass, cfg.FromName, from), nil
	case "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("mailer: unknown backend %q", cfg.Backend)
	}
}
