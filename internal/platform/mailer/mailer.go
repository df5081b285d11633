package mailer

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/fatflowers/pointsledger/pkg/config"
)

// Sender delivers transactional e-mail.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type NopSender struct{}

func (NopSender) Send(context.Context, string, string, string) error { return nil }

// SMTPSender sends through an SMTP relay with gomail.
type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		from:   cfg.FromEmail,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

func NewSender(cfg *config.Config, l *zap.SugaredLogger) Sender {
	if cfg.Email.SMTPHost == "" {
		l.Infow("smtp not configured, e-mails are dropped")
		return NopSender{}
	}
	return NewSMTPSender(cfg.Email)
}

var Module = fx.Options(
	fx.Provide(NewSender),
)
