package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// SMTPConfig defines the outgoing mail server.
type SMTPConfig struct {
	Host     string `env:"STUDENT_ERP_SMTP_HOST"`
	Port     int    `env:"STUDENT_ERP_SMTP_PORT" envDefault:"587"`
	Username string `env:"STUDENT_ERP_SMTP_USERNAME"`
	Password string `env:"STUDENT_ERP_SMTP_PASSWORD"`
	From     string `env:"STUDENT_ERP_SMTP_FROM"`
}

// Enabled reports whether SMTP delivery is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// SMTPSender delivers messages over SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender builds a sender from config.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send delivers the message, honoring context cancellation.
func (s *SMTPSender) Send(ctx context.Context, message Message) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(message.Recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextPlain, message.Body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", message.Recipient, err)
	}
	return nil
}
