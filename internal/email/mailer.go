package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// ErrTransport wraps every failure to hand a message to the SMTP server.
var ErrTransport = errors.New("email transport failure")

type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS; otherwise STARTTLS when offered
	User     string
	Password string
	From     string
}

// SMTPMailer opens one connection per message with fixed connect and
// greeting timeouts.
type SMTPMailer struct {
	cfg     SMTPConfig
	timeout time.Duration
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, timeout: 10 * time.Second}
}

func (m *SMTPMailer) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.timeout),
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("%w: from address: %v", ErrTransport, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: to address: %v", ErrTransport, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	client, err := mail.NewClient(m.cfg.Host, m.options()...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}
