package mail

import (
	"context"
	"time"

	gomail "gopkg.in/mail.v2"
)

// GoMailConfig configures the gopkg.in/mail.v2 driver.
type GoMailConfig struct {
	Config

	// Timeout bounds dialing and each SMTP command; zero keeps the library default.
	Timeout time.Duration
	// RequireTLS refuses to send when the server does not offer STARTTLS.
	RequireTLS bool
}

// GoMail is a Mail implementation backed by gopkg.in/mail.v2.
type GoMail struct {
	dialer      *gomail.Dialer
	defaultFrom string
}

// NewGoMail constructs a sender that upgrades the connection with STARTTLS.
func NewGoMail(cfg GoMailConfig) (*GoMail, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrHostPortRequired
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = gomail.OpportunisticStartTLS
	if cfg.RequireTLS {
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	}
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}

	return &GoMail{dialer: d, defaultFrom: cfg.From}, nil
}

// Send delivers a message in a fresh SMTP session. ctx is checked before dialing.
func (g *GoMail) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(msg.recipients()) == 0 {
		return ErrNoRecipients
	}

	from := msg.sender(g.defaultFrom)
	if from == "" {
		return ErrNoSender
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	return g.dialer.DialAndSend(m)
}

// Close implements io.Closer for interface compatibility.
func (g *GoMail) Close() error {
	return nil
}
