package mail

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrHostPortRequired is returned when Host/Port are missing.
	ErrHostPortRequired = errors.New("mail: host and port are required")
	// ErrNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrNoRecipients = errors.New("mail: no recipients provided")
	// ErrNoSender is returned when both Message.From and the configured default From are empty.
	ErrNoSender = errors.New("mail: no sender provided")
)

// Message represents a provider-agnostic email payload.
type Message struct {
	// From overrides the driver's default sender when set.
	From string
	To   []string
	Cc   []string
	Bcc  []string
	// Subject is the email subject line.
	Subject string
	// TextBody is the plain-text body; sent alone when HTMLBody is empty.
	TextBody string
	// HTMLBody is the optional HTML body.
	HTMLBody string
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	Send(ctx context.Context, msg Message) error
}

// Config holds the connection settings shared by the drivers.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender when Message.From is empty.
	From string
}

// Configured reports whether enough settings are present to attempt delivery.
func (c Config) Configured() bool {
	return c.Host != "" && c.Port != 0 && c.From != ""
}

func (m Message) recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

func (m Message) sender(defaultFrom string) string {
	if m.From != "" {
		return m.From
	}
	return defaultFrom
}
