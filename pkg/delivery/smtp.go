package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// TransportMode names how the SMTP connection is secured.
type TransportMode string

const (
	// TransportSMTPS wraps the whole connection in TLS (implicit TLS).
	TransportSMTPS TransportMode = "smtps"
	// TransportSTARTTLS upgrades a plain connection via STARTTLS and
	// fails if the server does not offer it.
	TransportSTARTTLS TransportMode = "starttls"
	// TransportPlain sends in the clear.
	TransportPlain TransportMode = "plain"
)

// SMTPConfig is an immutable set of SMTP connection parameters. Validation
// happens at construction, long before any network use.
type SMTPConfig struct {
	server   string
	port     int
	username string
	password string
	useTLS   bool
	useSSL   bool
	timeout  time.Duration
}

// NewSMTPConfig validates the parameters and returns an SMTPConfig. The
// server name is normalized the same way the other delivery hosts are. The
// username and password may be empty for open relays; a zero timeout keeps
// the mail library's default.
func NewSMTPConfig(server string, port int, username, password string, useTLS, useSSL bool, timeout time.Duration) (SMTPConfig, error) {
	host, err := normalizeHost(server)
	if err != nil {
		return SMTPConfig{}, err
	}

	if port < 1 || port > 65535 {
		return SMTPConfig{}, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	if timeout < 0 {
		return SMTPConfig{}, fmt.Errorf("timeout must be non-negative, got %s", timeout)
	}

	return SMTPConfig{
		server:   host,
		port:     port,
		username: username,
		password: password,
		useTLS:   useTLS,
		useSSL:   useSSL,
		timeout:  timeout,
	}, nil
}

// Server returns the normalized server name.
func (c SMTPConfig) Server() string { return c.server }

// Port returns the configured port.
func (c SMTPConfig) Port() int { return c.port }

// Username returns the configured username.
func (c SMTPConfig) Username() string { return c.username }

// Password returns the configured password.
func (c SMTPConfig) Password() string { return c.password }

// Timeout returns the configured dial timeout; zero means the library
// default.
func (c SMTPConfig) Timeout() time.Duration { return c.timeout }

// TransportMode derives the connection security from the TLS and SSL flags.
// SSL wins when both are set.
func (c SMTPConfig) TransportMode() TransportMode {
	switch {
	case c.useSSL:
		return TransportSMTPS
	case c.useTLS:
		return TransportSTARTTLS
	default:
		return TransportPlain
	}
}

// attachment pairs a name with the reader supplying its content.
type attachment struct {
	name   string
	reader io.Reader
}

// EmailMessageBuilder accumulates the parts of an outgoing message and
// assembles them into a *mail.Msg. Address validation happens in Build, so
// a builder can be filled in any order.
type EmailMessageBuilder struct {
	from        string
	to          []string
	cc          []string
	subject     string
	textBody    string
	htmlBody    string
	attachments []attachment
	headers     map[string]string
}

// NewEmailMessageBuilder returns an empty builder.
func NewEmailMessageBuilder() *EmailMessageBuilder {
	return &EmailMessageBuilder{headers: make(map[string]string)}
}

// From sets the sender address.
func (b *EmailMessageBuilder) From(addr string) *EmailMessageBuilder {
	b.from = addr
	return b
}

// To adds recipient addresses.
func (b *EmailMessageBuilder) To(addrs ...string) *EmailMessageBuilder {
	b.to = append(b.to, addrs...)
	return b
}

// Cc adds carbon-copy addresses.
func (b *EmailMessageBuilder) Cc(addrs ...string) *EmailMessageBuilder {
	b.cc = append(b.cc, addrs...)
	return b
}

// Subject sets the message subject.
func (b *EmailMessageBuilder) Subject(subject string) *EmailMessageBuilder {
	b.subject = subject
	return b
}

// Body sets the plain-text body.
func (b *EmailMessageBuilder) Body(text string) *EmailMessageBuilder {
	b.textBody = text
	return b
}

// HTMLBody sets the HTML body. When both bodies are set the HTML part wins
// and the plain text rides along as the alternative.
func (b *EmailMessageBuilder) HTMLBody(html string) *EmailMessageBuilder {
	b.htmlBody = html
	return b
}

// AttachReader adds an attachment read from r under the given file name.
func (b *EmailMessageBuilder) AttachReader(name string, r io.Reader) *EmailMessageBuilder {
	b.attachments = append(b.attachments, attachment{name: name, reader: r})
	return b
}

// Header sets a custom message header.
func (b *EmailMessageBuilder) Header(name, value string) *EmailMessageBuilder {
	b.headers[name] = value
	return b
}

// Build assembles the message, surfacing address and attachment errors.
func (b *EmailMessageBuilder) Build() (*mail.Msg, error) {
	if b.from == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	if len(b.to) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	msg := mail.NewMsg()

	if err := msg.From(b.from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", b.from, err)
	}
	if err := msg.To(b.to...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if len(b.cc) > 0 {
		if err := msg.Cc(b.cc...); err != nil {
			return nil, fmt.Errorf("invalid cc address: %w", err)
		}
	}

	msg.Subject(b.subject)

	switch {
	case b.htmlBody != "" && b.textBody != "":
		msg.SetBodyString(mail.TypeTextHTML, b.htmlBody)
		msg.AddAlternativeString(mail.TypeTextPlain, b.textBody)
	case b.htmlBody != "":
		msg.SetBodyString(mail.TypeTextHTML, b.htmlBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, b.textBody)
	}

	for _, att := range b.attachments {
		if err := msg.AttachReader(att.name, att.reader); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", att.name, err)
		}
	}

	for name, value := range b.headers {
		msg.SetGenHeader(mail.Header(name), value)
	}

	return msg, nil
}

// EmailSender delivers built messages through a single SMTP endpoint. An
// EmailSender is not safe for concurrent use.
type EmailSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewEmailSender creates an EmailSender for the given endpoint.
func NewEmailSender(cfg SMTPConfig, logger *slog.Logger) *EmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailSender{cfg: cfg, logger: logger}
}

// clientOptions translates the config into mail client options.
func (s *EmailSender) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.cfg.Port())}

	switch s.cfg.TransportMode() {
	case TransportSMTPS:
		opts = append(opts, mail.WithSSL())
	case TransportSTARTTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username() != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username()),
			mail.WithPassword(s.cfg.Password()),
		)
	}

	if s.cfg.Timeout() > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout()))
	}

	return opts
}

// Send dials the endpoint and delivers the messages over one connection.
func (s *EmailSender) Send(ctx context.Context, msgs ...*mail.Msg) error {
	if len(msgs) == 0 {
		return fmt.Errorf("no messages to send")
	}

	client, err := mail.NewClient(s.cfg.Server(), s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", s.cfg.Server(), err)
	}

	s.logger.Info("Sent mail.", "server", s.cfg.Server(), "mode", string(s.cfg.TransportMode()), "messages", len(msgs))
	return nil
}
