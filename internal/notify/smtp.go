package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPConfig configures an SMTP notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// From defaults to Username. To defaults to From.
	From string
	To   string

	// ImplicitTLS dials TLS directly (port 465). Otherwise STARTTLS is used
	// when the server offers it.
	ImplicitTLS bool

	// Timeout bounds one whole delivery. Default 30s.
	Timeout time.Duration

	// TLSConfig overrides the client TLS settings.
	TLSConfig *tls.Config
}

// SMTPConfigFrom maps the notify.smtp config section.
func SMTPConfigFrom(c config.SMTPConfig) SMTPConfig {
	return SMTPConfig{
		Host:        c.Host,
		Port:        c.Port,
		Username:    c.Username,
		Password:    c.Password,
		From:        c.From,
		To:          c.To,
		ImplicitTLS: c.ImplicitTLS,
		Timeout:     time.Duration(c.Timeout) * time.Second,
	}
}

// SMTP sends notifications by mail to a single recipient.
type SMTP struct {
	cfg  SMTPConfig
	addr string
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, fmt.Errorf("notify: smtp host and port are required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.To == "" {
		cfg.To = cfg.From
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("notify: smtp sender address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	if cfg.TLSConfig == nil {
		cfg.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	return &SMTP{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}, nil
}

// Recipient returns the address messages are delivered to.
func (s *SMTP) Recipient() string {
	return s.cfg.To
}

// Send delivers msg. The whole exchange is bounded by the configured
// timeout and by ctx; either expiring fails the send with ErrSendFailed.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.send(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrSendFailed, ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

func (s *SMTP) send(ctx context.Context, msg Message) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// net/smtp has no context support. Closing the connection unblocks
	// whatever exchange is in flight.
	stop := context.AfterFunc(ctx, func() { conn.Close() }) //nolint:errcheck // unblocking only
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if !s.cfg.ImplicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.cfg.TLSConfig); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(s.cfg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(s.compose(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data end: %w", err)
	}

	return c.Quit()
}

func (s *SMTP) dial(ctx context.Context) (net.Conn, error) {
	nd := &net.Dialer{}
	if s.cfg.ImplicitTLS {
		td := &tls.Dialer{NetDialer: nd, Config: s.cfg.TLSConfig}
		conn, err := td.DialContext(ctx, "tcp", s.addr)
		if err != nil {
			return nil, fmt.Errorf("smtp dial tls %s: %w", s.addr, err)
		}
		return conn, nil
	}
	conn, err := nd.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", s.addr, err)
	}
	return conn, nil
}

func (s *SMTP) compose(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.cfg.From + "\r\n")
	b.WriteString("To: " + s.cfg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
