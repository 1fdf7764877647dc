// Package mailer submits campaign messages over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
)

// Transport delivers one message to every recipient in a single submission
// and returns the Message-ID it was sent with.
type Transport interface {
	Send(ctx context.Context, env *Envelope) (string, error)
}

type SMTPTransport struct {
	DialTimeout time.Duration
	// TLSConfig, when set, overrides the config used for implicit TLS and
	// STARTTLS. ServerName is filled in when empty.
	TLSConfig *tls.Config
	Now       func() time.Time
}

func NewSMTPTransport(dialTimeout time.Duration) *SMTPTransport {
	return &SMTPTransport{DialTimeout: dialTimeout, Now: time.Now}
}

func (t *SMTPTransport) tlsConfig(host string) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if t.TLSConfig != nil {
		cfg = t.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

func (t *SMTPTransport) dial(ctx context.Context, env *Envelope) (*smtp.Client, error) {
	addr := net.JoinHostPort(env.Host, strconv.Itoa(env.Port))
	dialer := &net.Dialer{Timeout: t.DialTimeout}

	var conn net.Conn
	var err error
	if env.Secure {
		td := &tls.Dialer{NetDialer: dialer, Config: t.tlsConfig(env.Host)}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, env.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SMTP client: %w", err)
	}
	if !env.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(t.tlsConfig(env.Host)); err != nil {
				c.Close()
				return nil, fmt.Errorf("STARTTLS: %w", err)
			}
		}
	}
	if err := c.Auth(&plainAuth{user: env.Username, pass: env.Password}); err != nil {
		c.Close()
		return nil, fmt.Errorf("AUTH: %w", err)
	}
	return c, nil
}

func (t *SMTPTransport) Send(ctx context.Context, env *Envelope) (string, error) {
	if len(env.Recipients) == 0 {
		return "", appErrors.Validation("no recipients")
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	messageID := messageIDFor(env.From.Address)
	msg, err := buildMessage(env, messageID, now())
	if err != nil {
		return "", appErrors.Transport(err, "could not build message")
	}

	if err := t.submit(ctx, env, msg); err != nil {
		logger.Warn("smtp submission failed", "host", env.Host, "from", env.From.Address, "error", err.Error())
		return "", appErrors.Transport(err, "failed to send mail via %s", env.Host)
	}
	logger.Info("smtp submission accepted", "host", env.Host, "message_id", messageID, "recipients", len(env.Recipients))
	return messageID, nil
}

func (t *SMTPTransport) submit(ctx context.Context, env *Envelope, msg []byte) error {
	c, err := t.dial(ctx, env)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(env.From.Address); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range env.Recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return c.Quit()
}

// plainAuth is PLAIN without net/smtp's TLS-or-localhost guard; plain
// submission ports are allowed when a credential is configured with
// secure=false and the server offers no STARTTLS.
type plainAuth struct {
	user, pass string
}

func (a *plainAuth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	return "PLAIN", []byte("\x00" + a.user + "\x00" + a.pass), nil
}

func (a *plainAuth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return nil, fmt.Errorf("unexpected server challenge")
	}
	return nil, nil
}

var _ Transport = (*SMTPTransport)(nil)
