package smtp

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/fiscus-api/internal/config"
	"github.com/fiscus-api/internal/domain"
)

// sendFunc matches smtp.SendMail so tests can capture outgoing mail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Dispatcher delivers messages over SMTP.
type Dispatcher struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     sendFunc
}

func NewDispatcher(cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

// Send writes msg to address. net/smtp has no context support, so ctx is only
// checked before dialing.
func (d *Dispatcher) Send(ctx context.Context, address string, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		d.from, address, msg.Subject, msg.Body)
	addr := fmt.Sprintf("%s:%s", d.host, d.port)

	var auth smtp.Auth
	if d.username != "" {
		auth = smtp.PlainAuth("", d.username, d.password, d.host)
	}

	if err := d.send(addr, auth, d.from, []string{address}, []byte(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
