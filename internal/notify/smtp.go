package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // "Name <address>" or a bare address
}

// SMTPDispatcher sends messages through an SMTP relay.
// A client is dialed per message; the relay owns connection limits.
type SMTPDispatcher struct {
	cfg    SMTPConfig
	domain string
}

// NewSMTPDispatcher creates a dispatcher for the given relay.
func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	domain := "localhost"
	if at := strings.LastIndex(cfg.From, "@"); at >= 0 {
		domain = strings.TrimSuffix(cfg.From[at+1:], ">")
	}
	return &SMTPDispatcher{cfg: cfg, domain: domain}
}

// Send delivers msg and returns the generated Message-ID as the receipt.
func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}

	m, id, err := d.build(msg)
	if err != nil {
		return Receipt{}, err
	}

	opts := []mail.Option{
		mail.WithPort(d.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if d.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(d.cfg.Username),
			mail.WithPassword(d.cfg.Password),
		)
	}

	client, err := mail.NewClient(d.cfg.Host, opts...)
	if err != nil {
		return Receipt{}, dispatchError("smtp", fmt.Errorf("create client: %w", err))
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Receipt{}, dispatchError("smtp", err)
	}

	return Receipt{ID: id, Provider: "smtp"}, nil
}

// build assembles the go-mail message. Inline attachments are embedded
// under their Name, which go-mail also uses as the Content-ID.
func (d *SMTPDispatcher) build(msg Message) (*mail.Msg, string, error) {
	m := mail.NewMsg()
	if err := m.From(d.cfg.From); err != nil {
		return nil, "", fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, "", fmt.Errorf("set to: %w", err)
	}

	id := uuid.NewString()
	m.SetGenHeader(mail.HeaderMessageID, fmt.Sprintf("<%s@%s>", id, d.domain))
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	for _, a := range msg.Inline {
		if err := m.EmbedReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return nil, "", fmt.Errorf("embed %s: %w", a.Name, err)
		}
	}

	return m, id, nil
}
