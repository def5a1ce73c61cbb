package notify

import (
	"bytes"
	"context"
	"io"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunConfig holds Mailgun API settings.
type MailgunConfig struct {
	Domain string
	APIKey string
	From   string
	EU     bool
}

// mailgunClient is the subset of *mailgun.MailgunImpl the dispatcher uses.
type mailgunClient interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// MailgunDispatcher sends messages through the Mailgun HTTP API.
type MailgunDispatcher struct {
	client mailgunClient
	from   string
}

// NewMailgunDispatcher creates a dispatcher for the configured domain.
func NewMailgunDispatcher(cfg MailgunConfig) *MailgunDispatcher {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.EU {
		mg.SetAPIBase(mailgun.APIBaseEU)
	}
	return &MailgunDispatcher{client: mg, from: cfg.From}
}

// Send delivers msg and returns Mailgun's message id as the receipt.
func (d *MailgunDispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}

	m := d.client.NewMessage(d.from, msg.Subject, "", msg.To...)
	m.SetHtml(msg.HTMLBody)
	for _, a := range msg.Inline {
		m.AddReaderInline(a.Name, io.NopCloser(bytes.NewReader(a.Data)))
	}

	_, id, err := d.client.Send(ctx, m)
	if err != nil {
		return Receipt{}, dispatchError("mailgun", err)
	}
	return Receipt{ID: id, Provider: "mailgun"}, nil
}
