package notify

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/intake/internal/config"
)

// FromConfig builds the dispatcher selected by cfg.Driver, bounded by
// cfg.Timeout per send. The log driver records and logs instead of sending.
func FromConfig(cfg config.MailConfig, logger *slog.Logger) (Dispatcher, error) {
	var d Dispatcher
	switch cfg.Driver {
	case config.MailSMTP:
		d = NewSMTPDispatcher(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		})
	case config.MailMailgun:
		d = NewMailgunDispatcher(MailgunConfig{
			Domain: cfg.MailgunDomain,
			APIKey: cfg.MailgunKey,
			From:   cfg.From,
			EU:     cfg.MailgunEU,
		})
	case config.MailLog:
		rec := NewRecorder()
		rec.Logger = logger
		d = rec
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
	return WithTimeout(d, cfg.Timeout), nil
}

// WithTimeout bounds every Send of d by timeout. A non-positive timeout
// returns d unchanged.
func WithTimeout(d Dispatcher, timeout time.Duration) Dispatcher {
	if timeout <= 0 {
		return d
	}
	return timeoutDispatcher{next: d, timeout: timeout}
}

type timeoutDispatcher struct {
	next    Dispatcher
	timeout time.Duration
}

func (t timeoutDispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Send(ctx, msg)
}

// LoadAttachment reads an inline attachment from disk. The file's base name
// becomes the attachment name.
func LoadAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Attachment{Name: name, ContentType: contentType, Data: data}, nil
}
