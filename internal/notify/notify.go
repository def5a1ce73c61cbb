// Package notify renders and delivers submission notifications.
//
// A Dispatcher takes a fully rendered Message and hands it to a transport
// (SMTP via go-mail, the Mailgun API, or an in-process Recorder). Dispatchers
// never retry: a transport failure is returned to the caller wrapped in
// ErrDispatch. Template rendering lives in Renderer so that bodies can be
// produced and tested without any I/O.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

// ErrDispatch wraps every transport-level failure.
var ErrDispatch = errors.New("notification dispatch failed")

// ErrNoRecipients is returned for a message without any recipient.
var ErrNoRecipients = errors.New("message has no recipients")

// Attachment is an inline file referenced from the HTML body as cid:<Name>.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is a rendered notification ready for delivery.
type Message struct {
	To       []string
	Subject  string
	HTMLBody string
	Inline   []Attachment
}

// Receipt identifies a delivered message.
type Receipt struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// Dispatcher delivers messages.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Validate checks that a message can be handed to a transport.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", to, err)
		}
	}
	return nil
}

// dispatchError wraps a transport error so callers can match ErrDispatch.
func dispatchError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDispatch, provider, err)
}
