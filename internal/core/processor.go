package core

// processor.go is the submission pipeline shared by every kind:
//
//  1. validate the submitted fields against the kind's column rules
//  2. render the confirmation body (nothing is stored if this fails)
//  3. insert the record; a unique-column collision becomes a conflict
//  4. send the confirmation to the submitter
//  5. optionally queue an operations copy on the background limiter
//
// The record is the source of truth: a failed confirmation leaves it in place.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/intake/internal/logging"
	"github.com/JonMunkholm/intake/internal/notify"
)

// OpsTemplate is the template used for operations copies.
const OpsTemplate = "ops"

// Processor runs submissions through the pipeline.
type Processor struct {
	store    RecordWriter
	mailer   Dispatcher
	renderer Renderer
	validate *validator.Validate

	opsTo      []string
	background *notify.Limiter
	inline     map[string]notify.Attachment
	ticket     func() string
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithOpsCopy sends a copy of every accepted submission to the given
// mailboxes, in the background on limiter. An empty list disables it.
func WithOpsCopy(to []string, limiter *notify.Limiter) ProcessorOption {
	return func(p *Processor) {
		p.opsTo = to
		p.background = limiter
	}
}

// WithInline attaches a to the confirmation of the given kind. The body can
// reference it as cid:{{.ticketImage}}.
func WithInline(kindKey string, a notify.Attachment) ProcessorOption {
	return func(p *Processor) {
		p.inline[kindKey] = a
	}
}

// WithTicketSource replaces the ticket id generator.
func WithTicketSource(fn func() string) ProcessorOption {
	return func(p *Processor) {
		p.ticket = fn
	}
}

// NewProcessor creates a processor writing to store and sending through mailer.
func NewProcessor(store RecordWriter, mailer Dispatcher, renderer Renderer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:    store,
		mailer:   mailer,
		renderer: renderer,
		validate: validator.New(),
		inline:   make(map[string]notify.Attachment),
		ticket:   NewTicketID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit processes one submission of the given kind. input is keyed by
// submitted field name. Submit never panics on bad input and always returns
// an Outcome whose Code is the HTTP status to report.
func (p *Processor) Submit(ctx context.Context, kind Kind, input map[string]string) Outcome {
	log := logging.WithFields(ctx, "kind", kind.Key)

	fields, err := p.collect(kind, input)
	if err != nil {
		log.Info("submission rejected", "error", err)
		return Outcome{Status: StatusInvalid, Code: http.StatusBadRequest, Message: MapError(err).Message, Err: err}
	}

	view := make(map[string]string, len(fields)+2)
	for _, f := range fields {
		view[f.Name] = f.Value
	}
	var inline []notify.Attachment
	if kind.Ticket {
		view["ticketId"] = p.ticket()
		if a, ok := p.inline[kind.Key]; ok {
			view["ticketImage"] = a.Name
			inline = append(inline, a)
		}
	}

	body, err := p.renderer.Render(kind.Template, view)
	if err != nil {
		log.Error("render confirmation", "template", kind.Template, "error", err)
		return p.failed(kind, fmt.Errorf("render %s: %w", kind.Template, err))
	}

	rec, err := p.store.Insert(ctx, kind, fields)
	if err != nil {
		if kind.Unique != "" && errors.Is(err, ErrDuplicate) {
			log.Info("duplicate submission", kind.Unique, view[kind.Unique])
			return Outcome{Status: StatusConflict, Code: http.StatusConflict, Message: kind.Messages.Conflict, Err: err}
		}
		log.Error("insert record", "table", kind.Table, "error", err)
		return p.failed(kind, err)
	}

	receipt, err := p.mailer.Send(ctx, notify.Message{
		To:       []string{view["email"]},
		Subject:  kind.Subject,
		HTMLBody: body,
		Inline:   inline,
	})
	if err != nil {
		log.Error("send confirmation", "id", rec.ID, "email", view["email"], "error", err)
		out := p.failed(kind, err)
		out.Record = &rec
		return out
	}

	p.sendOpsCopy(ctx, kind, rec)

	log.Info("submission accepted", "id", rec.ID, "message_id", receipt.ID)
	return Outcome{
		Status:  StatusAccepted,
		Code:    http.StatusOK,
		Message: kind.Messages.Success,
		Record:  &rec,
		Receipt: receipt,
	}
}

// collect trims and validates the submitted values in column order.
func (p *Processor) collect(kind Kind, input map[string]string) ([]Field, error) {
	fields := make([]Field, 0, len(kind.Columns))
	var invalid []string

	for _, col := range kind.Columns {
		value := strings.TrimSpace(input[col.InputName()])
		if col.Rules != "" {
			if err := p.validate.Var(value, col.Rules); err != nil {
				invalid = append(invalid, col.InputName())
				continue
			}
		}
		fields = append(fields, Field{Name: col.Name, Value: value})
	}

	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}
	return fields, nil
}

func (p *Processor) failed(kind Kind, err error) Outcome {
	return Outcome{
		Status:  StatusFailed,
		Code:    http.StatusInternalServerError,
		Message: kind.Messages.Failure,
		Err:     err,
	}
}

// sendOpsCopy queues the operations copy. It never affects the outcome.
func (p *Processor) sendOpsCopy(ctx context.Context, kind Kind, rec Record) {
	if len(p.opsTo) == 0 || p.background == nil {
		return
	}

	view := rec.Map()
	view["_id"] = rec.ID
	view["createdAt"] = rec.CreatedAt.UTC().Format(TimeLayout)

	started := p.background.Go(ctx, func(ctx context.Context) {
		log := logging.WithFields(ctx, "kind", kind.Key, "id", rec.ID)

		body, err := p.renderer.Render(OpsTemplate, view)
		if err != nil {
			log.Error("render operations copy", "error", err)
			return
		}
		_, err = p.mailer.Send(ctx, notify.Message{
			To:       p.opsTo,
			Subject:  "New submission: " + kind.Label,
			HTMLBody: body,
		})
		if err != nil {
			log.Warn("operations copy failed", "error", err)
		}
	})
	if !started {
		logging.FromContext(ctx).Warn("operations copy dropped, background queue full",
			"kind", kind.Key, "id", rec.ID)
	}
}
