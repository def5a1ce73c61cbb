package notify

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
)

// Recorder is an in-process Dispatcher that keeps every message it is given.
// With a Logger set it also logs each message, which is how MAIL_DRIVER=log
// behaves in development.
type Recorder struct {
	Logger *slog.Logger

	mu   sync.Mutex
	sent []Message
	fail func(Message) error
	seq  int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every subsequent Send for which fn returns non-nil fail.
// Pass nil to restore normal delivery.
func (r *Recorder) FailWith(fn func(Message) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fn
}

// Send records msg unless a failure function rejects it.
func (r *Recorder) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		if err := r.fail(msg); err != nil {
			return Receipt{}, dispatchError("recorder", err)
		}
	}

	r.seq++
	r.sent = append(r.sent, msg)
	receipt := Receipt{ID: "rec-" + strconv.Itoa(r.seq), Provider: "recorder"}

	if r.Logger != nil {
		r.Logger.InfoContext(ctx, "email recorded",
			"id", receipt.ID,
			"to", msg.To,
			"subject", msg.Subject,
			"inline", len(msg.Inline),
			"body_bytes", len(msg.HTMLBody),
		)
	}
	return receipt, nil
}

// Sent returns a copy of all recorded messages in send order.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentTo returns the recorded messages addressed to the given recipient.
func (r *Recorder) SentTo(addr string) []Message {
	var out []Message
	for _, m := range r.Sent() {
		for _, to := range m.To {
			if to == addr {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
