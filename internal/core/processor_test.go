package core

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/intake/internal/notify"
)

func registrationInput(email string) map[string]string {
	return map[string]string{
		"firstName": "Ada",
		"lastName":  "Obi",
		"email":     email,
		"phone":     "+2348000000000",
		"gender":    "female",
		"ticket":    "in-person",
	}
}

func newTestProcessor(t *testing.T, store *memStore, rec *notify.Recorder, opts ...ProcessorOption) *Processor {
	t.Helper()
	renderer, err := notify.NewRenderer()
	require.NoError(t, err)
	opts = append([]ProcessorOption{WithTicketSource(func() string { return "4212034917254801" })}, opts...)
	return NewProcessor(store, rec, renderer, opts...)
}

func TestProcessor_RegistrationAccepted(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	p := newTestProcessor(t, store, rec)

	out := p.Submit(context.Background(), RegistrationKind, registrationInput("ada@example.com"))

	require.Equal(t, StatusAccepted, out.Status, "err: %v", out.Err)
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "Registration successful", out.Message)
	require.NotNil(t, out.Record)
	assert.Equal(t, "in-person", out.Record.Get("attendanceType"))
	assert.Empty(t, out.Record.Get("ticketId"), "ticket id is display-only")

	sent := rec.SentTo("ada@example.com")
	require.Len(t, sent, 1)
	assert.Equal(t, "SIC Africa Event Registration Confirmation", sent[0].Subject)
	assert.Contains(t, sent[0].HTMLBody, "4212034917254801")
	assert.Contains(t, sent[0].HTMLBody, "Ada Obi")
	assert.Empty(t, sent[0].Inline)
}

func TestProcessor_DuplicateConflicts(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		input   map[string]string
		message string
	}{
		{"registration", RegistrationKind, registrationInput("dup@example.com"), "This email has already been registered."},
		{"newsletter", NewsletterKind, map[string]string{"email": "dup@example.com"}, "This email is already subscribed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			rec := notify.NewRecorder()
			p := newTestProcessor(t, store, rec)

			first := p.Submit(context.Background(), tt.kind, tt.input)
			require.Equal(t, StatusAccepted, first.Status)

			second := p.Submit(context.Background(), tt.kind, tt.input)
			assert.Equal(t, StatusConflict, second.Status)
			assert.Equal(t, http.StatusConflict, second.Code)
			assert.Equal(t, tt.message, second.Message)
			assert.ErrorIs(t, second.Err, ErrDuplicate)

			assert.Equal(t, 1, store.count(tt.kind.Key))
			assert.Len(t, rec.Sent(), 1, "no email for the duplicate")
		})
	}
}

func TestProcessor_ContactNeverConflicts(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	p := newTestProcessor(t, store, rec)

	input := map[string]string{
		"name":    "Ada",
		"phone":   "0800",
		"email":   "ada@example.com",
		"subject": "Sponsorship",
		"message": "Hello there",
	}
	for i := 0; i < 3; i++ {
		out := p.Submit(context.Background(), ContactKind, input)
		require.Equal(t, StatusAccepted, out.Status)
		assert.Equal(t, "Contact form submitted successfully", out.Message)
		assert.Equal(t, "Hello there", out.Record.Get("comment"))
	}

	assert.Equal(t, 3, store.count(KeyContact))
	assert.Len(t, rec.SentTo("ada@example.com"), 3)
}

func TestProcessor_InvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		input      map[string]string
		wantFields []string
	}{
		{
			name:       "missing newsletter email",
			kind:       NewsletterKind,
			input:      map[string]string{},
			wantFields: []string{"email"},
		},
		{
			name:       "malformed email",
			kind:       NewsletterKind,
			input:      map[string]string{"email": "not-an-email"},
			wantFields: []string{"email"},
		},
		{
			name:       "blank fields are missing",
			kind:       ContactKind,
			input:      map[string]string{"name": "  ", "phone": "1", "email": "a@x.com", "subject": "s"},
			wantFields: []string{"name", "message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			rec := notify.NewRecorder()
			p := newTestProcessor(t, store, rec)

			out := p.Submit(context.Background(), tt.kind, tt.input)
			assert.Equal(t, StatusInvalid, out.Status)
			assert.Equal(t, http.StatusBadRequest, out.Code)

			ve, ok := IsValidation(out.Err)
			require.True(t, ok)
			assert.Equal(t, tt.wantFields, ve.Fields)
			assert.Zero(t, store.count(tt.kind.Key))
			assert.Empty(t, rec.Sent())
		})
	}
}

func TestProcessor_TrimsValues(t *testing.T) {
	store := newMemStore()
	p := newTestProcessor(t, store, notify.NewRecorder())

	out := p.Submit(context.Background(), NewsletterKind, map[string]string{"email": "  ada@example.com "})
	require.Equal(t, StatusAccepted, out.Status)
	assert.Equal(t, "ada@example.com", out.Record.Get("email"))
}

func TestProcessor_RenderFailureStoresNothing(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	p := NewProcessor(store, rec, failingRenderer{})

	out := p.Submit(context.Background(), NewsletterKind, map[string]string{"email": "a@x.com"})
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, http.StatusInternalServerError, out.Code)
	assert.Equal(t, "Error subscribing to newsletter", out.Message)
	assert.Zero(t, store.count(KeyNewsletter))
	assert.Empty(t, rec.Sent())
}

func TestProcessor_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.fail[KeyContact] = errors.New("dial tcp: connection refused")
	rec := notify.NewRecorder()
	p := newTestProcessor(t, store, rec)

	out := p.Submit(context.Background(), ContactKind, map[string]string{
		"name": "Ada", "phone": "1", "email": "a@x.com", "subject": "s", "message": "m",
	})
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "Error submitting contact form", out.Message)
	assert.Contains(t, out.Err.Error(), "connection refused")
	assert.Nil(t, out.Record)
	assert.Empty(t, rec.Sent())
}

func TestProcessor_DispatchFailureKeepsRecord(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	rec.FailWith(func(notify.Message) error { return errors.New("relay unavailable") })
	p := newTestProcessor(t, store, rec)

	out := p.Submit(context.Background(), NewsletterKind, map[string]string{"email": "a@x.com"})
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, http.StatusInternalServerError, out.Code)
	assert.ErrorIs(t, out.Err, notify.ErrDispatch)
	require.NotNil(t, out.Record)
	assert.Equal(t, 1, store.count(KeyNewsletter))

	again := p.Submit(context.Background(), NewsletterKind, map[string]string{"email": "a@x.com"})
	assert.Equal(t, StatusConflict, again.Status, "the persisted record still blocks a retry")
}

func TestProcessor_InlineTicketImage(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	img := notify.Attachment{Name: "ticket-qr.png", ContentType: "image/png", Data: []byte("png")}
	p := newTestProcessor(t, store, rec, WithInline(KeyRegistration, img))

	out := p.Submit(context.Background(), RegistrationKind, registrationInput("ada@example.com"))
	require.Equal(t, StatusAccepted, out.Status)

	sent := rec.Sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Inline, 1)
	assert.Equal(t, "ticket-qr.png", sent[0].Inline[0].Name)
	assert.Contains(t, sent[0].HTMLBody, "cid:ticket-qr.png")
}

func TestProcessor_OpsCopy(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	limiter := notify.NewLimiter(2, time.Second)
	p := newTestProcessor(t, store, rec, WithOpsCopy([]string{"ops@sic.africa"}, limiter))

	out := p.Submit(context.Background(), NewsletterKind, map[string]string{"email": "a@x.com"})
	require.Equal(t, StatusAccepted, out.Status)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, limiter.WaitForDrain(ctx))

	ops := rec.SentTo("ops@sic.africa")
	require.Len(t, ops, 1)
	assert.Equal(t, "New submission: Newsletter Subscribers", ops[0].Subject)
	assert.Contains(t, ops[0].HTMLBody, "a@x.com")
	assert.Contains(t, ops[0].HTMLBody, out.Record.ID)
}

func TestProcessor_OpsCopyFailureIgnored(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	rec.FailWith(func(m notify.Message) error {
		if m.To[0] == "ops@sic.africa" {
			return errors.New("mailbox full")
		}
		return nil
	})
	limiter := notify.NewLimiter(1, time.Second)
	p := newTestProcessor(t, store, rec, WithOpsCopy([]string{"ops@sic.africa"}, limiter))

	out := p.Submit(context.Background(), NewsletterKind, map[string]string{"email": "a@x.com"})
	assert.Equal(t, StatusAccepted, out.Status)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, limiter.WaitForDrain(ctx))
	assert.Len(t, rec.SentTo("a@x.com"), 1)
	assert.Empty(t, rec.SentTo("ops@sic.africa"))
}

func TestProcessor_ConcurrentDuplicates(t *testing.T) {
	store := newMemStore()
	rec := notify.NewRecorder()
	p := newTestProcessor(t, store, rec)

	const n = 20
	var wg sync.WaitGroup
	results := make(chan Status, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- p.Submit(context.Background(), NewsletterKind, map[string]string{"email": "race@example.com"}).Status
		}()
	}
	wg.Wait()
	close(results)

	var accepted, conflicts int
	for s := range results {
		switch s {
		case StatusAccepted:
			accepted++
		case StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, store.count(KeyNewsletter))
	assert.Len(t, rec.Sent(), 1)
}

func TestNewTicketID(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := NewTicketID()
		if len(id) < 8 || len(id) > 16 {
			t.Fatalf("NewTicketID() = %q, want 8-16 digits", id)
		}
		if strings.Trim(id, "0123456789") != "" {
			t.Fatalf("NewTicketID() = %q contains non-digits", id)
		}
	}
}
