package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/intake/internal/core"
)

// handleSubmit returns the handler for one submission kind.
func (s *Server) handleSubmit(kindKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := core.Lookup(kindKey)
		if !ok {
			respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownCollection, kindKey), http.StatusInternalServerError, "")
			return
		}

		input, err := decodeSubmission(r)
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			respondError(w, r, err, status, "Invalid request body")
			return
		}

		out := s.submitter.Submit(r.Context(), kind, input)

		env := envelope{Message: out.Message}
		switch out.Status {
		case core.StatusInvalid:
			if ve, ok := core.IsValidation(out.Err); ok {
				env.Fields = ve.Fields
			}
			env.Code = core.MapError(out.Err).Code
		case core.StatusFailed:
			env.Code = core.MapError(out.Err).Code
			if out.Err != nil {
				env.Error = out.Err.Error()
			}
		}
		writeEnvelope(w, out.Code, env)
	}
}

// decodeSubmission reads a JSON object or an urlencoded form into a flat
// field map. Non-string JSON scalars are formatted as text.
func decodeSubmission(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		input := make(map[string]string, len(raw))
		for k, v := range raw {
			input[k] = stringify(v)
		}
		return input, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form body: %w", err)
	}
	input := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		input[k] = r.PostForm.Get(k)
	}
	return input, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
