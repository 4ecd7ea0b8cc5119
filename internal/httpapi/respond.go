package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

// constantTimeEqual compares two strings without leaking timing
// information, the same discipline authrate.APIKeyCheck applies to the API
// key itself.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// errorBody is the wire shape for every non-2xx response (spec §7,
// "errors carry {error: {code, message, details?}}").
type errorBody struct {
	Error struct {
		Code              string   `json:"code"`
		Message           string   `json:"message"`
		Details           []string `json:"details,omitempty"`
		CorrelationID     string   `json:"correlation_id"`
		RetryAfterSeconds int      `json:"retry_after_seconds,omitempty"`
	} `json:"error"`
}

// writeJSON writes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto the wire per spec §7: engramerr.Error carries
// its own HTTP status and is rendered verbatim (minus Cause, which is never
// serialised — "user-visible message rule"); any other error is treated as
// an opaque internal failure.
func writeError(w http.ResponseWriter, err error) {
	e, ok := engramerr.As(err)
	if !ok {
		e = engramerr.New(engramerr.KindStorageError, "internal error", err)
	}

	var body errorBody
	body.Error.Code = string(e.Kind)
	body.Error.Message = e.Message
	body.Error.Details = e.Details
	body.Error.CorrelationID = e.CorrelationID
	if e.Kind == engramerr.KindRateLimited {
		body.Error.RetryAfterSeconds = e.RetryAfterSeconds
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfterSeconds))
	}
	writeJSON(w, e.HTTPStatus(), body)
}

// decodeJSON parses r's body into v, reporting a KindInvalidRequest error
// (never a raw decode error) on failure.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return engramerr.Invalid("request body is not valid JSON for this endpoint", "body")
	}
	return nil
}
