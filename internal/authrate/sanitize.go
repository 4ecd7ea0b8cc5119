package authrate

import (
	"regexp"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

// Default byte ceilings (spec §4.6).
const (
	DefaultCommentMaxBytes = 10_000
	DefaultRequestMaxBytes = 1 << 20
)

// suspiciousPattern matches the injection-style markers spec §4.6 requires
// comment-like text fields to reject: <script, javascript:, vbscript:, and
// on<event>= handlers, all case-insensitive.
var suspiciousPattern = regexp.MustCompile(`(?i)<script|javascript:|vbscript:|on\w+\s*=`)

// SanitizeComment rejects text exceeding maxBytes (0 means
// DefaultCommentMaxBytes) or containing an injection-style marker.
func SanitizeComment(text string, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultCommentMaxBytes
	}
	if len(text) > maxBytes {
		return engramerr.Invalid("comment exceeds maximum size", "content")
	}
	if suspiciousPattern.MatchString(text) {
		return engramerr.Invalid("comment contains disallowed markup", "content")
	}
	return nil
}

// SanitizeRequestBody rejects a raw request body exceeding maxBytes (0
// means DefaultRequestMaxBytes).
func SanitizeRequestBody(body []byte, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultRequestMaxBytes
	}
	if len(body) > maxBytes {
		return engramerr.Invalid("request body exceeds maximum size", "body")
	}
	return nil
}
