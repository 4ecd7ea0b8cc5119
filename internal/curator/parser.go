package curator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// ParseReport parses a curator completion into a CurationReport, tolerating
// the same sloppiness the teacher's response parser tolerates: Markdown
// code fences around the JSON object and a leading explanatory line before
// it (SPEC_FULL §4.3.1). It returns an error if no valid JSON object can be
// recovered, so the caller can apply the §7 UpstreamError degrade path.
func ParseReport(raw string) (types.CurationReport, error) {
	candidate := stripCodeFence(raw)
	candidate = firstJSONObject(candidate)
	if candidate == "" {
		return types.CurationReport{}, fmt.Errorf("curator: no JSON object found in completion")
	}

	var report types.CurationReport
	if err := json.Unmarshal([]byte(candidate), &report); err != nil {
		return types.CurationReport{}, fmt.Errorf("curator: parsing completion: %w", err)
	}
	return report, nil
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence,
// if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// firstJSONObject returns the substring from the first '{' to its matching
// '}', tolerating a leading explanatory line before the JSON begins.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't count
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
