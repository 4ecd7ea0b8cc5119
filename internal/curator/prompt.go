package curator

import (
	"fmt"
	"strings"
)

// defaultPromptTemplate is the compiled-in fallback curator prompt (SPEC_FULL
// §4.3.1). It instructs the model to reply with exactly one JSON object
// matching types.CurationReport, over the storage_type vocabulary of spec
// §6.3.
const defaultPromptTemplate = `You are a memory curator deciding what from this conversation turn is worth
remembering long-term.

User: %s
Agent: %s
%s
Classify each distinct observation worth remembering using one of these
storage types: facts, preferences, context, temporary, skills, relationships.

Reply with exactly one JSON object of this shape and nothing else:
{
  "observations": [
    {
      "memory_type": "fact|preference|event|solution|insight|decision|pattern|conversation",
      "content": "...",
      "confidence_score": 0.0-1.0,
      "ephemerality_score": 0.0-1.0,
      "contextual_value": 0.0-1.0,
      "privacy_level": "personal|participants_only|group|public",
      "storage_type": "facts|preferences|context|temporary|skills|relationships",
      "rationale": "..."
    }
  ],
  "should_store": true,
  "overall_reasoning": "..."
}`

// Template holds an optional caller-supplied override of the curator
// prompt; the zero value uses defaultPromptTemplate.
type Template struct {
	raw string
}

// NewTemplate constructs a Template. An empty raw string falls back to
// defaultPromptTemplate.
func NewTemplate(raw string) Template {
	return Template{raw: raw}
}

// Build interpolates the turn and a short rolling context window into the
// template (SPEC_FULL §4.3.1).
func (t Template) Build(userInput, agentResponse string, contextWindow []string) string {
	tmpl := t.raw
	if tmpl == "" {
		tmpl = defaultPromptTemplate
	}
	var ctxBlock string
	if len(contextWindow) > 0 {
		ctxBlock = "\nRecent context:\n" + strings.Join(contextWindow, "\n") + "\n"
	}
	return fmt.Sprintf(tmpl, userInput, agentResponse, ctxBlock)
}
