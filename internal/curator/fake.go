package curator

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// Fake is a deterministic curation collaborator for tests and offline
// development (spec §9, "tests wire them to deterministic fakes"). It does
// not call any model; it applies a small set of heuristics so the admission
// pipeline has something non-trivial to filter, matching the shape of
// scenario S3 in spec §8.4 (a weather aside scores as highly ephemeral, a
// name/location fact does not).
type Fake struct {
	model string
}

// NewFake constructs a deterministic Fake curator.
func NewFake() *Fake {
	return &Fake{model: "fake-curator-v1"}
}

var ephemeralPhrase = regexp.MustCompile(`(?i)\b(raining|sunny|weather|right now|at the moment|currently)\b`)

// Complete implements Client. prompt is expected to be built by Template.Build;
// Fake re-derives the user/agent turn from it rather than requiring a
// separate structured entry point, so it is a drop-in for Client.
func (f *Fake) Complete(_ context.Context, prompt string) (string, error) {
	userInput, agentResponse := extractTurn(prompt)
	report := deriveReport(userInput, agentResponse)
	out, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GetModel implements Client.
func (f *Fake) GetModel() string { return f.model }

func extractTurn(prompt string) (userInput, agentResponse string) {
	lines := strings.Split(prompt, "\n")
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "User: "):
			userInput = strings.TrimPrefix(line, "User: ")
		case strings.HasPrefix(line, "Agent: "):
			agentResponse = strings.TrimPrefix(line, "Agent: ")
		}
	}
	return userInput, agentResponse
}

// deriveReport splits userInput into clauses and scores each heuristically.
// Clauses mentioning transient conditions (weather, "right now") score high
// ephemerality and low contextual value; everything else is treated as a
// durable fact with low ephemerality.
func deriveReport(userInput, agentResponse string) types.CurationReport {
	clauses := splitClauses(userInput)
	observations := make([]types.Observation, 0, len(clauses))
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if ephemeralPhrase.MatchString(clause) {
			observations = append(observations, types.Observation{
				MemoryType:        types.MemoryTypeEvent,
				Content:           clause,
				ConfidenceScore:   0.6,
				EphemeralityScore: 0.95,
				ContextualValue:   0.15,
				PrivacyLevel:      types.PrivacyParticipantsOnly,
				StorageType:       types.StorageTemporary,
				Rationale:         "transient condition, unlikely to stay relevant",
			})
			continue
		}
		observations = append(observations, types.Observation{
			MemoryType:        types.MemoryTypeFact,
			Content:           clause,
			ConfidenceScore:   0.85,
			EphemeralityScore: 0.1,
			ContextualValue:   0.8,
			PrivacyLevel:      types.PrivacyParticipantsOnly,
			StorageType:       types.StorageFacts,
			Rationale:         "durable fact about the user",
		})
	}
	if len(observations) == 0 {
		observations = append(observations, types.Observation{
			MemoryType:        types.MemoryTypeConversation,
			Content:           strings.TrimSpace(userInput + "\n" + agentResponse),
			ConfidenceScore:   0.5,
			EphemeralityScore: 0.5,
			ContextualValue:   0.4,
			PrivacyLevel:      types.PrivacyParticipantsOnly,
			StorageType:       types.StorageContext,
			Rationale:         "no strong signal either way",
		})
	}
	return types.CurationReport{
		Observations:     observations,
		ShouldStore:      true,
		OverallReasoning: "heuristic fake curator: split on sentence boundaries, flag transient-condition phrasing",
	}
}

func splitClauses(text string) []string {
	return regexp.MustCompile(`[.!?]+`).Split(text, -1)
}

var _ Client = (*Fake)(nil)
