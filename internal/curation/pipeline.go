// Package curation implements the C6 pipeline: turning one conversation
// turn into admitted, stored memories via the C2 curator collaborator and
// the C5 memory engine (spec §4.3).
package curation

import (
	"context"
	"strings"

	"github.com/Foundation42/entrained.ai-engram/internal/curator"
	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// Admission thresholds (spec §4.3 step 2).
const (
	maxEphemerality = 0.8
	minConfidence   = 0.3
	minContextual   = 0.2
)

// Request is the curation pipeline's input for one conversation turn (spec
// §4.3).
type Request struct {
	UserInput           string
	AgentResponse       string
	ConversationContext []string

	// WitnessedBy and SituationType/ID place any stored memories in the
	// right multi-entity scope; curation always stores via store_multi
	// since a curated turn is, by construction, witnessed by at least the
	// user and the agent.
	WitnessedBy   []string
	SituationID   string
	SituationType types.SituationType

	// ForceStorage bypasses the curator call and the admission rule,
	// storing exactly one memory composed of user_input + "\n" +
	// agent_response (spec §4.3 "Force-store override").
	ForceStorage bool

	// AnalyzeOnly runs curation and the admission rule but skips embedding
	// and storage, returning only the decision report (spec §4.3
	// "Analyse-only mode").
	AnalyzeOnly bool
}

// Result is the curation pipeline's output: every observation's decision
// (admitted or not, and why), plus the IDs actually stored.
type Result struct {
	Decisions       []types.ObservationDecision
	StoredMemoryIDs []string
}

// Pipeline wires the C2 curator and C5 engine collaborators behind the C6
// operation (spec §4.3).
type Pipeline struct {
	Curator  curator.Client
	Prompt   curator.Template
	Engine   *engine.Engine
	Embedder embedder.Client
}

// New constructs a Pipeline.
func New(c curator.Client, prompt curator.Template, eng *engine.Engine, emb embedder.Client) *Pipeline {
	return &Pipeline{Curator: c, Prompt: prompt, Engine: eng, Embedder: emb}
}

// Curate runs the curation pipeline for one turn (spec §4.3, steps 1-5).
func (p *Pipeline) Curate(ctx context.Context, req Request) (*Result, error) {
	if req.ForceStorage {
		return p.forceStore(ctx, req)
	}

	report, err := p.callCurator(ctx, req)
	if err != nil {
		report = degradeReport(req)
	}

	decisions := make([]types.ObservationDecision, 0, len(report.Observations))
	for _, obs := range report.Observations {
		decisions = append(decisions, decide(obs))
	}

	result := &Result{Decisions: decisions}
	if req.AnalyzeOnly {
		return result, nil
	}

	for i := range decisions {
		if !decisions[i].Admitted {
			continue
		}
		memoryID, err := p.store(ctx, req, decisions[i])
		if err != nil {
			return result, err
		}
		decisions[i].MemoryID = memoryID
		result.StoredMemoryIDs = append(result.StoredMemoryIDs, memoryID)
	}
	return result, nil
}

// callCurator builds the prompt, calls C2, and parses its reply (spec §4.3
// step 1).
func (p *Pipeline) callCurator(ctx context.Context, req Request) (types.CurationReport, error) {
	prompt := p.Prompt.Build(req.UserInput, req.AgentResponse, req.ConversationContext)
	raw, err := p.Curator.Complete(ctx, prompt)
	if err != nil {
		return types.CurationReport{}, engramerr.Upstream("curator call failed", err)
	}
	report, err := curator.ParseReport(raw)
	if err != nil {
		return types.CurationReport{}, engramerr.Upstream("curator reply did not parse", err)
	}
	return report, nil
}

// degradeReport implements the curator-failure fallback (spec §7, SPEC_FULL
// §4.3.1): a single context memory, confidence 0.3, requires_review=true.
func degradeReport(req Request) types.CurationReport {
	return types.CurationReport{
		ShouldStore: true,
		Observations: []types.Observation{{
			MemoryType:        types.MemoryTypeConversation,
			Content:           strings.TrimSpace(req.UserInput + "\n" + req.AgentResponse),
			ConfidenceScore:   0.3,
			EphemeralityScore: 0.5,
			ContextualValue:   0.5,
			PrivacyLevel:      types.PrivacyParticipantsOnly,
			StorageType:       types.StorageContext,
			RequiresReview:    true,
			Rationale:         "curator unavailable or returned an unparseable reply; stored as a conservative fallback",
		}},
		OverallReasoning: "curator degrade path",
	}
}

// decide applies the admission rule (spec §4.3 step 2) and the
// retention-policy mapping (step 3) to one observation.
func decide(obs types.Observation) types.ObservationDecision {
	if obs.EphemeralityScore > maxEphemerality {
		return types.ObservationDecision{Observation: obs, Admitted: false, RejectionReason: "ephemerality_score exceeds threshold"}
	}
	if obs.ConfidenceScore < minConfidence {
		return types.ObservationDecision{Observation: obs, Admitted: false, RejectionReason: "confidence_score below threshold"}
	}
	if obs.ContextualValue < minContextual {
		return types.ObservationDecision{Observation: obs, Admitted: false, RejectionReason: "contextual_value below threshold"}
	}

	decision := types.ObservationDecision{Observation: obs, Admitted: true}
	if policy, ok := types.RetentionPolicyFor(obs.StorageType); ok {
		decision.RetentionPolicy = policy
		if ttl, hasTTL := types.DefaultTTLSeconds(policy); hasTTL {
			decision.TTLSeconds = ttl
		}
	}
	return decision
}

// store embeds and stores one admitted observation via C5 (spec §4.3 step 4).
func (p *Pipeline) store(ctx context.Context, req Request, decision types.ObservationDecision) (string, error) {
	vector, err := p.Embedder.Embed(ctx, decision.Observation.Content)
	if err != nil {
		return "", engramerr.Upstream("embedding admitted observation failed", err)
	}

	result, err := p.Engine.StoreMulti(ctx, engine.StoreMultiRequest{
		WitnessedBy:   req.WitnessedBy,
		SituationType: req.SituationType,
		SituationID:   req.SituationID,
		Content:       types.Content{Text: decision.Observation.Content},
		PrimaryVector: vector,
		PrivacyLevel:  decision.Observation.PrivacyLevel,
		Metadata: types.Metadata{
			MemoryType: decision.Observation.MemoryType,
			Confidence: decision.Observation.ConfidenceScore,
			Importance: decision.Observation.ContextualValue,
		},
		Retention: types.Retention{TTLSeconds: decision.TTLSeconds},
	})
	if err != nil {
		return "", err
	}
	return result.MemoryID, nil
}

// forceStore implements spec §4.3 "Force-store override": bypass curation
// and the admission rule, storing exactly one memory.
func (p *Pipeline) forceStore(ctx context.Context, req Request) (*Result, error) {
	content := strings.TrimSpace(req.UserInput + "\n" + req.AgentResponse)
	obs := types.Observation{
		MemoryType:      types.MemoryTypeConversation,
		Content:         content,
		ConfidenceScore: 1.0,
		ContextualValue: 1.0,
		PrivacyLevel:    types.PrivacyParticipantsOnly,
		StorageType:     types.StorageContext,
		Rationale:       "force_storage override",
	}
	decision := types.ObservationDecision{Observation: obs, Admitted: true}
	if policy, ok := types.RetentionPolicyFor(obs.StorageType); ok {
		decision.RetentionPolicy = policy
		if ttl, hasTTL := types.DefaultTTLSeconds(policy); hasTTL {
			decision.TTLSeconds = ttl
		}
	}

	result := &Result{Decisions: []types.ObservationDecision{decision}}
	if req.AnalyzeOnly {
		return result, nil
	}

	memoryID, err := p.store(ctx, req, decision)
	if err != nil {
		return result, err
	}
	result.Decisions[0].MemoryID = memoryID
	result.StoredMemoryIDs = []string{memoryID}
	return result, nil
}
