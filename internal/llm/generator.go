// Package llm provides the generative decision collaborator. The navigation
// engine delegates here only when no hard rule fires, and every call has a
// deterministic local default, so a failing or misbehaving model can never
// stall a conversation.
package llm

import (
	"context"
	"errors"

	"github.com/attune-labs/attune/internal/domain"
)

// ErrGeneratorDisabled is returned by the Disabled generator.
var ErrGeneratorDisabled = errors.New("generative service disabled")

// ExchangeContext is one prior turn handed to the model.
type ExchangeContext struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// PromptContext is the structured context for one generative call: current
// position in the sequence, the completion snapshot, and the last exchanges.
type PromptContext struct {
	Stage      domain.Stage      `json:"stage"`
	Substate   domain.Substate   `json:"substate"`
	Completion domain.Completion `json:"completion"`
	Recent     []ExchangeContext `json:"recent"`
	UserText   string            `json:"user_text"`
}

// Fields are the decision fields a generative call may propose. Any field may
// come back empty or malformed; Normalize fills canonical values before use.
type Fields struct {
	Decision      string `json:"decision"`
	SituationType string `json:"situation_type"`
	RetrievalTag  string `json:"retrieval_tag"`
	Prompt        string `json:"prompt"`
	Reasoning     string `json:"reasoning"`
	ReadyForNext  bool   `json:"ready_for_next"`
}

// Generator produces decision fields from a prompt context. A single attempt,
// no internal retries: the caller owns the fallback.
type Generator interface {
	GenerateDecision(ctx context.Context, pc PromptContext) (Fields, error)
}

// Disabled is a Generator that always fails, forcing the engine onto its
// local defaults. Used when no API key is configured.
type Disabled struct{}

// GenerateDecision implements Generator.
func (Disabled) GenerateDecision(context.Context, PromptContext) (Fields, error) {
	return Fields{}, ErrGeneratorDisabled
}

// validDecisions is the closed set a model response may select from.
var validDecisions = map[string]domain.DecisionType{
	string(domain.DecisionClarifyGoal):     domain.DecisionClarifyGoal,
	string(domain.DecisionBuildVision):     domain.DecisionBuildVision,
	string(domain.DecisionExplainPattern):  domain.DecisionExplainPattern,
	string(domain.DecisionExploreProblem):  domain.DecisionExploreProblem,
	string(domain.DecisionDeepenBody):      domain.DecisionDeepenBody,
	string(domain.DecisionAssessReadiness): domain.DecisionAssessReadiness,
	string(domain.DecisionOfferMenu):       domain.DecisionOfferMenu,
	string(domain.DecisionAskPermission):   domain.DecisionAskPermission,
}

// Canonical returns the default decision and situation for a substate. This
// is the answer the engine gives when the generative call fails, returns
// garbage, or is disabled.
func Canonical(sub domain.Substate) (domain.DecisionType, domain.SituationType) {
	switch sub {
	case domain.SubstateGoalAndVision:
		return domain.DecisionClarifyGoal, domain.SituationOpening
	case domain.SubstatePsychoEducation:
		return domain.DecisionExplainPattern, domain.SituationOpening
	case domain.SubstateProblemAndBody:
		return domain.DecisionDeepenBody, domain.SituationBody
	case domain.SubstateReadinessAssessment:
		return domain.DecisionAssessReadiness, domain.SituationReadiness
	case domain.SubstateAlphaPermission:
		return domain.DecisionAskPermission, domain.SituationRelaxation
	case domain.SubstateAlphaSequence:
		return domain.DecisionAlphaStep, domain.SituationRelaxation
	default:
		return domain.DecisionCloseSession, domain.SituationClosing
	}
}

// Normalize validates model-proposed fields against the current substate,
// substituting canonical values for anything missing or out of range. The
// result is always schema-complete.
func Normalize(f Fields, sub domain.Substate) (domain.NavigationDecision, bool) {
	canonDecision, canonSituation := Canonical(sub)
	fellBack := false

	decision, ok := validDecisions[f.Decision]
	if !ok {
		decision = canonDecision
		fellBack = true
	}

	situation := domain.SituationType(f.SituationType)
	switch situation {
	case domain.SituationOpening, domain.SituationVision, domain.SituationProblem,
		domain.SituationBody, domain.SituationReadiness, domain.SituationUncertain,
		domain.SituationRedirect, domain.SituationRelaxation, domain.SituationClosing:
	default:
		situation = canonSituation
		fellBack = true
	}

	tag := f.RetrievalTag
	if tag == "" {
		tag = string(situation)
	}

	return domain.NavigationDecision{
		Decision:      decision,
		SituationType: situation,
		RetrievalTag:  tag,
		Prompt:        f.Prompt,
		Reasoning:     f.Reasoning,
		ReadyForNext:  f.ReadyForNext,
	}, fellBack
}
