package domain

// DecisionType names what the assistant should attempt next.
type DecisionType string

const (
	DecisionClarifyGoal     DecisionType = "clarify_goal"
	DecisionBuildVision     DecisionType = "build_vision"
	DecisionExplainPattern  DecisionType = "explain_pattern"
	DecisionExploreProblem  DecisionType = "explore_problem"
	DecisionDeepenBody      DecisionType = "deepen_body"
	DecisionAssessReadiness DecisionType = "assess_readiness"
	DecisionOfferMenu       DecisionType = "offer_menu"
	DecisionRedirectPresent DecisionType = "redirect_present"
	DecisionRedirectFeeling DecisionType = "redirect_feeling"
	DecisionSafetyEscalate  DecisionType = "safety_escalate"
	DecisionAskPermission   DecisionType = "ask_permission"
	DecisionAlphaStep       DecisionType = "alpha_step"
	DecisionCloseSession    DecisionType = "close_session"
)

// SituationType is a coarse tag of the conversational situation, used by the
// response composer and the example retriever.
type SituationType string

const (
	SituationOpening    SituationType = "opening"
	SituationVision     SituationType = "vision"
	SituationProblem    SituationType = "problem"
	SituationBody       SituationType = "body"
	SituationReadiness  SituationType = "readiness"
	SituationUncertain  SituationType = "uncertain"
	SituationRedirect   SituationType = "redirect"
	SituationSafety     SituationType = "safety"
	SituationRelaxation SituationType = "relaxation"
	SituationClosing    SituationType = "closing"
)

// NavigationDecision is the immutable output of one engine turn.
type NavigationDecision struct {
	Decision      DecisionType  `json:"decision"`
	SituationType SituationType `json:"situation_type"`
	RetrievalTag  string        `json:"retrieval_tag,omitempty"`

	// Prompt is the concrete question or utterance the composer should build
	// on. The engine owns it so repetition limits can be enforced.
	Prompt string `json:"prompt,omitempty"`

	ReadyForNext bool     `json:"ready_for_next"`
	BlockedBy    []string `json:"blocked_by,omitempty"`
	Reasoning    string   `json:"reasoning,omitempty"`

	RuleOverrideApplied bool `json:"rule_override_applied"`
	FallbackUsed        bool `json:"fallback_used"`
}
