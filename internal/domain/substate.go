// Package domain defines the session data model for guided coaching conversations.
package domain

// Stage is the coarse phase of a session.
type Stage string

const (
	// StageCoaching covers the conversational substates up to readiness.
	StageCoaching Stage = "coaching"
	// StageAlpha covers the relaxation permission and sequence substates.
	StageAlpha Stage = "alpha"
	// StageClosed marks a finished session.
	StageClosed Stage = "closed"
)

// Substate is one step of the guided conversation sequence.
type Substate string

const (
	SubstateGoalAndVision       Substate = "goal_and_vision"
	SubstatePsychoEducation     Substate = "psycho_education"
	SubstateProblemAndBody      Substate = "problem_and_body"
	SubstateReadinessAssessment Substate = "readiness_assessment"
	SubstateAlphaPermission     Substate = "alpha_permission"
	SubstateAlphaSequence       Substate = "alpha_sequence"
	SubstateComplete            Substate = "complete"
)

// substateOrder is the canonical linear sequence.
var substateOrder = []Substate{
	SubstateGoalAndVision,
	SubstatePsychoEducation,
	SubstateProblemAndBody,
	SubstateReadinessAssessment,
	SubstateAlphaPermission,
	SubstateAlphaSequence,
	SubstateComplete,
}

// Index returns the position of s in the canonical order, or -1 if unknown.
func (s Substate) Index() int {
	for i, sub := range substateOrder {
		if sub == s {
			return i
		}
	}
	return -1
}

// Next returns the successor substate. Complete is its own successor.
func (s Substate) Next() Substate {
	i := s.Index()
	if i < 0 || i+1 >= len(substateOrder) {
		return SubstateComplete
	}
	return substateOrder[i+1]
}

// Before reports whether s precedes other in the canonical order.
func (s Substate) Before(other Substate) bool {
	return s.Index() < other.Index()
}

// AtOrPast reports whether s is other or a later substate.
func (s Substate) AtOrPast(other Substate) bool {
	return s.Index() >= other.Index()
}

// StageFor returns the stage a substate belongs to.
func StageFor(s Substate) Stage {
	switch s {
	case SubstateAlphaPermission, SubstateAlphaSequence:
		return StageAlpha
	case SubstateComplete:
		return StageClosed
	default:
		return StageCoaching
	}
}

// AnswerKind tags the user's most recent contribution.
type AnswerKind string

const (
	AnswerBodyLocation     AnswerKind = "body_location"
	AnswerSensationQuality AnswerKind = "sensation_quality"
	AnswerEmotion          AnswerKind = "emotion"
	AnswerAffirmation      AnswerKind = "affirmation"
	AnswerConfusion        AnswerKind = "confusion"
	AnswerNothingMore      AnswerKind = "nothing_more"
	AnswerGeneral          AnswerKind = "general"
)
