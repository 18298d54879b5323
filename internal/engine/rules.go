package engine

import (
	"context"
	"strings"

	"github.com/attune-labs/attune/internal/classify"
	"github.com/attune-labs/attune/internal/domain"
)

// turnContext carries one turn through the rule ladder.
type turnContext struct {
	ctx   context.Context
	raw   string
	text  string
	lower string
	kind  domain.AnswerKind
	cls   classify.Classification
	st    *domain.SessionState

	// Set by whichever rule produces the decision.
	countsBodyQuestion bool
	advanced           bool
}

// rule is one rung of the override ladder: a named predicate and its action.
// The ladder is evaluated in order with early return, which keeps every rung
// independently testable.
type rule struct {
	name string
	when func(*turnContext) bool
	run  func(*turnContext) domain.NavigationDecision
}

func (tc *turnContext) override(d domain.DecisionType, sit domain.SituationType, prompt, reasoning string) domain.NavigationDecision {
	return domain.NavigationDecision{
		Decision:            d,
		SituationType:       sit,
		RetrievalTag:        string(sit),
		Prompt:              prompt,
		Reasoning:           reasoning,
		RuleOverrideApplied: true,
	}
}

// inBodyExploration reports whether body questions are currently permitted.
func inBodyExploration(st *domain.SessionState) bool {
	return st.Substate == domain.SubstatePsychoEducation ||
		st.Substate == domain.SubstateProblemAndBody
}

// isAnythingElseProbe reports whether an utterance is an "anything else"
// style probe. The match is deliberately narrow so that a question merely
// containing the word "else" is not miscounted.
func isAnythingElseProbe(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "anything else") || strings.Contains(lower, "what else")
}

// lastOutputProbedForMore reports whether the previous assistant turn was an
// anything-else probe.
func lastOutputProbedForMore(st *domain.SessionState) bool {
	last := st.LastExchange()
	return last != nil && isAnythingElseProbe(last.Output)
}

// ladder returns the priority-ordered rule set. First match wins; the final
// rung always matches and delegates to the generative fallback.
func (e *Engine) ladder() []rule {
	return []rule{
		{
			// Crisis language short-circuits everything, never advances
			// state, and never falls through.
			name: "safety",
			when: func(tc *turnContext) bool { return tc.cls.Safety.Crisis },
			run: func(tc *turnContext) domain.NavigationDecision {
				return tc.override(domain.DecisionSafetyEscalate, domain.SituationSafety,
					safetyPrompt, "crisis indicator present")
			},
		},
		{
			name: "checkpoint",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateAlphaSequence && tc.st.Checkpoint != nil
			},
			run: e.runCheckpoint,
		},
		{
			// Past-tense drift is checked before thinking-mode.
			name: "redirect_past",
			when: func(tc *turnContext) bool {
				return tc.st.Stage == domain.StageCoaching && tc.cls.Safety.PastTense
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				return tc.override(domain.DecisionRedirectPresent, domain.SituationRedirect,
					pickPrompt(tc.st, redirectPresentPool), "past-tense indicator")
			},
		},
		{
			name: "redirect_thinking",
			when: func(tc *turnContext) bool {
				return tc.st.Stage == domain.StageCoaching && tc.cls.Safety.ThinkingMode
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				return tc.override(domain.DecisionRedirectFeeling, domain.SituationRedirect,
					pickPrompt(tc.st, redirectFeelingPool), "thinking-mode indicator")
			},
		},
		{
			// "I don't know" gets a menu of generic positive outcome states
			// tagged with the topic context.
			name: "uncertainty",
			when: func(tc *turnContext) bool {
				return tc.st.Stage == domain.StageCoaching &&
					(tc.cls.Safety.Uncertain || tc.kind == domain.AnswerConfusion)
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				topic := "feelings"
				switch tc.st.Substate {
				case domain.SubstateGoalAndVision:
					topic = "goal"
				case domain.SubstateProblemAndBody:
					topic = "body"
				}
				dec := tc.override(domain.DecisionOfferMenu, domain.SituationUncertain,
					menuByTopic[topic], "uncertain input, offering menu")
				dec.RetrievalTag = "menu_" + topic
				return dec
			},
		},
		{
			// Hard cap: the third body question is the last one. The forced
			// transition asks a varied present-moment question instead.
			name: "body_question_cap",
			when: func(tc *turnContext) bool {
				return inBodyExploration(tc.st) &&
					tc.st.BodyQuestionsAsked >= domain.MaxBodyQuestions
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				tc.st.AdvanceTo(domain.SubstateReadinessAssessment)
				tc.advanced = true
				return tc.override(domain.DecisionAssessReadiness, domain.SituationReadiness,
					pickPrompt(tc.st, presentMomentPool), "body question cap reached")
			},
		},
		{
			// 4a: early turns without a stated goal keep clarifying the goal.
			name: "clarify_goal",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateGoalAndVision &&
					!tc.st.Completion.GoalStated && tc.st.Turn() <= 4
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				return tc.override(domain.DecisionClarifyGoal, domain.SituationOpening,
					pickPrompt(tc.st, clarifyGoalPool), "no goal stated yet")
			},
		},
		{
			// 4b: a stated goal without an accepted vision always builds the
			// vision next, even when the user raises a problem.
			name: "build_vision",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateGoalAndVision &&
					tc.st.Completion.GoalStated && !tc.st.Completion.VisionAccepted
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				return tc.override(domain.DecisionBuildVision, domain.SituationVision,
					pickPrompt(tc.st, buildVisionPool), "goal stated, vision pending")
			},
		},
		{
			// 4c: the problem question is asked at most once, and never while
			// the user is mid body-detail disclosure.
			name: "explore_problem",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateProblemAndBody &&
					!tc.st.Completion.ProblemIdentified &&
					tc.kind != domain.AnswerBodyLocation &&
					tc.kind != domain.AnswerSensationQuality &&
					tc.st.DecisionCount(domain.DecisionExploreProblem) == 0 &&
					!tc.st.DecisionAskedWithin(domain.DecisionExploreProblem, domain.ProblemAskCooldown)
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				return tc.override(domain.DecisionExploreProblem, domain.SituationProblem,
					pickPrompt(tc.st, exploreProblemPool), "problem not yet identified")
			},
		},
		{
			// 4d: "nothing else" right after a probe, or an exhausted second
			// enquiry cycle, advances to readiness assessment.
			name: "nothing_else_advance",
			when: func(tc *turnContext) bool {
				if tc.st.Substate != domain.SubstateProblemAndBody {
					return false
				}
				if tc.kind == domain.AnswerNothingMore && lastOutputProbedForMore(tc.st) {
					return true
				}
				last := tc.st.LastExchange()
				return tc.st.BodyEnquiryCycles >= domain.MaxBodyEnquiries &&
					last != nil && last.Substate == domain.SubstateProblemAndBody
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				tc.st.AdvanceTo(domain.SubstateReadinessAssessment)
				tc.advanced = true
				return tc.override(domain.DecisionAssessReadiness, domain.SituationReadiness,
					pickPrompt(tc.st, assessReadinessPool), "body exploration complete")
			},
		},
		{
			// Fill the concrete body-detail gaps deterministically; the
			// free-form remainder of this substate is generative.
			name: "body_detail_gap",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateProblemAndBody &&
					(tc.st.Completion.BodyLocation == "" || tc.st.Completion.SensationQuality == "")
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				pool := bodyLocationPool
				if tc.st.Completion.BodyLocation != "" {
					pool = bodyQualityPool
				}
				tc.countsBodyQuestion = tc.kind != domain.AnswerBodyLocation &&
					tc.kind != domain.AnswerSensationQuality
				return tc.override(domain.DecisionDeepenBody, domain.SituationBody,
					pickPrompt(tc.st, pool), "body detail missing")
			},
		},
		{
			// 4e plus the one sanctioned re-entry: a genuinely new stressor
			// during readiness opens a bounded second body-enquiry cycle.
			name: "readiness",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateReadinessAssessment
			},
			run: e.runReadiness,
		},
		{
			name: "alpha_permission",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateAlphaPermission
			},
			run: e.runAlphaPermission,
		},
		{
			name: "closed",
			when: func(tc *turnContext) bool {
				return tc.st.Substate == domain.SubstateComplete
			},
			run: func(tc *turnContext) domain.NavigationDecision {
				return tc.override(domain.DecisionCloseSession, domain.SituationClosing,
					closePrompt, "session complete")
			},
		},
	}
}

func (e *Engine) runReadiness(tc *turnContext) domain.NavigationDecision {
	st := tc.st

	if fresh := newStressors(st, tc.lower); len(fresh) > 0 &&
		st.BodyEnquiryCycles < domain.MaxBodyEnquiries {
		for _, w := range fresh {
			st.CoverStressor(w)
		}
		st.ReenterBodyEnquiry()
		tc.countsBodyQuestion = tc.kind != domain.AnswerBodyLocation &&
			tc.kind != domain.AnswerSensationQuality
		dec := tc.override(domain.DecisionDeepenBody, domain.SituationBody,
			pickPrompt(st, bodyLocationPool), "new stressor during readiness, second enquiry cycle")
		return dec
	}

	affirmative := tc.kind == domain.AnswerAffirmation ||
		tc.cls.EmotionalState == classify.EmotionCalm
	if affirmative {
		if !st.HowDoYouKnowAsked {
			st.HowDoYouKnowAsked = true
			return tc.override(domain.DecisionAssessReadiness, domain.SituationReadiness,
				howDoYouKnowPrompt, "probing felt sense of readiness")
		}
		st.Completion.ReadyForNextStage = true
		st.AdvanceTo(domain.SubstateAlphaPermission)
		tc.advanced = true
		dec := tc.override(domain.DecisionAskPermission, domain.SituationRelaxation,
			pickPrompt(st, permissionPool), "readiness confirmed")
		dec.ReadyForNext = true
		return dec
	}

	return tc.override(domain.DecisionAssessReadiness, domain.SituationReadiness,
		pickPrompt(st, assessReadinessPool), "assessing readiness")
}

func (e *Engine) runAlphaPermission(tc *turnContext) domain.NavigationDecision {
	st := tc.st

	if tc.kind == domain.AnswerAffirmation {
		st.AdvanceTo(domain.SubstateAlphaSequence)
		st.Checkpoint = e.seq.Start()
		tc.advanced = true
		dec := tc.override(domain.DecisionAlphaStep, domain.SituationRelaxation,
			e.seq.InstructionFor(1), "permission granted, starting sequence")
		dec.ReadyForNext = true
		return dec
	}

	return tc.override(domain.DecisionAskPermission, domain.SituationRelaxation,
		pickPrompt(st, permissionPool), "permission not yet given")
}
