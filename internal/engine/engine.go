package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/attune-labs/attune/internal/classify"
	"github.com/attune-labs/attune/internal/domain"
	"github.com/attune-labs/attune/internal/engine/checkpoint"
	"github.com/attune-labs/attune/internal/llm"
)

// Engine is the navigation decision engine. It is the sole writer of session
// state: all mutation happens inside one Decide call per turn.
type Engine struct {
	gen llm.Generator
	seq *checkpoint.Sequence
	log *slog.Logger
}

// New creates an engine. steps configures the checkpoint sub-sequence length.
func New(gen llm.Generator, steps int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if gen == nil {
		gen = llm.Disabled{}
	}
	return &Engine{
		gen: gen,
		seq: checkpoint.New(steps),
		log: logger,
	}
}

// Decide processes one turn: updates completion criteria and counters,
// evaluates the rule-override ladder, falls back to the generative service
// when no rule fires, and appends the exchange. It never fails: every
// collaborator error degrades to a deterministic local decision.
func (e *Engine) Decide(ctx context.Context, raw string, cls classify.Classification, st *domain.SessionState) domain.NavigationDecision {
	text := cls.Corrected
	if text == "" {
		text = raw
	}

	tc := &turnContext{
		ctx:   ctx,
		raw:   raw,
		text:  text,
		lower: strings.ToLower(text),
		kind:  answerKind(text),
		cls:   cls,
		st:    st,
	}
	// Crisis input escalates without touching progress: no criteria
	// detection, no advancement, no content capture. The turn only appends
	// to history.
	if !cls.Safety.Crisis {
		st.LastAnswerKind = tc.kind
		updateCompletion(st, cls, text, tc.kind)
		e.maybeAdvance(st)
	}

	var dec domain.NavigationDecision
	fired := ""
	for _, r := range e.ladder() {
		if r.when(tc) {
			dec = r.run(tc)
			fired = r.name
			break
		}
	}
	if fired == "" {
		dec = e.generate(tc)
		fired = "generative"
	}

	e.finalize(tc, &dec)

	e.log.Debug("navigation decision",
		"session_id", st.SessionID,
		"turn", len(st.History),
		"rule", fired,
		"decision", dec.Decision,
		"substate", st.Substate,
		"answer_kind", tc.kind,
		"body_questions", st.BodyQuestionsAsked,
	)
	return dec
}

// maybeAdvance moves the substate forward by at most one step when its
// criteria are complete. Advancement out of ProblemAndBody is rule-driven
// (the nothing-else rule and the body-question cap), not automatic.
func (e *Engine) maybeAdvance(st *domain.SessionState) {
	switch st.Substate {
	case domain.SubstateGoalAndVision:
		if st.CriteriaMetFor(st.Substate) {
			st.AdvanceTo(domain.SubstatePsychoEducation)
		}
	case domain.SubstatePsychoEducation:
		if st.CriteriaMetFor(st.Substate) {
			st.AdvanceTo(domain.SubstateProblemAndBody)
			// Entering body exploration starts the first enquiry cycle.
			st.BodyEnquiryCycles++
		}
	}
}

// runCheckpoint feeds the turn into the nested relaxation sub-sequence.
func (e *Engine) runCheckpoint(tc *turnContext) domain.NavigationDecision {
	st := tc.st
	res := e.seq.Advance(st.Checkpoint, tc.text)

	if res.Completed {
		st.AdvanceTo(domain.SubstateComplete)
		tc.advanced = true
		dec := tc.override(domain.DecisionCloseSession, domain.SituationClosing,
			res.Prompt, "checkpoint sequence complete")
		dec.ReadyForNext = true
		return dec
	}

	reason := "checkpoint step"
	if res.Kind == checkpoint.ReplyTense {
		reason = "resistance normalized, repeating step"
	}
	return tc.override(domain.DecisionAlphaStep, domain.SituationRelaxation, res.Prompt, reason)
}

// generate delegates to the generative collaborator. A single attempt; any
// failure or malformed response degrades silently to the canonical decision
// for the current substate.
func (e *Engine) generate(tc *turnContext) domain.NavigationDecision {
	st := tc.st

	var recent []llm.ExchangeContext
	for _, ex := range st.RecentExchanges(3) {
		recent = append(recent, llm.ExchangeContext{Input: ex.Input, Output: ex.Output})
	}
	pc := llm.PromptContext{
		Stage:      st.Stage,
		Substate:   st.Substate,
		Completion: st.Completion,
		Recent:     recent,
		UserText:   tc.text,
	}

	var dec domain.NavigationDecision
	fields, err := e.gen.GenerateDecision(tc.ctx, pc)
	if err != nil {
		e.log.Warn("generative call failed, using local default",
			"session_id", st.SessionID, "substate", st.Substate, "error", err)
		d, sit := llm.Canonical(st.Substate)
		dec = domain.NavigationDecision{
			Decision:      d,
			SituationType: sit,
			RetrievalTag:  string(sit),
			Reasoning:     "local default for " + string(st.Substate),
			FallbackUsed:  true,
		}
	} else {
		var fellBack bool
		dec, fellBack = llm.Normalize(fields, st.Substate)
		dec.FallbackUsed = fellBack
	}

	if dec.Prompt == "" || e.repeatsRecentQuestion(st, dec.Prompt) {
		dec.Prompt = e.canonicalPrompt(st)
	}
	if dec.Decision == domain.DecisionDeepenBody {
		tc.countsBodyQuestion = tc.kind != domain.AnswerBodyLocation &&
			tc.kind != domain.AnswerSensationQuality
	}
	return dec
}

// repeatsRecentQuestion reports whether any question in the prompt was asked
// within the repeat window.
func (e *Engine) repeatsRecentQuestion(st *domain.SessionState, prompt string) bool {
	for _, q := range ExtractQuestions(prompt) {
		if st.QuestionAskedWithin(NormalizeQuestion(q), domain.RepeatWindowTurns) {
			return true
		}
	}
	return false
}

// canonicalPrompt selects the default next utterance for the substate from
// the varied pools.
func (e *Engine) canonicalPrompt(st *domain.SessionState) string {
	switch st.Substate {
	case domain.SubstateGoalAndVision:
		if !st.Completion.GoalStated {
			return pickPrompt(st, clarifyGoalPool)
		}
		return pickPrompt(st, buildVisionPool)
	case domain.SubstatePsychoEducation:
		return pickPrompt(st, explainPatternPool)
	case domain.SubstateProblemAndBody:
		if st.Completion.BodyLocation == "" {
			return pickPrompt(st, bodyLocationPool)
		}
		if st.Completion.SensationQuality == "" {
			return pickPrompt(st, bodyQualityPool)
		}
		return pickPrompt(st, anythingElsePool)
	case domain.SubstateReadinessAssessment:
		return pickPrompt(st, assessReadinessPool)
	case domain.SubstateAlphaPermission:
		return pickPrompt(st, permissionPool)
	case domain.SubstateAlphaSequence:
		step := 1
		if st.Checkpoint != nil {
			step = st.Checkpoint.Step
		}
		return e.seq.InstructionFor(step)
	default:
		return closePrompt
	}
}

// finalize applies the per-turn bookkeeping that every decision shares:
// counters, question memory, blocked-by reporting, and the history append.
// This is the last mutation of the turn.
func (e *Engine) finalize(tc *turnContext, dec *domain.NavigationDecision) {
	st := tc.st

	if st.Substate == domain.SubstateProblemAndBody && isAnythingElseProbe(dec.Prompt) {
		st.AnythingElseAsked++
		// An anything-else probe in body exploration is a body-awareness
		// question for counting purposes.
		tc.countsBodyQuestion = true
	}
	if tc.countsBodyQuestion {
		st.BodyQuestionsAsked++
	}

	for _, q := range ExtractQuestions(dec.Prompt) {
		st.RecordQuestion(NormalizeQuestion(q))
	}

	if tc.advanced {
		dec.ReadyForNext = true
	} else if len(dec.BlockedBy) == 0 {
		dec.BlockedBy = unmetCriteria(st)
	}

	st.RecordExchange(tc.raw, dec.Prompt, dec.Decision)
}

// unmetCriteria names the criteria still blocking advancement out of the
// current substate.
func unmetCriteria(st *domain.SessionState) []string {
	var blocked []string
	c := st.Completion
	switch st.Substate {
	case domain.SubstateGoalAndVision:
		if !c.GoalStated {
			blocked = append(blocked, "goalStated")
		}
		if !c.VisionAccepted {
			blocked = append(blocked, "visionAccepted")
		}
	case domain.SubstatePsychoEducation:
		if !c.PatternUnderstood {
			blocked = append(blocked, "patternUnderstood")
		}
	case domain.SubstateProblemAndBody:
		if !c.ProblemIdentified {
			blocked = append(blocked, "problemIdentified")
		}
		if !c.BodyAwarenessPresent {
			blocked = append(blocked, "bodyAwarenessPresent")
		}
	case domain.SubstateReadinessAssessment:
		if !c.ReadyForNextStage {
			blocked = append(blocked, "readyForNextStage")
		}
	}
	return blocked
}
