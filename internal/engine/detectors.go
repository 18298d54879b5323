package engine

import (
	"strings"

	"github.com/attune-labs/attune/internal/classify"
	"github.com/attune-labs/attune/internal/domain"
)

// updateCompletion runs the per-turn criteria detectors. Each detector is
// idempotent and only ever flips a criterion to true, so the update is
// order-independent and completion stays monotonic.
func updateCompletion(st *domain.SessionState, cls classify.Classification, text string, kind domain.AnswerKind) {
	lower := strings.ToLower(text)
	c := &st.Completion

	detectGoal(st, lower, text)
	detectVision(st, lower, kind)
	detectBodyAwareness(st, lower)
	detectProblem(st, lower, text)

	if containsAny(lower, presentMomentPhrases) {
		c.PresentMomentFocus = true
	}

	detectPatternUnderstood(st, lower, kind)

	// Track which stressors and emotions have been explored, for the
	// readiness-stage re-entry check.
	if st.Substate == domain.SubstateProblemAndBody || st.Substate == domain.SubstatePsychoEducation {
		for _, w := range matchesIn(lower, stressorWords) {
			st.CoverStressor(w)
		}
		for _, w := range matchesIn(lower, emotionWords) {
			st.CoverStressor(w)
		}
	}
}

func detectGoal(st *domain.SessionState, lower, text string) {
	if containsAny(lower, goalPhrases) {
		st.Completion.MarkGoalStated(strings.TrimSpace(text))
	}
}

// detectVision accepts the vision on an explicit affirmation while the goal
// is on the table, or through the implicit-acceptance heuristic.
func detectVision(st *domain.SessionState, lower string, kind domain.AnswerKind) {
	if st.Completion.VisionAccepted || !st.Completion.GoalStated {
		return
	}
	if kind == domain.AnswerAffirmation && !containsAny(lower, rejectionPhrases) {
		st.Completion.VisionAccepted = true
		return
	}
	if ok, _ := implicitAcceptance(st, lower); ok {
		st.Completion.VisionAccepted = true
	}
}

// implicitAcceptance is the documented consent heuristic: after a goal has
// been stated, emotional or body language in at least two of the last three
// user turns (counting the current one) with no explicit rejection is treated
// as acceptance of the vision. Returns the turns that carried the evidence so
// the policy stays auditable. Swap or disable here, not in the rule ladder.
func implicitAcceptance(st *domain.SessionState, currentLower string) (bool, []int) {
	if containsAny(currentLower, rejectionPhrases) {
		return false, nil
	}

	var evidence []int
	if hasEmotionalOrBodyLanguage(currentLower) {
		evidence = append(evidence, st.Turn())
	}
	for _, ex := range st.RecentExchanges(2) {
		exLower := strings.ToLower(ex.Input)
		if containsAny(exLower, rejectionPhrases) {
			return false, nil
		}
		if hasEmotionalOrBodyLanguage(exLower) {
			evidence = append(evidence, ex.Turn)
		}
	}
	return len(evidence) >= 2, evidence
}

func detectBodyAwareness(st *domain.SessionState, lower string) {
	c := &st.Completion
	if loc := firstMatch(lower, bodyLocationWords); loc != "" {
		c.BodyAwarenessPresent = true
		if c.BodyLocation == "" {
			c.BodyLocation = loc
		}
	}
	if q := firstMatch(lower, sensationWords); q != "" {
		c.BodyAwarenessPresent = true
		if c.SensationQuality == "" {
			c.SensationQuality = q
		}
	}
}

// detectProblem applies the two-of-N evidence rule: a stressor keyword and a
// body-reference keyword across the current turn plus the last five, or a
// minimum turn count once both location and sensation are captured.
func detectProblem(st *domain.SessionState, lower, text string) {
	if st.Completion.ProblemIdentified {
		return
	}

	stressor := containsAny(lower, stressorWords)
	bodyRef := containsAny(lower, bodyLocationWords) || containsAny(lower, sensationWords)
	for _, ex := range st.RecentExchanges(5) {
		exLower := strings.ToLower(ex.Input)
		stressor = stressor || containsAny(exLower, stressorWords)
		bodyRef = bodyRef || containsAny(exLower, bodyLocationWords) || containsAny(exLower, sensationWords)
	}

	switch {
	case stressor && bodyRef:
		st.Completion.MarkProblemIdentified(strings.TrimSpace(text))
	case st.Turn() >= 6 && st.Completion.BodyLocation != "" && st.Completion.SensationQuality != "":
		st.Completion.MarkProblemIdentified(st.Completion.BodyLocation + ", " + st.Completion.SensationQuality)
	}
}

// detectPatternUnderstood treats an affirmation, an understanding phrase, a
// fresh problem disclosure, or a substantial reply during psycho-education as
// evidence the explanation landed.
func detectPatternUnderstood(st *domain.SessionState, lower string, kind domain.AnswerKind) {
	if st.Completion.PatternUnderstood || st.Substate != domain.SubstatePsychoEducation {
		return
	}
	switch {
	case kind == domain.AnswerAffirmation,
		containsAny(lower, understandingPhrases),
		containsAny(lower, stressorWords),
		hasEmotionalOrBodyLanguage(lower),
		len(strings.Fields(lower)) >= 12:
		st.Completion.PatternUnderstood = true
	}
}

// newStressors returns stressor or emotion keywords in the turn that have not
// been covered earlier in the session.
func newStressors(st *domain.SessionState, lower string) []string {
	var fresh []string
	for _, w := range matchesIn(lower, stressorWords) {
		if !st.StressorCovered(w) {
			fresh = append(fresh, w)
		}
	}
	for _, w := range matchesIn(lower, emotionWords) {
		if !st.StressorCovered(w) {
			fresh = append(fresh, w)
		}
	}
	return fresh
}
