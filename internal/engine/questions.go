package engine

import (
	"strings"

	"github.com/attune-labs/attune/internal/domain"
)

// Prompt pools. Every pool holds more variants than the repeat window needs,
// so a forced re-ask never has to emit the same normalized question twice
// within five turns.

var clarifyGoalPool = []string{
	"What would you like to get out of our work together?",
	"If this went really well for you, what would be different?",
	"What would you like to feel instead?",
	"What matters most to you about changing this?",
}

var buildVisionPool = []string{
	"Imagine that's already true — what would that feel like day to day?",
	"When you picture having that, what do you notice?",
	"What would the first sign be that it's starting to happen?",
}

var explainPatternPool = []string{
	"When stress repeats, the body starts sounding the alarm before the mind catches up. Does that fit your experience?",
	"The tension you feel is your system trying to protect you — it just doesn't switch off on its own. Does that make sense so far?",
}

var exploreProblemPool = []string{
	"What's getting in the way of that for you right now?",
	"What tends to set this off for you?",
}

var bodyLocationPool = []string{
	"Where do you notice that in your body?",
	"If that feeling lived somewhere in your body, where would it be?",
	"As you say that, where does it show up physically?",
	"What part of your body reacts first when that happens?",
}

var bodyQualityPool = []string{
	"What does that sensation feel like — tight, heavy, warm, something else?",
	"How would you describe the feeling there?",
	"If you stay with it for a second, what quality does it have?",
}

var anythingElsePool = []string{
	"Is there anything else that feels connected to this?",
	"What else comes up when you think about it?",
	"Anything else you notice alongside that?",
}

var presentMomentPool = []string{
	"What do you notice right now, in this moment?",
	"As we're talking, what's present for you right now?",
	"Take a slow breath — what's here now?",
	"Right now, in your body, what stands out?",
}

var assessReadinessPool = []string{
	"How ready do you feel to let your body settle a little?",
	"Would it feel okay to slow things down together for a few minutes?",
	"Does it feel like the right moment to work with this directly?",
}

var permissionPool = []string{
	"I'd like to guide you through a short relaxation sequence, a few steps with a check-in after each. Would that be okay?",
	"Shall we try a brief guided wind-down now? We'll go step by step and you stay in charge.",
}

var menuByTopic = map[string]string{
	"goal":     "That's okay — it can be hard to name. Some people want to feel calmer, sleep better, worry less, or stop feeling so on edge. Does any of those come close?",
	"feelings": "That's okay — it doesn't need a label. Would you say it's closer to restless, heavy, keyed-up, or flat?",
	"body":     "No need to be precise. Some people feel it in the chest, the stomach, the shoulders, or the throat. Does one of those ring true?",
}

const safetyPrompt = "I'm concerned about what you just shared, and I want you to talk to someone who can support you right now. " +
	"Please contact your local crisis line or emergency services. We can pause here — your safety comes first."

var redirectPresentPool = []string{
	"That sounds like it mattered. Coming back to right now though — what do you notice in this moment?",
	"Let's gently come back to the present. What's happening for you right now?",
	"We can honor that and still return to now — what's here at this moment?",
}

var redirectFeelingPool = []string{
	"I hear the thinking behind it. Stepping out of the analysis for a second — what are you feeling as you say that?",
	"Let's set the explanation aside for a moment. What does this feel like, rather than what causes it?",
	"Before we analyze it — what's the feeling underneath?",
}

const howDoYouKnowPrompt = "How do you know? What tells you that, right now, in your body?"

const closePrompt = "That brings us to the end of the sequence. Take your time coming back, and notice what's different."

// affirmation fillers stripped during question normalization, so "Great —
// where do you feel it?" and "Where do you feel it?" count as the same ask.
var questionFillers = []string{
	"great", "okay", "ok", "thanks for sharing", "thank you", "i hear you",
	"that makes sense", "good", "alright", "wonderful", "lovely",
}

// NormalizeQuestion lowercases, strips punctuation and leading affirmation
// fillers, and collapses whitespace.
func NormalizeQuestion(q string) string {
	lower := strings.ToLower(strings.TrimSpace(q))
	lower = strings.TrimSuffix(lower, "?")

	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	normalized := strings.Join(strings.Fields(b.String()), " ")

	for changed := true; changed; {
		changed = false
		for _, f := range questionFillers {
			if normalized == f {
				return ""
			}
			if strings.HasPrefix(normalized, f+" ") {
				normalized = strings.TrimPrefix(normalized, f+" ")
				changed = true
			}
		}
	}
	return normalized
}

// ExtractQuestions returns the question sentences of an utterance.
func ExtractQuestions(text string) []string {
	var questions []string
	start := 0
	for i, r := range text {
		switch r {
		case '?':
			q := strings.TrimSpace(text[start : i+1])
			if q != "" {
				questions = append(questions, q)
			}
			start = i + 1
		case '.', '!':
			start = i + 1
		}
	}
	return questions
}

// pickPrompt selects the first pool variant whose normalized form has not
// been asked within the repeat window, falling back to the least recently
// asked variant when the whole pool was used.
func pickPrompt(st *domain.SessionState, pool []string) string {
	var oldest string
	oldestTurn := int(^uint(0) >> 1)
	for _, p := range pool {
		norm := NormalizeQuestion(p)
		if !st.QuestionAskedWithin(norm, domain.RepeatWindowTurns) {
			return p
		}
		if turn := st.AskedQuestions[norm]; turn < oldestTurn {
			oldestTurn = turn
			oldest = p
		}
	}
	return oldest
}
