// Package engine implements the navigation decision engine: per-turn criteria
// detection, the priority-ordered rule-override ladder, loop prevention, and
// composition of the checkpoint sub-sequence.
package engine

import (
	"strings"

	"github.com/attune-labs/attune/internal/domain"
)

// Curated lexicons. These are membership tests, not NLP: each list is small
// enough to audit and covers the phrasing that actually shows up in sessions.

var goalPhrases = []string{
	"i want", "i'd like", "id like", "i wish", "i hope", "hoping to",
	"my goal", "want to feel", "want to be", "to be able to", "looking to",
	"i need to feel",
}

var bodyLocationWords = []string{
	"chest", "stomach", "belly", "throat", "shoulders", "shoulder", "neck",
	"head", "jaw", "back", "arms", "hands", "legs", "gut", "heart", "face",
	"forehead", "eyes",
}

var sensationWords = []string{
	"tight", "tightness", "tense", "tension", "heavy", "heaviness", "knot",
	"pressure", "burning", "aching", "ache", "fluttering", "racing",
	"clenched", "numb", "tingling", "warm", "cold", "shaky", "trembling",
	"constricted", "lump",
}

var emotionWords = []string{
	"anxious", "anxiety", "afraid", "scared", "fear", "angry", "anger",
	"frustrated", "sad", "sadness", "worried", "worry", "stressed", "stress",
	"overwhelmed", "ashamed", "guilty", "lonely", "hurt", "panicky", "panic",
	"nervous", "irritated", "calm", "relieved", "hopeful",
}

var affirmationWords = []string{
	"yes", "yeah", "yep", "right", "exactly", "correct", "that's it",
	"thats it", "that's right", "thats right", "sounds right", "true",
	"absolutely", "definitely", "sure", "ok", "okay", "makes sense",
}

var confusionPhrases = []string{
	"i don't understand", "i dont understand", "don't get it", "dont get it",
	"what do you mean", "confused", "confusing", "huh", "not following",
	"lost me", "can you explain",
}

var nothingMorePhrases = []string{
	"nothing else", "nothing more", "that's all", "thats all", "that's it",
	"thats it really", "that's everything", "thats everything", "no that's it",
	"nothing i can think of", "can't think of anything", "cant think of anything",
	"no nothing", "not really anything",
}

var stressorWords = []string{
	"work", "job", "boss", "deadline", "deadlines", "money", "debt", "bills",
	"family", "marriage", "divorce", "partner", "kids", "children", "health",
	"illness", "exam", "exams", "school", "studies", "moving", "argument",
	"conflict", "pressure", "workload", "stress",
}

var presentMomentPhrases = []string{
	"right now", "at the moment", "in this moment", "currently", "as we talk",
	"now i feel", "i notice", "i'm noticing", "im noticing", "here and now",
}

var rejectionPhrases = []string{
	"no that's not", "no thats not", "not really", "that's not it",
	"thats not it", "not what i meant", "not quite", "no, i",
}

var understandingPhrases = []string{
	"makes sense", "i see", "i understand", "that explains", "i get it",
	"never thought of it", "interesting",
}

// answerKind tags the user's contribution on the current turn. Order matters:
// closure and confusion signals beat content words, and body content beats a
// bare affirmation so "yes, my chest" reads as a body answer.
func answerKind(text string) domain.AnswerKind {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, nothingMorePhrases):
		return domain.AnswerNothingMore
	case containsAny(lower, confusionPhrases):
		return domain.AnswerConfusion
	case containsAny(lower, bodyLocationWords):
		return domain.AnswerBodyLocation
	case containsAny(lower, sensationWords):
		return domain.AnswerSensationQuality
	case containsAny(lower, emotionWords):
		return domain.AnswerEmotion
	case isAffirmation(lower):
		return domain.AnswerAffirmation
	default:
		return domain.AnswerGeneral
	}
}

// isAffirmation requires the affirmation to lead the reply or be the whole of
// a short one, so "yes, but work is the problem" still reads as content.
func isAffirmation(lower string) bool {
	trimmed := strings.Trim(lower, " .,!")
	for _, a := range affirmationWords {
		if trimmed == a || strings.HasPrefix(trimmed, a+" ") || strings.HasPrefix(trimmed, a+",") {
			return true
		}
	}
	return containsAny(lower, understandingPhrases)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// firstMatch returns the first needle contained in haystack, or "".
func firstMatch(haystack string, needles []string) string {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return n
		}
	}
	return ""
}

// matchesIn returns every needle contained in haystack.
func matchesIn(haystack string, needles []string) []string {
	var found []string
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			found = append(found, n)
		}
	}
	return found
}

func hasEmotionalOrBodyLanguage(lower string) bool {
	return containsAny(lower, emotionWords) ||
		containsAny(lower, bodyLocationWords) ||
		containsAny(lower, sensationWords)
}
