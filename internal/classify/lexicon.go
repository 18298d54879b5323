package classify

import (
	"context"
	"strings"
)

// corrections normalizes the misspellings that show up constantly in typed
// therapy-style input. Applied token-wise after lowercasing.
var corrections = map[string]string{
	"im":       "i'm",
	"dont":     "don't",
	"cant":     "can't",
	"wont":     "won't",
	"didnt":    "didn't",
	"doesnt":   "doesn't",
	"isnt":     "isn't",
	"wasnt":    "wasn't",
	"ive":      "i've",
	"id":       "i'd",
	"thats":    "that's",
	"whats":    "what's",
	"anxios":   "anxious",
	"anxous":   "anxious",
	"stressd":  "stressed",
	"streesed": "stressed",
	"tite":     "tight",
	"breathin": "breathing",
	"relaxd":   "relaxed",
}

var crisisPhrases = []string{
	"kill myself", "end my life", "suicide", "suicidal",
	"hurt myself", "harm myself", "self harm", "self-harm",
	"don't want to live", "dont want to live", "no reason to live",
	"want to die", "better off dead",
}

var uncertainPhrases = []string{
	"i don't know", "i dont know", "dont know", "don't know",
	"no idea", "not sure", "i'm not sure", "im not sure",
	"dunno", "no clue", "hard to say",
}

var pastTenseMarkers = []string{
	"used to", "back then", "when i was", "years ago", "in the past",
	"last year", "as a child", "growing up", "at the time",
}

var thinkingMarkers = []string{
	"i think that", "i believe", "the reason is", "it must be because",
	"logically", "rationally", "i've been analyzing", "ive been analyzing",
	"my theory", "i suppose the cause", "probably because",
}

var distressWords = []string{
	"overwhelmed", "panicking", "panic", "terrified", "desperate", "unbearable",
}

var anxiousWords = []string{
	"anxious", "anxiety", "worried", "nervous", "stressed", "tense", "on edge", "restless",
}

var lowWords = []string{
	"sad", "down", "depressed", "hopeless", "empty", "tired", "exhausted", "numb",
}

var calmWords = []string{
	"calm", "calmer", "relaxed", "peaceful", "settled", "at ease", "lighter", "softer",
}

// Lexicon is a keyword-driven classifier. It is deliberately small and
// deterministic: the navigation engine only needs coarse signals, and a pure
// function here keeps the turn loop free of a second external call.
type Lexicon struct{}

// NewLexicon creates the local classifier.
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

// Classify implements Classifier. It never fails.
func (l *Lexicon) Classify(_ context.Context, raw string) (Classification, error) {
	corrected := correctSpelling(raw)
	lower := strings.ToLower(corrected)

	cls := Classification{
		Corrected:      corrected,
		EmotionalState: emotionalState(lower),
		Category:       category(corrected),
		Safety: SafetyFlags{
			Crisis:       containsAny(lower, crisisPhrases),
			PastTense:    containsAny(lower, pastTenseMarkers),
			ThinkingMode: containsAny(lower, thinkingMarkers),
			Uncertain:    containsAny(lower, uncertainPhrases),
		},
	}
	return cls, nil
}

func correctSpelling(raw string) string {
	fields := strings.Fields(raw)
	for i, f := range fields {
		key := strings.ToLower(strings.Trim(f, ".,!?"))
		if fixed, ok := corrections[key]; ok {
			fields[i] = strings.Replace(f, strings.Trim(f, ".,!?"), fixed, 1)
		}
	}
	return strings.Join(fields, " ")
}

func emotionalState(lower string) EmotionalState {
	switch {
	case containsAny(lower, distressWords):
		return EmotionDistressed
	case containsAny(lower, anxiousWords):
		return EmotionAnxious
	case containsAny(lower, lowWords):
		return EmotionLow
	case containsAny(lower, calmWords):
		return EmotionCalm
	default:
		return EmotionNeutral
	}
}

func category(text string) Category {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return CategoryQuestion
	}
	if len(strings.Fields(trimmed)) <= 3 {
		return CategoryShort
	}
	return CategoryStatement
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
