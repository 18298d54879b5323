// Package classify provides the text signal classifier the navigation engine
// consumes: corrected text, an emotional-state tag, a coarse input category,
// and safety flags. The engine treats it as an external collaborator behind
// the Classifier interface; Lexicon is the local implementation.
package classify

import "context"

// SafetyFlags are boolean signals that preempt normal navigation.
type SafetyFlags struct {
	Crisis       bool `json:"crisis"`
	ThinkingMode bool `json:"thinking_mode"`
	PastTense    bool `json:"past_tense"`
	Uncertain    bool `json:"uncertain"`
}

// EmotionalState is a coarse tag of the feeling expressed in the input.
type EmotionalState string

const (
	EmotionNeutral    EmotionalState = "neutral"
	EmotionDistressed EmotionalState = "distressed"
	EmotionAnxious    EmotionalState = "anxious"
	EmotionLow        EmotionalState = "low"
	EmotionCalm       EmotionalState = "calm"
)

// Category is a coarse input category.
type Category string

const (
	CategoryStatement Category = "statement"
	CategoryQuestion  Category = "question"
	CategoryShort     Category = "short"
)

// Classification is the classifier output for one input.
type Classification struct {
	Corrected      string         `json:"corrected"`
	EmotionalState EmotionalState `json:"emotional_state"`
	Category       Category       `json:"category"`
	Safety         SafetyFlags    `json:"safety"`
}

// Neutral returns the degraded classification used when the classifier is
// unavailable: the raw text passes through untouched with no flags set.
func Neutral(raw string) Classification {
	return Classification{
		Corrected:      raw,
		EmotionalState: EmotionNeutral,
		Category:       CategoryStatement,
	}
}

// Classifier classifies raw user text. Implementations must be stateless.
type Classifier interface {
	Classify(ctx context.Context, raw string) (Classification, error)
}
