package engine

import (
	"testing"

	"github.com/attune-labs/attune/internal/domain"
)

func TestNormalizeQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercase and strip punctuation",
			in:   "Where do you feel that, in your body?",
			want: "where do you feel that in your body",
		},
		{
			name: "leading filler stripped",
			in:   "Great — where do you feel it?",
			want: "where do you feel it",
		},
		{
			name: "stacked fillers stripped",
			in:   "Okay, good. Where does it sit?",
			want: "where does it sit",
		},
		{
			name: "pure filler normalizes to empty",
			in:   "Okay?",
			want: "",
		},
		{
			name: "apostrophes survive",
			in:   "What's getting in the way?",
			want: "what's getting in the way",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeQuestion(tt.in); got != tt.want {
				t.Errorf("NormalizeQuestion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuestionEquatesFillerVariants(t *testing.T) {
	t.Parallel()

	a := NormalizeQuestion("Great — where do you feel it?")
	b := NormalizeQuestion("Where do you feel it?")
	if a != b {
		t.Errorf("filler variant normalized to %q, plain form to %q", a, b)
	}
}

func TestExtractQuestions(t *testing.T) {
	t.Parallel()

	got := ExtractQuestions("That sounds hard. Where do you feel it? And what does it feel like?")
	want := []string{"Where do you feel it?", "And what does it feel like?"}
	if len(got) != len(want) {
		t.Fatalf("ExtractQuestions returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("question %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got := ExtractQuestions("A plain statement with no questions."); len(got) != 0 {
		t.Errorf("statement produced questions: %v", got)
	}
}

func TestAnswerKindPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want domain.AnswerKind
	}{
		{"nothing else really", domain.AnswerNothingMore},
		{"i don't understand what you mean", domain.AnswerConfusion},
		{"it's in my chest", domain.AnswerBodyLocation},
		{"a kind of tightness", domain.AnswerSensationQuality},
		{"i just feel anxious", domain.AnswerEmotion},
		{"yes, exactly", domain.AnswerAffirmation},
		{"the weather was nice", domain.AnswerGeneral},
		// Body content beats a bare affirmation.
		{"yes, my chest", domain.AnswerBodyLocation},
		// Closure beats body content.
		{"nothing else, the chest thing was all", domain.AnswerNothingMore},
	}

	for _, tt := range tests {
		if got := answerKind(tt.in); got != tt.want {
			t.Errorf("answerKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsAffirmationRequiresLeadingPosition(t *testing.T) {
	t.Parallel()

	if !isAffirmation("yes, that helps") {
		t.Error("leading yes should be an affirmation")
	}
	if !isAffirmation("okay") {
		t.Error("bare okay should be an affirmation")
	}
	if isAffirmation("the answer is probably yes in theory") {
		t.Error("mid-sentence yes should not be an affirmation")
	}
}

func TestPickPromptAvoidsRecentVariants(t *testing.T) {
	t.Parallel()

	st := domain.NewSession("pick")

	first := pickPrompt(st, bodyLocationPool)
	if first != bodyLocationPool[0] {
		t.Fatalf("fresh pick = %q, want first variant", first)
	}
	st.RecordQuestion(NormalizeQuestion(first))
	st.RecordExchange("in", first, domain.DecisionDeepenBody)

	second := pickPrompt(st, bodyLocationPool)
	if second == first {
		t.Errorf("second pick repeated %q within the window", first)
	}

	// With every variant recently used, the least recently asked comes back.
	st2 := domain.NewSession("exhausted")
	for _, p := range bodyLocationPool {
		st2.RecordQuestion(NormalizeQuestion(p))
		st2.RecordExchange("in", p, domain.DecisionDeepenBody)
	}
	got := pickPrompt(st2, bodyLocationPool)
	if got != bodyLocationPool[0] {
		t.Errorf("exhausted pick = %q, want the oldest variant %q", got, bodyLocationPool[0])
	}
}

func TestIsAnythingElseProbe(t *testing.T) {
	t.Parallel()

	for _, p := range anythingElsePool {
		if !isAnythingElseProbe(p) {
			t.Errorf("pool variant not recognized as probe: %q", p)
		}
	}
	// Incidental "else" in a quality question is not a probe.
	if isAnythingElseProbe("What does that sensation feel like — tight, heavy, warm, something else?") {
		t.Error("quality question misread as anything-else probe")
	}
}
