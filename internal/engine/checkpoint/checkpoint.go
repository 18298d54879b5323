// Package checkpoint implements the guided relaxation sub-sequence: a fixed
// number of instruction steps, each gated by a binary checkpoint question.
// It is a self-contained state machine composed into the navigation engine.
package checkpoint

import (
	"fmt"
	"strings"

	"github.com/attune-labs/attune/internal/domain"
)

// DefaultSteps is the standard sequence length.
const DefaultSteps = 3

// ReplyKind classifies the user's answer to a checkpoint question.
type ReplyKind string

const (
	ReplyCalm         ReplyKind = "calm"
	ReplyTense        ReplyKind = "tense"
	ReplyNeutral      ReplyKind = "neutral"
	ReplyUnrecognized ReplyKind = "unrecognized"
)

// negatedCalmPhrases catch denials that would otherwise substring-match a
// calm word. Checked before everything else.
var negatedCalmPhrases = []string{
	"can't calm", "cant calm", "not calm", "not as calm", "no calmer",
	"not calmer", "can't relax", "cant relax", "not relaxed",
}

// calmPhrases include relief phrased as reduced tension, so they are checked
// before the tense phrases.
var calmPhrases = []string{
	"less tense", "not as tense", "calmer", "more calm", "calm", "relaxed",
	"looser", "lighter", "softer", "easier", "better", "settled", "peaceful",
}

var tensePhrases = []string{
	"more tense", "still tense", "tenser", "tense", "tighter", "tight",
	"worse", "uncomfortable", "can't relax", "cant relax", "anxious",
}

var neutralPhrases = []string{
	"the same", "same", "no change", "no different", "not sure",
	"don't know", "dont know", "nothing", "hard to tell",
}

// physiologicalPhrases are described bodily evidence of down-regulation.
var physiologicalPhrases = []string{
	"breathing", "breath", "shoulders", "heart", "slower", "deeper",
	"heavy", "heavier", "warm", "warmth", "tingling", "yawn", "sigh",
	"unclench", "loosened", "melting",
}

// instructions cycle when the sequence is configured longer than the pool.
var instructions = []string{
	"Let your shoulders drop and take one slow breath out.",
	"Unclench your jaw and let your hands rest open.",
	"Soften the muscles around your eyes and breathe gently.",
	"Let your weight sink into the chair on the next breath out.",
	"Loosen your belly and let the breath arrive on its own.",
}

const checkpointQuestion = "Checking in — do you feel more tense or more calm?"

// Result is the outcome of feeding one reply into the sequence.
type Result struct {
	Kind      ReplyKind
	Advanced  bool
	Completed bool
	// Prompt is the next thing to say: the next instruction, a resistance
	// normalization, or a re-ask.
	Prompt string
}

// Sequence drives a checkpoint state through its steps.
type Sequence struct {
	steps int
}

// New creates a sequence with the given number of steps (DefaultSteps if
// non-positive).
func New(steps int) *Sequence {
	if steps <= 0 {
		steps = DefaultSteps
	}
	return &Sequence{steps: steps}
}

// Start returns a fresh checkpoint state positioned at step 1.
func (q *Sequence) Start() *domain.CheckpointState {
	return &domain.CheckpointState{Step: 1, TotalSteps: q.steps}
}

// InstructionFor returns the instruction plus checkpoint question for a
// 1-based step.
func (q *Sequence) InstructionFor(step int) string {
	instr := instructions[(step-1)%len(instructions)]
	return fmt.Sprintf("Step %d of %d: %s %s", step, q.steps, instr, checkpointQuestion)
}

// ClassifyReply maps the user's answer onto a reply kind.
func ClassifyReply(text string) ReplyKind {
	lower := strings.ToLower(text)
	for _, p := range negatedCalmPhrases {
		if strings.Contains(lower, p) {
			return ReplyTense
		}
	}
	for _, p := range calmPhrases {
		if strings.Contains(lower, p) {
			return ReplyCalm
		}
	}
	for _, p := range tensePhrases {
		if strings.Contains(lower, p) {
			return ReplyTense
		}
	}
	for _, p := range neutralPhrases {
		if strings.Contains(lower, p) {
			return ReplyNeutral
		}
	}
	return ReplyUnrecognized
}

// hasPhysiological reports described bodily evidence in the reply.
func hasPhysiological(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range physiologicalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Advance feeds one reply into the sequence. A calm reply moves to the next
// step; tense stays on the same step with a normalization message; neutral or
// unrecognized replies re-ask. Advance never moves the state backwards.
func (q *Sequence) Advance(st *domain.CheckpointState, reply string) Result {
	if st.Completed {
		return Result{Kind: ReplyNeutral, Completed: true, Prompt: "The sequence is complete."}
	}

	kind := ClassifyReply(reply)
	if hasPhysiological(reply) {
		st.PhysiologicalSeen = true
	}

	switch kind {
	case ReplyCalm:
		st.CalmSteps++
		if st.Step >= st.TotalSteps {
			st.Completed = true
			return Result{Kind: kind, Advanced: true, Completed: true,
				Prompt: "Well done — that completes the sequence. Rest here for a moment."}
		}
		st.Step++
		return Result{Kind: kind, Advanced: true, Prompt: q.InstructionFor(st.Step)}

	case ReplyTense:
		st.ResistanceEncountered = true
		st.Retries++
		return Result{Kind: kind, Prompt: fmt.Sprintf(
			"That's completely normal — tension often speaks up first when we pay attention to it. "+
				"Let's stay with this one. %s", q.InstructionFor(st.Step))}

	case ReplyNeutral:
		st.Retries++
		return Result{Kind: kind, Prompt: q.InstructionFor(st.Step)}

	default:
		st.Retries++
		return Result{Kind: ReplyUnrecognized, Prompt: fmt.Sprintf(
			"Just comparing to a moment ago — would you say more tense, or more calm? %s",
			q.InstructionFor(st.Step))}
	}
}
