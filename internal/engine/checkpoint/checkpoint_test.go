package checkpoint

import (
	"strings"
	"testing"
)

func TestClassifyReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ReplyKind
	}{
		{"I feel calmer now", ReplyCalm},
		{"a bit more relaxed", ReplyCalm},
		// Relief phrased as reduced tension must not read as tense.
		{"less tense than before", ReplyCalm},
		{"not as tense now", ReplyCalm},
		{"still tense", ReplyTense},
		{"my chest feels tighter", ReplyTense},
		{"i cant relax", ReplyTense},
		// Negated calm words must not read as calm.
		{"i can't calm down", ReplyTense},
		{"i'm not calm at all", ReplyTense},
		{"no calmer than before", ReplyTense},
		{"about the same", ReplyNeutral},
		{"no change really", ReplyNeutral},
		{"purple elephants", ReplyUnrecognized},
	}

	for _, tt := range tests {
		if got := ClassifyReply(tt.in); got != tt.want {
			t.Errorf("ClassifyReply(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSequenceCalmPath(t *testing.T) {
	t.Parallel()

	seq := New(3)
	st := seq.Start()

	if st.Step != 1 || st.TotalSteps != 3 {
		t.Fatalf("Start() = %+v, want step 1 of 3", st)
	}

	r := seq.Advance(st, "calmer, my breathing is slower")
	if !r.Advanced || r.Completed || st.Step != 2 {
		t.Fatalf("step 1 advance: result %+v, state %+v", r, st)
	}
	if !strings.Contains(r.Prompt, "Step 2 of 3") {
		t.Errorf("prompt = %q, want step 2 instruction", r.Prompt)
	}

	r = seq.Advance(st, "more calm")
	if !r.Advanced || st.Step != 3 {
		t.Fatalf("step 2 advance: result %+v, state %+v", r, st)
	}

	r = seq.Advance(st, "really relaxed now")
	if !r.Completed || !st.Completed {
		t.Fatalf("final step: result %+v, state %+v", r, st)
	}
	if st.CalmSteps != 3 {
		t.Errorf("CalmSteps = %d, want 3", st.CalmSteps)
	}
	if !st.DownRegulated() {
		t.Error("sequence with physiological evidence and 3 calm steps should be down-regulated")
	}
}

func TestSequenceNeverAdvancesOnTense(t *testing.T) {
	t.Parallel()

	seq := New(3)
	st := seq.Start()

	for i := 0; i < 4; i++ {
		r := seq.Advance(st, "still tense")
		if r.Advanced {
			t.Fatalf("reply %d: tense reply advanced the sequence", i)
		}
		if st.Step != 1 {
			t.Fatalf("reply %d: step moved to %d", i, st.Step)
		}
	}

	if !st.ResistanceEncountered {
		t.Error("ResistanceEncountered not set after tense replies")
	}
	if st.Retries != 4 {
		t.Errorf("Retries = %d, want 4", st.Retries)
	}

	// A calm reply after resistance still advances normally.
	r := seq.Advance(st, "ok, calmer now")
	if !r.Advanced || st.Step != 2 {
		t.Errorf("calm after resistance: result %+v, state %+v", r, st)
	}
}

func TestSequenceReasksOnNeutralAndUnrecognized(t *testing.T) {
	t.Parallel()

	seq := New(3)
	st := seq.Start()

	r := seq.Advance(st, "the same")
	if r.Advanced || r.Kind != ReplyNeutral || st.Step != 1 {
		t.Errorf("neutral reply: result %+v, state %+v", r, st)
	}

	r = seq.Advance(st, "what is happening")
	if r.Advanced || r.Kind != ReplyUnrecognized {
		t.Errorf("unrecognized reply: result %+v", r)
	}
	if !strings.Contains(r.Prompt, "more tense, or more calm") {
		t.Errorf("unrecognized prompt = %q, want clarifying re-ask", r.Prompt)
	}
	if st.Retries != 2 {
		t.Errorf("Retries = %d, want 2", st.Retries)
	}
}

// The sequence terminates after exactly N calm replies regardless of how many
// non-calm replies are interleaved.
func TestSequenceTerminatesAfterNCalmReplies(t *testing.T) {
	t.Parallel()

	seq := New(4)
	st := seq.Start()

	replies := []string{
		"still tense", "the same", "calmer",
		"no change", "more calm",
		"tighter", "relaxed",
		"softer, shoulders dropped",
	}

	calm := 0
	for _, reply := range replies {
		r := seq.Advance(st, reply)
		if r.Advanced {
			calm++
		}
		if r.Completed {
			break
		}
	}

	if calm != 4 {
		t.Errorf("advanced %d times, want 4", calm)
	}
	if !st.Completed {
		t.Error("sequence did not complete after 4 calm replies")
	}
}

func TestPhysiologicalEvidenceTracking(t *testing.T) {
	t.Parallel()

	seq := New(3)
	st := seq.Start()

	seq.Advance(st, "calmer")
	if st.PhysiologicalSeen {
		t.Error("bare calm reply should not count as physiological evidence")
	}

	seq.Advance(st, "calmer, my shoulders feel heavy")
	if !st.PhysiologicalSeen {
		t.Error("bodily description should set PhysiologicalSeen")
	}

	// Evidence counts even on a non-advancing reply.
	st2 := seq.Start()
	seq.Advance(st2, "still tense but my breathing is deeper")
	if !st2.PhysiologicalSeen {
		t.Error("physiological evidence on a tense reply should still be recorded")
	}
}

func TestInstructionCyclesForLongSequences(t *testing.T) {
	t.Parallel()

	seq := New(7)
	first := seq.InstructionFor(1)
	sixth := seq.InstructionFor(6)

	if !strings.Contains(first, "Step 1 of 7") {
		t.Errorf("first instruction = %q", first)
	}
	if !strings.Contains(sixth, "Step 6 of 7") {
		t.Errorf("sixth instruction = %q", sixth)
	}
	// Step 6 reuses the first instruction body.
	body := strings.TrimPrefix(first, "Step 1 of 7: ")
	if !strings.Contains(sixth, body) {
		t.Errorf("step 6 should cycle back to the first instruction body")
	}
}

func TestAdvanceOnCompletedStateIsIdempotent(t *testing.T) {
	t.Parallel()

	seq := New(1)
	st := seq.Start()

	r := seq.Advance(st, "calm")
	if !r.Completed {
		t.Fatalf("single-step sequence did not complete: %+v", r)
	}

	r = seq.Advance(st, "tense")
	if !r.Completed {
		t.Error("completed sequence should stay completed")
	}
	if st.ResistanceEncountered {
		t.Error("replies after completion must not mutate the state")
	}
}
