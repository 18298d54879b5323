package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/attune-labs/attune/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return repo
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	st := domain.NewSession("round-trip")
	st.Completion.MarkGoalStated("sleep better")
	st.Completion.VisionAccepted = true
	st.BodyQuestionsAsked = 2
	st.HowDoYouKnowAsked = true
	st.AdvanceTo(domain.SubstateProblemAndBody)
	st.RecordQuestion("where do you feel it")
	st.CoverStressor("work")
	st.RecordExchange("my chest is tight", "Where exactly?", domain.DecisionDeepenBody)
	st.Checkpoint = &domain.CheckpointState{Step: 2, TotalSteps: 3, CalmSteps: 1}

	if err := repo.SaveSession(ctx, st); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := repo.LoadSession(ctx, "round-trip")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got == nil {
		t.Fatal("LoadSession returned nil for an existing session")
	}

	if got.Substate != domain.SubstateProblemAndBody {
		t.Errorf("Substate = %v, want problem_and_body", got.Substate)
	}
	if !got.Completion.GoalStated || got.Completion.GoalContent != "sleep better" {
		t.Errorf("Completion = %+v, want goal preserved", got.Completion)
	}
	if got.BodyQuestionsAsked != 2 || !got.HowDoYouKnowAsked {
		t.Errorf("counters not preserved: %+v", got)
	}
	if !got.StressorCovered("work") {
		t.Error("covered stressors not preserved")
	}
	if len(got.History) != 1 || got.History[0].Decision != domain.DecisionDeepenBody {
		t.Errorf("history not preserved: %+v", got.History)
	}
	if got.Checkpoint == nil || got.Checkpoint.Step != 2 {
		t.Errorf("checkpoint not preserved: %+v", got.Checkpoint)
	}
	if turn, ok := got.AskedQuestions["where do you feel it"]; !ok || turn != 1 {
		t.Errorf("asked questions not preserved: %+v", got.AskedQuestions)
	}
}

func TestLoadMissingSessionReturnsNil(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)

	got, err := repo.LoadSession(context.Background(), "missing")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got != nil {
		t.Errorf("LoadSession(missing) = %+v, want nil", got)
	}
}

func TestSaveSessionUpserts(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	st := domain.NewSession("upsert")
	if err := repo.SaveSession(ctx, st); err != nil {
		t.Fatalf("first save: %v", err)
	}

	st.AdvanceTo(domain.SubstatePsychoEducation)
	if err := repo.SaveSession(ctx, st); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := repo.LoadSession(ctx, "upsert")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Substate != domain.SubstatePsychoEducation {
		t.Errorf("Substate = %v, want the updated value", got.Substate)
	}

	ids, err := repo.ListSessionIDs(ctx)
	if err != nil {
		t.Fatalf("ListSessionIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("upsert produced %d rows, want 1", len(ids))
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.SaveSession(ctx, domain.NewSession("doomed")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := repo.DeleteSession(ctx, "doomed"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	got, err := repo.LoadSession(ctx, "doomed")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got != nil {
		t.Error("session still present after delete")
	}

	// Deleting a missing session is not an error.
	if err := repo.DeleteSession(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteSession(missing) = %v, want nil", err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.SaveSession(ctx, domain.NewSession("fresh")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// Nothing is older than an hour yet.
	deleted, err := repo.CleanupExpiredSessions(ctx, time.Hour)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if deleted != 0 {
		t.Errorf("cleanup removed %d fresh sessions", deleted)
	}

	// With a negative TTL everything is expired.
	deleted, err = repo.CleanupExpiredSessions(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if deleted != 1 {
		t.Errorf("cleanup removed %d sessions, want 1", deleted)
	}

	got, err := repo.LoadSession(ctx, "fresh")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got != nil {
		t.Error("expired session still present")
	}
}

func TestListSessionIDs(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	ids, err := repo.ListSessionIDs(ctx)
	if err != nil {
		t.Fatalf("ListSessionIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("fresh store has %d ids", len(ids))
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.SaveSession(ctx, domain.NewSession(id)); err != nil {
			t.Fatalf("SaveSession(%s): %v", id, err)
		}
	}

	ids, err = repo.ListSessionIDs(ctx)
	if err != nil {
		t.Fatalf("ListSessionIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("ListSessionIDs returned %d ids, want 3", len(ids))
	}
}
