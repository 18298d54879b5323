package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/attune-labs/attune/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "examples.db"), nil, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestRetrieveRanksByKeywordOverlap(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	examples := []string{
		"Client locates tension in the chest and names it as tight.",
		"Client speaks about a work deadline without body reference.",
		"Client reports the stomach as the place where stress lands.",
	}
	for _, ex := range examples {
		if err := s.Add(ctx, "body", ex); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	dec := domain.NavigationDecision{RetrievalTag: "body"}
	got := s.Retrieve(ctx, dec, "my chest feels tight", 2)
	if len(got) != 2 {
		t.Fatalf("Retrieve returned %d examples, want 2", len(got))
	}
	if got[0].Text != examples[0] {
		t.Errorf("top example = %q, want the chest/tight one", got[0].Text)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %f then %f", got[0].Score, got[1].Score)
	}
}

func TestRetrieveFiltersByTag(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, "body", "a body example"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, "menu_goal", "a goal menu example"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got := s.Retrieve(ctx, domain.NavigationDecision{RetrievalTag: "menu_goal"}, "anything", 10)
	if len(got) != 1 || got[0].Tag != "menu_goal" {
		t.Errorf("Retrieve = %+v, want only the menu_goal example", got)
	}
}

func TestRetrieveUnknownTagIsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	got := s.Retrieve(context.Background(), domain.NavigationDecision{RetrievalTag: "nope"}, "text", 3)
	if len(got) != 0 {
		t.Errorf("unknown tag returned %d examples", len(got))
	}
}

func TestRetrieveDefaultLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Add(ctx, "readiness", "an example about feeling ready"); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got := s.Retrieve(ctx, domain.NavigationDecision{RetrievalTag: "readiness"}, "ready", 0)
	if len(got) != 3 {
		t.Errorf("zero limit returned %d examples, want the default 3", len(got))
	}
}

func TestKeywordOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		text  string
		want  float64
	}{
		{"full overlap", "chest tight", "the chest is tight", 1.0},
		{"half overlap", "chest relaxed", "the chest is tight", 0.5},
		{"no overlap", "stomach heavy", "the chest is tight", 0.0},
		{"empty query", "", "anything", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywordOverlap(tt.query, tt.text); got != tt.want {
				t.Errorf("keywordOverlap = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	a := []float32{1, 0, 0}
	if got := cosineSimilarity(a, a); got < 0.999 {
		t.Errorf("identical vectors similarity = %f, want ~1", got)
	}
	if got := cosineSimilarity(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("orthogonal vectors similarity = %f, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched lengths similarity = %f, want 0", got)
	}
}
