// Package retrieval provides example retrieval for the response composer:
// curated coaching exchanges ranked by similarity to the current turn. It is
// optional enrichment — every failure degrades to an empty result set and the
// navigation decision stands on its own.
package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/attune-labs/attune/internal/domain"
	_ "modernc.org/sqlite"
)

// Example is one curated exchange usable as composition guidance.
type Example struct {
	ID    int64   `json:"id"`
	Tag   string  `json:"tag"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Store holds examples in sqlite with JSON-serialized embeddings. When no
// embedding engine is configured, ranking falls back to keyword overlap.
type Store struct {
	db     *sql.DB
	engine EmbeddingEngine
	log    *slog.Logger
}

// NewStore opens (or creates) the example store at path.
func NewStore(path string, engine EmbeddingEngine, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open example store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS examples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tag TEXT NOT NULL,
		text TEXT NOT NULL,
		embedding TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_examples_tag ON examples(tag);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create example schema: %w", err)
	}

	return &Store{db: db, engine: engine, log: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close example store: %w", err)
	}
	return nil
}

// Add stores an example under a retrieval tag, embedding it when an engine
// is available.
func (s *Store) Add(ctx context.Context, tag, text string) error {
	var embeddingJSON interface{}
	if s.engine != nil {
		vec, err := s.engine.Embed(ctx, text)
		if err != nil {
			s.log.Warn("embedding failed, storing example without vector", "tag", tag, "error", err)
		} else {
			raw, err := json.Marshal(vec)
			if err != nil {
				return fmt.Errorf("serialize embedding: %w", err)
			}
			embeddingJSON = string(raw)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO examples (tag, text, embedding) VALUES (?, ?, ?)`,
		tag, text, embeddingJSON); err != nil {
		return fmt.Errorf("insert example: %w", err)
	}
	return nil
}

// Retrieve returns up to limit examples for the decision's retrieval tag,
// ranked by similarity to the user's text. Never fails: errors degrade to an
// empty slice.
func (s *Store) Retrieve(ctx context.Context, dec domain.NavigationDecision, rawText string, limit int) []Example {
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tag, text, embedding FROM examples WHERE tag = ?`, dec.RetrievalTag)
	if err != nil {
		s.log.Warn("example query failed", "tag", dec.RetrievalTag, "error", err)
		return nil
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.Warn("failed to close example rows", "error", closeErr)
		}
	}()

	var candidates []Example
	var vectors [][]float32
	for rows.Next() {
		var ex Example
		var embedding sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Tag, &ex.Text, &embedding); err != nil {
			s.log.Warn("example scan failed", "error", err)
			return nil
		}
		var vec []float32
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &vec); err != nil {
				vec = nil
			}
		}
		candidates = append(candidates, ex)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("example iteration failed", "error", err)
		return nil
	}

	s.rank(ctx, candidates, vectors, rawText)

	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit]
}

// rank scores candidates semantically when an engine is available, otherwise
// by keyword overlap, then sorts best-first.
func (s *Store) rank(ctx context.Context, candidates []Example, vectors [][]float32, query string) {
	var queryVec []float32
	if s.engine != nil {
		vec, err := s.engine.Embed(ctx, query)
		if err != nil {
			s.log.Warn("query embedding failed, falling back to keyword ranking", "error", err)
		} else {
			queryVec = vec
		}
	}

	for i := range candidates {
		if queryVec != nil && vectors[i] != nil {
			candidates[i].Score = cosineSimilarity(queryVec, vectors[i])
		} else {
			candidates[i].Score = keywordOverlap(query, candidates[i].Text)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// keywordOverlap is the engine-free ranking: the fraction of query words
// appearing in the candidate.
func keywordOverlap(query, text string) float64 {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0
	}
	lowerText := strings.ToLower(text)
	matched := 0
	for _, w := range queryWords {
		if strings.Contains(lowerText, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}
