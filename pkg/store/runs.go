package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedscout/pkg/domain"
)

// PersistRun saves one pipeline execution atomically: the run record, the
// discovered candidates with their citations, and the ranked recommendations.
// Assigns run.ID if empty. Retries transient failures with backoff, SQLite
// can return busy errors under concurrent writers.
func (s *Store) PersistRun(ctx context.Context, run *Run, candidates map[string]*domain.CandidateSource, recs []domain.Recommendation) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	rpt := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := rpt.Do(ctx, func() error {
		return s.InTransaction(ctx, func(tx *sqlx.Tx) error {
			if err := insertRun(ctx, tx, run); err != nil {
				return err
			}
			if err := upsertCandidates(ctx, tx, candidates); err != nil {
				return err
			}
			return insertRecommendations(ctx, tx, run.ID, recs)
		})
	})
	if err != nil {
		return fmt.Errorf("persist run %s: %w", run.ID, err)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sqlx.Tx, run *Run) error {
	query := `
		INSERT INTO runs (id, started_at, finished_at, sources_fetched, posts_analyzed, candidates, recommended)
		VALUES (:id, :started_at, :finished_at, :sources_fetched, :posts_analyzed, :candidates, :recommended)
	`
	if _, err := tx.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func upsertCandidates(ctx context.Context, tx *sqlx.Tx, candidates map[string]*domain.CandidateSource) error {
	sourceQuery := `
		INSERT INTO discovered_sources (identity, name, kind, last_cited)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE name END,
			last_cited = MAX(COALESCE(last_cited, excluded.last_cited), excluded.last_cited)
	`
	citationQuery := `
		INSERT INTO citations (identity, cited_by, observed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(identity, cited_by) DO UPDATE SET
			observed_at = MAX(observed_at, excluded.observed_at)
	`

	for identity, cand := range candidates {
		if _, err := tx.ExecContext(ctx, sourceQuery, identity, cand.Name, string(cand.Kind), cand.LastCited.UTC()); err != nil {
			return fmt.Errorf("upsert discovered source %s: %w", identity, err)
		}
		for citedBy := range cand.CitedBy {
			if _, err := tx.ExecContext(ctx, citationQuery, identity, citedBy, cand.LastCited.UTC()); err != nil {
				return fmt.Errorf("upsert citation %s by %s: %w", identity, citedBy, err)
			}
		}
	}
	return nil
}

func insertRecommendations(ctx context.Context, tx *sqlx.Tx, runID string, recs []domain.Recommendation) error {
	query := `
		INSERT INTO recommendations (run_id, identity, name, kind, score, name_score, content_score,
		                             citation_count, rank, reasoning, last_cited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, rec := range recs {
		_, err := tx.ExecContext(ctx, query, runID, rec.Identity, rec.Name, string(rec.Kind),
			rec.Score, rec.Breakdown.Name, rec.Breakdown.Content,
			rec.CitationCount(), rec.Rank, rec.Reasoning, rec.LastCited.UTC())
		if err != nil {
			return fmt.Errorf("insert recommendation %s: %w", rec.Identity, err)
		}
	}
	return nil
}

// GetLastRun retrieves the most recently started run, nil if none recorded yet
func (s *Store) GetLastRun(ctx context.Context) (*Run, error) {
	var run Run
	query := `SELECT * FROM runs ORDER BY started_at DESC LIMIT 1`
	err := s.conn.GetContext(ctx, &run, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last run: %w", err)
	}
	return &run, nil
}

// GetRecommendations retrieves the ranked recommendations of the latest run
func (s *Store) GetRecommendations(ctx context.Context, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT * FROM recommendations
		WHERE run_id = (SELECT id FROM runs ORDER BY started_at DESC LIMIT 1)
		ORDER BY rank
		LIMIT ?
	`
	var recs []Recommendation
	if err := s.conn.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	return recs, nil
}
