package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/umputun/feedscout/pkg/domain"
)

// RegisterPrimarySources upserts the configured trusted sources, keyed by identity.
// Re-registering the same source updates its name and kind in place.
func (s *Store) RegisterPrimarySources(ctx context.Context, sources []domain.PrimarySource) error {
	query := `
		INSERT INTO primary_sources (name, identity, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET name = excluded.name, kind = excluded.kind
	`
	for _, src := range sources {
		if _, err := s.conn.ExecContext(ctx, query, src.Name, src.Identity, string(src.Kind)); err != nil {
			return fmt.Errorf("register primary source %s: %w", src.Identity, err)
		}
	}
	return nil
}

// GetPrimarySources retrieves all registered trusted sources
func (s *Store) GetPrimarySources(ctx context.Context) ([]PrimarySource, error) {
	var sources []PrimarySource
	query := `SELECT * FROM primary_sources ORDER BY name`
	if err := s.conn.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("get primary sources: %w", err)
	}
	return sources, nil
}

// ListKnownIdentities returns registered primary identities together with
// identities recommended in earlier runs, so neither group shows up as a
// fresh discovery again.
func (s *Store) ListKnownIdentities(ctx context.Context) ([]string, error) {
	var identities []string
	query := `
		SELECT identity FROM primary_sources
		UNION
		SELECT identity FROM recommendations
		ORDER BY identity
	`
	if err := s.conn.SelectContext(ctx, &identities, query); err != nil {
		return nil, fmt.Errorf("list known identities: %w", err)
	}
	return identities, nil
}

// GetCandidates retrieves discovered sources with their citation counts,
// most cited first
func (s *Store) GetCandidates(ctx context.Context, limit int) ([]CandidateInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT d.identity, d.name, d.kind, d.first_seen, d.last_cited,
		       COUNT(c.id) AS citation_count
		FROM discovered_sources d
		LEFT JOIN citations c ON c.identity = d.identity
		GROUP BY d.id
		ORDER BY citation_count DESC, d.identity
		LIMIT ?
	`
	var candidates []CandidateInfo
	if err := s.conn.SelectContext(ctx, &candidates, query, limit); err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}
	return candidates, nil
}

// CandidateInfo is a discovered source with its aggregate citation count
type CandidateInfo struct {
	Identity      string       `db:"identity"`
	Name          string       `db:"name"`
	Kind          string       `db:"kind"`
	FirstSeen     time.Time    `db:"first_seen"`
	LastCited     sql.NullTime `db:"last_cited"`
	CitationCount int          `db:"citation_count"`
}
