package store

import (
	"database/sql"
	"time"
)

// PrimarySource is a trusted source row
type PrimarySource struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Identity  string    `db:"identity"`
	Kind      string    `db:"kind"`
	CreatedAt time.Time `db:"created_at"`
}

// DiscoveredSource is a candidate seen in citations, keyed by canonical identity
type DiscoveredSource struct {
	ID        int64        `db:"id"`
	Identity  string       `db:"identity"`
	Name      string       `db:"name"`
	Kind      string       `db:"kind"`
	FirstSeen time.Time    `db:"first_seen"`
	LastCited sql.NullTime `db:"last_cited"`
}

// Citation links a discovered source to the primary that cited it
type Citation struct {
	ID         int64     `db:"id"`
	Identity   string    `db:"identity"`
	CitedBy    string    `db:"cited_by"`
	ObservedAt time.Time `db:"observed_at"`
}

// Run records one discovery pipeline execution
type Run struct {
	ID             string    `db:"id"`
	StartedAt      time.Time `db:"started_at"`
	FinishedAt     time.Time `db:"finished_at"`
	SourcesFetched int       `db:"sources_fetched"`
	PostsAnalyzed  int       `db:"posts_analyzed"`
	Candidates     int       `db:"candidates"`
	Recommended    int       `db:"recommended"`
}

// Recommendation is a ranked result produced by a run
type Recommendation struct {
	ID            int64        `db:"id"`
	RunID         string       `db:"run_id"`
	Identity      string       `db:"identity"`
	Name          string       `db:"name"`
	Kind          string       `db:"kind"`
	Score         float64      `db:"score"`
	NameScore     float64      `db:"name_score"`
	ContentScore  float64      `db:"content_score"`
	CitationCount int          `db:"citation_count"`
	Rank          int          `db:"rank"`
	Reasoning     string       `db:"reasoning"`
	LastCited     sql.NullTime `db:"last_cited"`
}
