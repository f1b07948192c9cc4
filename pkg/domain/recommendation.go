package domain

import "time"

// ScoreBreakdown keeps the per-signal components of a relevance score
// so recommendations can explain themselves
type ScoreBreakdown struct {
	Name    float64 // name-level match, [0,1]
	Content float64 // content-level match, [0,1]
}

// ScoredCandidate is a candidate with its relevance score attached
type ScoredCandidate struct {
	CandidateSource
	Score     float64 // combined relevance, [0,1]
	Breakdown ScoreBreakdown
}

// Recommendation is a candidate that passed all threshold filters.
// Immutable once created.
type Recommendation struct {
	ScoredCandidate
	Reasoning string
	Rank      int
}

// Thresholds holds the recommendation policy knobs
type Thresholds struct {
	MinRelevance float64       // minimum combined score, [0,1]
	MinCitations int           // minimum distinct citing primary sources
	MaxAge       time.Duration // maximum time since the most recent citation
}
