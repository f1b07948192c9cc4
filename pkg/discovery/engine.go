package discovery

import (
	"fmt"
	"sort"
	"time"

	"github.com/umputun/feedscout/pkg/domain"
)

// Engine applies the recommendation policy: threshold filter, deterministic
// ranking and reasoning generation. Stateless once constructed.
type Engine struct {
	thresholds domain.Thresholds
}

// NewEngine validates the thresholds and creates an engine. Malformed values
// are a configuration error and rejected before any pipeline work starts.
func NewEngine(th domain.Thresholds) (*Engine, error) {
	if th.MinRelevance < 0 || th.MinRelevance > 1 {
		return nil, fmt.Errorf("min relevance score %.2f outside [0,1]", th.MinRelevance)
	}
	if th.MinCitations < 0 {
		return nil, fmt.Errorf("min citation count %d is negative", th.MinCitations)
	}
	if th.MaxAge <= 0 {
		return nil, fmt.Errorf("max source age %v must be positive", th.MaxAge)
	}
	return &Engine{thresholds: th}, nil
}

// Recommend filters scored candidates against all thresholds and ranks the
// survivors. A candidate must pass relevance, citation count and recency
// checks together, failing any one excludes it. Survivors are ordered by
// score descending, then citation count descending, then identity ascending
// so identical inputs always yield an identical sequence. An empty input
// yields an empty output.
func (e *Engine) Recommend(scored []domain.ScoredCandidate, now time.Time) []domain.Recommendation {
	survivors := make([]domain.ScoredCandidate, 0, len(scored))
	for _, cand := range scored {
		if cand.Score < e.thresholds.MinRelevance {
			continue
		}
		if cand.CitationCount() < e.thresholds.MinCitations {
			continue
		}
		if now.Sub(cand.LastCited) > e.thresholds.MaxAge {
			continue
		}
		survivors = append(survivors, cand)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Score != survivors[j].Score {
			return survivors[i].Score > survivors[j].Score
		}
		if survivors[i].CitationCount() != survivors[j].CitationCount() {
			return survivors[i].CitationCount() > survivors[j].CitationCount()
		}
		return survivors[i].Identity < survivors[j].Identity
	})

	recs := make([]domain.Recommendation, 0, len(survivors))
	for rank, cand := range survivors {
		recs = append(recs, domain.Recommendation{
			ScoredCandidate: cand,
			Reasoning:       reasoning(cand, now),
			Rank:            rank + 1,
		})
	}
	return recs
}

// reasoning builds the human-readable justification, part of the observable
// contract: it embeds the literal relevance score and citation count
func reasoning(cand domain.ScoredCandidate, now time.Time) string {
	ageDays := int(now.Sub(cand.LastCited).Hours() / 24)
	return fmt.Sprintf("Good relevance: %.2f | Cited %d times by trusted sources | Actively posting (%d days ago)",
		cand.Score, cand.CitationCount(), ageDays)
}
