package discovery

import (
	"context"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedscout/pkg/domain"
)

// ContentInspector produces the content-level relevance signal for a candidate,
// a value in [0,1]. Implementations live outside the core pipeline (page
// inspection, LLM), the scorer only defines how the signal is weighted.
type ContentInspector interface {
	Inspect(ctx context.Context, candidate domain.CandidateSource, interests []string) (float64, error)
}

// Scorer computes relevance scores for candidates against the user's interests
type Scorer struct {
	interests     []string // normalized and deduplicated
	nameWeight    float64
	contentWeight float64
	inspector     ContentInspector
}

// NewScorer creates a scorer. Interests are normalized (trimmed, lower-cased)
// and deduplicated so repeated entries don't double-count. Inspector may be nil,
// in which case the content component is always zero.
func NewScorer(interests []string, nameWeight, contentWeight float64, inspector ContentInspector) *Scorer {
	seen := map[string]struct{}{}
	normalized := make([]string, 0, len(interests))
	for _, raw := range interests {
		interest := strings.ToLower(strings.TrimSpace(raw))
		if interest == "" {
			continue
		}
		if _, ok := seen[interest]; ok {
			continue
		}
		seen[interest] = struct{}{}
		normalized = append(normalized, interest)
	}

	return &Scorer{
		interests:     normalized,
		nameWeight:    nameWeight,
		contentWeight: contentWeight,
		inspector:     inspector,
	}
}

// Score computes the combined relevance for a candidate. The result is always
// in [0,1] and deterministic for the same candidate, interests and inspector
// response. An empty interest set scores zero regardless of the candidate.
func (s *Scorer) Score(ctx context.Context, candidate domain.CandidateSource) domain.ScoredCandidate {
	scored := domain.ScoredCandidate{CandidateSource: candidate}
	if len(s.interests) == 0 {
		return scored
	}

	scored.Breakdown.Name = s.nameComponent(candidate.Name)
	scored.Breakdown.Content = s.contentComponent(ctx, candidate)
	scored.Score = clamp(s.nameWeight*scored.Breakdown.Name + s.contentWeight*scored.Breakdown.Content)
	return scored
}

// nameComponent measures how strongly the display name matches the interests,
// the fraction of interests found as substrings of the name
func (s *Scorer) nameComponent(name string) float64 {
	if name == "" {
		return 0
	}
	lower := strings.ToLower(name)
	matched := 0
	for _, interest := range s.interests {
		if strings.Contains(lower, interest) {
			matched++
		}
	}
	return clamp(float64(matched) / float64(len(s.interests)))
}

func (s *Scorer) contentComponent(ctx context.Context, candidate domain.CandidateSource) float64 {
	if s.inspector == nil {
		return 0
	}
	score, err := s.inspector.Inspect(ctx, candidate, s.interests)
	if err != nil {
		lgr.Printf("[WARN] content inspection failed for %s: %v", candidate.Identity, err)
		return 0
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
