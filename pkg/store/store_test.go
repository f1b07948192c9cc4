package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedscout/pkg/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	s, err := New(Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.Ping(context.Background()))

	// schema application is idempotent
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestStore_RegisterPrimarySources(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sources := []domain.PrimarySource{
		{Name: "Simon Willison", Identity: "https://simonwillison.net/feed", Kind: domain.KindBlog},
		{Name: "Karpathy", Identity: "karpathy", Kind: domain.KindSocial},
	}
	require.NoError(t, s.RegisterPrimarySources(ctx, sources))

	t.Run("known identities listed", func(t *testing.T) {
		identities, err := s.ListKnownIdentities(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"https://simonwillison.net/feed", "karpathy"}, identities)
	})

	t.Run("re-register updates in place", func(t *testing.T) {
		sources[1].Name = "Andrej Karpathy"
		require.NoError(t, s.RegisterPrimarySources(ctx, sources))

		got, err := s.GetPrimarySources(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Andrej Karpathy", got[0].Name)
	})
}

func TestStore_PersistRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	cited := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	candidates := map[string]*domain.CandidateSource{
		"https://new-blog.example": {
			Identity:  "https://new-blog.example",
			Name:      "new-blog.example",
			Kind:      domain.KindBlog,
			CitedBy:   map[string]struct{}{"https://a.example/feed": {}, "https://b.example/feed": {}},
			LastCited: cited,
		},
		"alice": {
			Identity:  "alice",
			Name:      "@alice",
			Kind:      domain.KindSocial,
			CitedBy:   map[string]struct{}{"https://a.example/feed": {}},
			LastCited: cited.Add(-24 * time.Hour),
		},
	}

	recs := []domain.Recommendation{
		{
			ScoredCandidate: domain.ScoredCandidate{
				CandidateSource: *candidates["https://new-blog.example"],
				Score:           0.85,
				Breakdown:       domain.ScoreBreakdown{Name: 0.5, Content: 1.0},
			},
			Reasoning: "Good relevance: 0.85 | Cited 2 times by trusted sources | Actively posting (3 days ago)",
			Rank:      1,
		},
	}

	run := &Run{
		StartedAt:      cited.Add(time.Hour),
		FinishedAt:     cited.Add(time.Hour + time.Minute),
		SourcesFetched: 2,
		PostsAnalyzed:  20,
		Candidates:     2,
		Recommended:    1,
	}
	require.NoError(t, s.PersistRun(ctx, run, candidates, recs))
	require.NotEmpty(t, run.ID)

	t.Run("recommendations of latest run", func(t *testing.T) {
		got, err := s.GetRecommendations(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "https://new-blog.example", got[0].Identity)
		assert.Equal(t, 1, got[0].Rank)
		assert.Equal(t, 2, got[0].CitationCount)
		assert.InDelta(t, 0.85, got[0].Score, 0.0001)
		assert.Contains(t, got[0].Reasoning, "Cited 2 times")
	})

	t.Run("candidates with citation counts", func(t *testing.T) {
		got, err := s.GetCandidates(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "https://new-blog.example", got[0].Identity)
		assert.Equal(t, 2, got[0].CitationCount)
		assert.Equal(t, "alice", got[1].Identity)
		assert.Equal(t, 1, got[1].CitationCount)
	})

	t.Run("last run recorded", func(t *testing.T) {
		got, err := s.GetLastRun(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, 2, got.SourcesFetched)
	})

	t.Run("recommended identity becomes known", func(t *testing.T) {
		identities, err := s.ListKnownIdentities(ctx)
		require.NoError(t, err)
		assert.Contains(t, identities, "https://new-blog.example")
	})

	t.Run("second run does not duplicate citations", func(t *testing.T) {
		run2 := &Run{StartedAt: cited.Add(2 * time.Hour), FinishedAt: cited.Add(2*time.Hour + time.Minute)}
		require.NoError(t, s.PersistRun(ctx, run2, candidates, nil))

		got, err := s.GetCandidates(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0].CitationCount)

		// latest run has no recommendations
		recsGot, err := s.GetRecommendations(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, recsGot)
	})
}

func TestStore_GetLastRun_Empty(t *testing.T) {
	s := setupTestStore(t)
	run, err := s.GetLastRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
}
