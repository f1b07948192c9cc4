package notify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedscout/pkg/domain"
)

func sampleRecs() []domain.Recommendation {
	return []domain.Recommendation{
		{
			ScoredCandidate: domain.ScoredCandidate{
				CandidateSource: domain.CandidateSource{
					Identity: "https://new-blog.example",
					Name:     "new-blog.example",
					Kind:     domain.KindBlog,
					CitedBy:  map[string]struct{}{"a": {}, "b": {}, "c": {}},
				},
				Score: 0.85,
			},
			Reasoning: "Good relevance: 0.85 | Cited 3 times by trusted sources | Actively posting (10 days ago)",
			Rank:      1,
		},
		{
			ScoredCandidate: domain.ScoredCandidate{
				CandidateSource: domain.CandidateSource{
					Identity: "alice",
					Name:     "@alice",
					Kind:     domain.KindSocial,
					CitedBy:  map[string]struct{}{"a": {}, "b": {}},
				},
				Score: 0.72,
			},
			Reasoning: "Good relevance: 0.72 | Cited 2 times by trusted sources | Actively posting (5 days ago)",
			Rank:      2,
		},
	}
}

func TestNotifier_Render(t *testing.T) {
	generated := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	t.Run("markdown", func(t *testing.T) {
		n, err := New("markdown", "")
		require.NoError(t, err)
		report, err := n.Render(sampleRecs(), generated)
		require.NoError(t, err)

		assert.Contains(t, report, "# Recommended Sources")
		assert.Contains(t, report, "## 1. new-blog.example")
		assert.Contains(t, report, "- **Relevance**: 85%")
		assert.Contains(t, report, "- **Citations**: 3")
		assert.Contains(t, report, "## 2. @alice")
	})

	t.Run("json", func(t *testing.T) {
		n, err := New("json", "")
		require.NoError(t, err)
		report, err := n.Render(sampleRecs(), generated)
		require.NoError(t, err)

		var parsed struct {
			Recommendations []struct {
				Rank          int     `json:"rank"`
				Identity      string  `json:"identity"`
				Score         float64 `json:"score"`
				CitationCount int     `json:"citation_count"`
			} `json:"recommendations"`
		}
		require.NoError(t, json.Unmarshal([]byte(report), &parsed))
		require.Len(t, parsed.Recommendations, 2)
		assert.Equal(t, 1, parsed.Recommendations[0].Rank)
		assert.Equal(t, "https://new-blog.example", parsed.Recommendations[0].Identity)
		assert.Equal(t, 3, parsed.Recommendations[0].CitationCount)
	})

	t.Run("text", func(t *testing.T) {
		n, err := New("text", "")
		require.NoError(t, err)
		report, err := n.Render(sampleRecs(), generated)
		require.NoError(t, err)

		assert.Contains(t, report, "1. new-blog.example (https://new-blog.example, blog)")
		assert.Contains(t, report, "relevance 85%, cited 3 times")
	})

	t.Run("html escapes content", func(t *testing.T) {
		n, err := New("html", "")
		require.NoError(t, err)
		recs := sampleRecs()
		recs[0].Name = "evil <script>"
		report, err := n.Render(recs, generated)
		require.NoError(t, err)

		assert.Contains(t, report, "evil &lt;script&gt;")
		assert.NotContains(t, report, "<script>")
		assert.Contains(t, report, "<td>85%</td>")
	})

	t.Run("empty recommendations still produce a report", func(t *testing.T) {
		for _, format := range []string{"markdown", "text", "html"} {
			n, err := New(format, "")
			require.NoError(t, err)
			report, err := n.Render(nil, generated)
			require.NoError(t, err)
			assert.Contains(t, report, "No new sources found this run")
		}

		n, err := New("json", "")
		require.NoError(t, err)
		report, err := n.Render(nil, generated)
		require.NoError(t, err)
		assert.Contains(t, report, `"recommendations": []`)
	})

	t.Run("unsupported format rejected", func(t *testing.T) {
		_, err := New("pdf", "")
		require.Error(t, err)
	})
}

func TestNotifier_Notify_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "reports", "recommendations.md")
	n, err := New("markdown", file)
	require.NoError(t, err)

	require.NoError(t, n.Notify(sampleRecs(), time.Now()))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Recommended Sources")
}
