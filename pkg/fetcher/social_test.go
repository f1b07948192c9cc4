package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedscout/pkg/domain"
)

func TestSocialFetcher_Fetch(t *testing.T) {
	t.Run("valid timeline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/timeline/karpathy", r.URL.Path)
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"text": "check out https://new-blog.example/post", "url": "https://social.example/1", "created_at": "2025-06-01T12:00:00Z"},
				{"text": "great thread by @someone", "url": "https://social.example/2", "created_at": "2025-06-02T12:00:00Z"}
			]`))
		}))
		defer server.Close()

		fetcher := NewSocialFetcher(server.URL, 5*time.Second, 10)
		src := domain.PrimarySource{Name: "Karpathy", Identity: "@karpathy", Kind: domain.KindSocial}
		posts, err := fetcher.Fetch(context.Background(), src)
		require.NoError(t, err)
		require.Len(t, posts, 2)

		assert.Contains(t, posts[0].Body, "https://new-blog.example/post")
		assert.Equal(t, "https://social.example/1", posts[0].Link)
		assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), posts[0].Published)
	})

	t.Run("window caps posts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[
				{"text": "one", "created_at": "2025-06-01T12:00:00Z"},
				{"text": "two", "created_at": "2025-06-02T12:00:00Z"},
				{"text": "three", "created_at": "2025-06-03T12:00:00Z"}
			]`))
		}))
		defer server.Close()

		fetcher := NewSocialFetcher(server.URL, 5*time.Second, 2)
		posts, err := fetcher.Fetch(context.Background(), domain.PrimarySource{Identity: "someone"})
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		fetcher := NewSocialFetcher(server.URL, 5*time.Second, 10)
		_, err := fetcher.Fetch(context.Background(), domain.PrimarySource{Identity: "someone"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code 503")
	})

	t.Run("bad json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		fetcher := NewSocialFetcher(server.URL, 5*time.Second, 10)
		_, err := fetcher.Fetch(context.Background(), domain.PrimarySource{Identity: "someone"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode timeline")
	})
}
