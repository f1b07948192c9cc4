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

func TestBlogFetcher_Fetch(t *testing.T) {
	t.Run("valid rss feed", func(t *testing.T) {
		rssContent := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
	<channel>
		<title>Test Feed</title>
		<link>https://example.com</link>
		<description>Test feed description</description>
		<item>
			<title>Weekly links</title>
			<link>https://example.com/weekly</link>
			<description>Check https://other.example/post and @someone</description>
			<guid>weekly1</guid>
			<pubDate>Mon, 02 Jun 2025 15:04:05 -0700</pubDate>
		</item>
		<item>
			<title>Full content post</title>
			<link>https://example.com/full</link>
			<description>short summary</description>
			<content:encoded><![CDATA[<p>Long piece linking <a href="https://deep.example/a">here</a></p>]]></content:encoded>
			<guid>full1</guid>
			<pubDate>Tue, 03 Jun 2025 15:04:05 -0700</pubDate>
		</item>
	</channel>
</rss>`

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(rssContent))
		}))
		defer server.Close()

		fetcher := NewBlogFetcher(5*time.Second, 10)
		src := domain.PrimarySource{Name: "Test", Identity: server.URL, Kind: domain.KindBlog}
		posts, err := fetcher.Fetch(context.Background(), src)
		require.NoError(t, err)
		require.Len(t, posts, 2)

		assert.Equal(t, "Weekly links", posts[0].Title)
		assert.Equal(t, "https://example.com/weekly", posts[0].Link)
		assert.Contains(t, posts[0].Body, "https://other.example/post")
		assert.False(t, posts[0].Published.IsZero())

		// content:encoded preferred over description
		assert.Contains(t, posts[1].Body, "https://deep.example/a")
		assert.NotContains(t, posts[1].Body, "short summary")
	})

	t.Run("window caps entries", func(t *testing.T) {
		rssContent := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Big Feed</title>
		<item><title>a</title><link>https://e.com/a</link><description>a</description><guid>a</guid></item>
		<item><title>b</title><link>https://e.com/b</link><description>b</description><guid>b</guid></item>
		<item><title>c</title><link>https://e.com/c</link><description>c</description><guid>c</guid></item>
	</channel>
</rss>`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(rssContent))
		}))
		defer server.Close()

		fetcher := NewBlogFetcher(5*time.Second, 2)
		src := domain.PrimarySource{Identity: server.URL, Kind: domain.KindBlog}
		posts, err := fetcher.Fetch(context.Background(), src)
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		fetcher := NewBlogFetcher(10*time.Millisecond, 10)
		src := domain.PrimarySource{Identity: server.URL, Kind: domain.KindBlog}
		posts, err := fetcher.Fetch(context.Background(), src)
		require.Error(t, err)
		assert.Nil(t, posts)
	})

	t.Run("invalid feed content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not xml content"))
		}))
		defer server.Close()

		fetcher := NewBlogFetcher(5*time.Second, 10)
		src := domain.PrimarySource{Identity: server.URL, Kind: domain.KindBlog}
		_, err := fetcher.Fetch(context.Background(), src)
		require.Error(t, err)
	})
}
