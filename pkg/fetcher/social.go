package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/umputun/feedscout/pkg/domain"
)

// SocialFetcher fetches recent posts for a social account from a timeline
// bridge API. The bridge exposes GET {base}/timeline/{handle}?limit=N and
// returns a JSON array of posts.
type SocialFetcher struct {
	baseURL string
	client  *http.Client
	window  int
}

// timelinePost is the bridge API wire format for a single post
type timelinePost struct {
	Text      string    `json:"text"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSocialFetcher creates a social timeline fetcher
func NewSocialFetcher(baseURL string, timeout time.Duration, window int) *SocialFetcher {
	return &SocialFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		window:  window,
	}
}

// Fetch retrieves the recent timeline for the primary source's handle
func (f *SocialFetcher) Fetch(ctx context.Context, src domain.PrimarySource) ([]domain.Post, error) {
	handle := strings.TrimPrefix(src.Identity, "@")
	reqURL := fmt.Sprintf("%s/timeline/%s?limit=%s", f.baseURL, url.PathEscape(handle), strconv.Itoa(f.window))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Feedscout/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch timeline for @%s: %w", handle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d for @%s", resp.StatusCode, handle)
	}

	var timeline []timelinePost
	if err := json.NewDecoder(resp.Body).Decode(&timeline); err != nil {
		return nil, fmt.Errorf("decode timeline for @%s: %w", handle, err)
	}

	if len(timeline) > f.window {
		timeline = timeline[:f.window]
	}

	posts := make([]domain.Post, 0, len(timeline))
	for _, tp := range timeline {
		posts = append(posts, domain.Post{
			Link:      tp.URL,
			Body:      tp.Text,
			Published: tp.CreatedAt,
		})
	}

	return posts, nil
}
