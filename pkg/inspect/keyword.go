package inspect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/markusmobius/go-trafilatura"

	"github.com/umputun/feedscout/pkg/domain"
)

// KeywordInspector scores candidate content by fetching the candidate's page,
// extracting the main text and measuring which fraction of the interests it
// mentions. Deterministic for a fixed page. Social candidates have no page to
// fetch and score zero here.
type KeywordInspector struct {
	timeout time.Duration
	client  *http.Client

	mu    sync.Mutex
	cache map[string]float64 // per-identity results within a run
}

// NewKeywordInspector creates a keyword-based content inspector
func NewKeywordInspector(timeout time.Duration) *KeywordInspector {
	return &KeywordInspector{
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		cache:   map[string]float64{},
	}
}

// Inspect returns the matched-interest fraction of the candidate page text.
// Unreachable or empty pages score zero rather than failing, a missing page
// is a weak signal, not an error condition.
func (k *KeywordInspector) Inspect(ctx context.Context, candidate domain.CandidateSource, interests []string) (float64, error) {
	if candidate.Kind != domain.KindBlog || len(interests) == 0 {
		return 0, nil
	}

	k.mu.Lock()
	if score, ok := k.cache[candidate.Identity]; ok {
		k.mu.Unlock()
		return score, nil
	}
	k.mu.Unlock()

	text, err := k.fetchText(ctx, candidate.Identity)
	if err != nil {
		lgr.Printf("[DEBUG] no inspectable content for %s: %v", candidate.Identity, err)
		text = ""
	}

	score := MatchFraction(text, interests)

	k.mu.Lock()
	k.cache[candidate.Identity] = score
	k.mu.Unlock()
	return score, nil
}

// fetchText retrieves the candidate page and extracts its main text
func (k *KeywordInspector) fetchText(ctx context.Context, urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", urlStr)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Feedscout/1.0)")

	resp, err := k.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, urlStr)
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		Deduplicate:     true,
		OriginalURL:     parsedURL,
	}

	result, err := trafilatura.Extract(resp.Body, opts)
	if err != nil {
		return "", fmt.Errorf("extract content from %s: %w", urlStr, err)
	}
	if result == nil || result.ContentText == "" {
		return "", fmt.Errorf("no text content extracted from %s", urlStr)
	}

	return strings.TrimSpace(result.ContentText), nil
}

// MatchFraction returns the fraction of interests mentioned in the text, [0,1]
func MatchFraction(text string, interests []string) float64 {
	if text == "" || len(interests) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	matched := 0
	for _, interest := range interests {
		if strings.Contains(lower, strings.ToLower(interest)) {
			matched++
		}
	}

	fraction := float64(matched) / float64(len(interests))
	if fraction > 1 {
		fraction = 1
	}
	return fraction
}
