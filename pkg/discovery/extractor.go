package discovery

import (
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/umputun/feedscout/pkg/domain"
)

// Extractor scans fetched posts and emits raw citation references.
// It is stateless, identities are emitted as found and canonicalized
// later by the aggregator.
type Extractor struct {
	stripTags *bluemonday.Policy
	skipHosts []string
}

var (
	urlRe     = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	mentionRe = regexp.MustCompile(`@(\w+)`)
)

// defaultSkipHosts are link destinations that are never source candidates
var defaultSkipHosts = []string{"facebook.com", "instagram.com"}

// NewExtractor creates an extractor with the default skip list
func NewExtractor() *Extractor {
	return &Extractor{
		stripTags: bluemonday.StrictPolicy(),
		skipHosts: defaultSkipHosts,
	}
}

// Extract produces one citation reference per distinct URL and per distinct
// mention in each post, stamped with the post's publish time. Malformed posts
// (no timestamp or empty body) are skipped and counted, they never fail the run.
func (e *Extractor) Extract(src domain.PrimarySource, posts []domain.Post) (refs []domain.CitationReference, skipped int) {
	for _, post := range posts {
		if post.Published.IsZero() || strings.TrimSpace(post.Body) == "" {
			skipped++
			continue
		}

		for _, target := range e.extractURLs(post.Body) {
			refs = append(refs, domain.CitationReference{
				Target:   target,
				Kind:     domain.KindBlog,
				CitedBy:  src.Identity,
				Observed: post.Published,
			})
		}

		for _, handle := range e.extractMentions(post.Body) {
			refs = append(refs, domain.CitationReference{
				Target:   handle,
				Kind:     domain.KindSocial,
				CitedBy:  src.Identity,
				Observed: post.Published,
			})
		}
	}

	if skipped > 0 {
		lgr.Printf("[WARN] skipped %d malformed posts from %s", skipped, src.Identity)
	}
	return refs, skipped
}

// extractURLs collects distinct http(s) URLs from the post body, both from
// anchor hrefs in HTML content and from bare URLs in plain text
func (e *Extractor) extractURLs(body string) []string {
	seen := map[string]struct{}{}
	var urls []string

	add := func(raw string) {
		u := strings.TrimRight(raw, ".,;:)")
		if u == "" || e.skip(u) {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	// anchor hrefs from HTML bodies
	if doc, err := html.Parse(strings.NewReader(body)); err == nil {
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.ElementNode && n.Data == "a" {
				for _, attr := range n.Attr {
					if attr.Key == "href" && strings.HasPrefix(attr.Val, "http") {
						add(attr.Val)
					}
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(doc)
	}

	// bare URLs in text
	for _, u := range urlRe.FindAllString(body, -1) {
		add(u)
	}

	return urls
}

// extractMentions collects distinct @-handles from the post body, with HTML
// tags stripped first so attribute values don't produce false matches
func (e *Extractor) extractMentions(body string) []string {
	text := e.stripTags.Sanitize(body)

	seen := map[string]struct{}{}
	var handles []string
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		handle := m[1]
		if _, ok := seen[handle]; ok {
			continue
		}
		seen[handle] = struct{}{}
		handles = append(handles, handle)
	}
	return handles
}

func (e *Extractor) skip(url string) bool {
	for _, host := range e.skipHosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}
