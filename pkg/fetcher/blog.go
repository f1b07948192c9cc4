package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/feedscout/pkg/domain"
)

// BlogFetcher fetches recent posts from a blog's RSS/Atom feed
type BlogFetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
	window  int
}

// NewBlogFetcher creates a blog fetcher. Window caps how many recent
// entries are taken from each feed.
func NewBlogFetcher(timeout time.Duration, window int) *BlogFetcher {
	return &BlogFetcher{
		parser:  gofeed.NewParser(),
		timeout: timeout,
		window:  window,
	}
}

// Fetch retrieves and parses the feed behind the primary source identity
func (f *BlogFetcher) Fetch(ctx context.Context, src domain.PrimarySource) ([]domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(src.Identity, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.Identity, err)
	}

	items := feed.Items
	if len(items) > f.window {
		items = items[:f.window]
	}

	posts := make([]domain.Post, 0, len(items))
	for _, item := range items {
		post := domain.Post{
			Title: item.Title,
			Link:  item.Link,
			Body:  item.Content,
		}
		if post.Body == "" {
			post.Body = item.Description
		}

		// parse publish time
		if item.PublishedParsed != nil {
			post.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			post.Published = *item.UpdatedParsed
		}

		posts = append(posts, post)
	}

	return posts, nil
}
