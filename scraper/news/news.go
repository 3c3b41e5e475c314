// Package news ingests freight-industry RSS feeds: fetch the configured
// feeds, classify each item with the keyword tagger, and upsert the result
// without clobbering user edits.
package news

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/freight-pulse/freight-pulse/utils"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const summaryLimit = 500

// Feed is one RSS source.
type Feed struct {
	Name string
	URL  string
}

// DefaultFeeds are the freight trade publications polled on every run.
var DefaultFeeds = []Feed{
	{Name: "FreightWaves", URL: "https://www.freightwaves.com/news/feed"},
	{Name: "Supply Chain Dive", URL: "https://www.supplychaindive.com/feeds/news/"},
	{Name: "Transport Topics", URL: "https://www.ttnews.com/rss.xml"},
	{Name: "Journal of Commerce", URL: "https://www.joc.com/rss"},
}

// Scraper polls RSS feeds and lands the items as NewsArticle rows.
type Scraper struct {
	feeds    []Feed
	client   *scraper.Client
	db       *depot.Depot
	parser   *gofeed.Parser
	policy   *bluemonday.Policy
	log      *slog.Logger
	fullText bool
}

type entry struct {
	source string
	item   *gofeed.Item
}

func New(db *depot.Depot, client *scraper.Client, feeds []Feed) *Scraper {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}

	parser := gofeed.NewParser()
	parser.Client = client.HTTPClient()

	return &Scraper{
		feeds:  feeds,
		client: client,
		db:     db,
		parser: parser,
		policy: bluemonday.StrictPolicy(),
		log:    slog.Default(),
	}
}

// WithFullText enables per-article page fetches to extract the readable body.
// Off by default since it multiplies request volume by the feed size.
func (s *Scraper) WithFullText() *Scraper {
	s.fullText = true
	return s
}

func (s *Scraper) Name() string {
	return "news"
}

// Scrape runs one full fetch→parse→store pass over every configured feed.
func (s *Scraper) Scrape(ctx context.Context) (scraper.Stats, error) {
	entries, err := s.Fetch(ctx)
	if err != nil {
		return scraper.Stats{}, err
	}

	articles, skipped := s.Parse(ctx, entries)

	stats, err := s.Store(ctx, articles)
	if err != nil {
		return scraper.Stats{}, err
	}
	stats.Skipped = skipped
	return stats, nil
}

// Fetch pulls every feed and flattens the items. A broken feed is logged and
// skipped; the pass only fails when no feed produced anything.
func (s *Scraper) Fetch(ctx context.Context) ([]entry, error) {
	var entries []entry
	okFeeds := 0

	for _, feed := range s.feeds {
		parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			s.log.Error("feed fetch failed", "feed", feed.Name, "url", feed.URL, "error", err)
			continue
		}
		okFeeds++
		for _, item := range parsed.Items {
			entries = append(entries, entry{source: feed.Name, item: item})
		}
	}

	if okFeeds == 0 {
		return nil, fmt.Errorf("%w: all %d feeds failed", scraper.ErrNothingFetched, len(s.feeds))
	}
	return entries, nil
}

// Parse normalizes feed items into articles: sanitized truncated summary,
// keyword tags, importance score and, when enabled, the readable page body.
// Unusable items are dropped and counted.
func (s *Scraper) Parse(ctx context.Context, entries []entry) ([]*depot.NewsArticle, int) {
	seen := make(map[string]struct{}, len(entries))
	articles := make([]*depot.NewsArticle, 0, len(entries))
	skipped := 0

	for _, e := range entries {
		item := e.item
		if item.Title == "" || item.Link == "" {
			s.log.Warn("skipping feed item without title or link", "feed", e.source)
			skipped++
			continue
		}

		publishedAt := time.Now().UTC()
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC()
		} else if item.Published != "" {
			if t, err := utils.ParseDate(item.Published); err == nil && !t.IsZero() {
				publishedAt = t
			}
		}

		raw := item.Description
		if raw == "" {
			raw = item.Content
		}
		summary := utils.Truncate(utils.CollapseWhitespace(s.policy.Sanitize(raw)), summaryLimit)

		fullContent := ""
		if s.fullText {
			fullContent = s.fetchFullText(ctx, item.Link)
		}

		tags := Classify(item.Title + " " + summary + " " + fullContent)

		article := &depot.NewsArticle{
			Source:      e.source,
			Title:       utils.CollapseWhitespace(item.Title),
			URL:         item.Link,
			PublishedAt: publishedAt,
			Summary:     summary,
			FullContent: fullContent,
			Tags:        strings.Join(tags, ","),
			Importance:  Score(item.Title, tags),
		}
		article.GenerateHash()

		// Feeds overlap and occasionally repeat items; keep the first.
		if _, dup := seen[article.Hash]; dup {
			skipped++
			continue
		}
		seen[article.Hash] = struct{}{}
		articles = append(articles, article)
	}

	return articles, skipped
}

// fetchFullText downloads the article page and extracts the readable body.
// Any failure degrades to an empty body rather than dropping the article.
func (s *Scraper) fetchFullText(ctx context.Context, link string) string {
	pageURL, err := url.Parse(link)
	if err != nil {
		return ""
	}

	body, err := s.client.Get(ctx, link, nil)
	if err != nil {
		s.log.Debug("full-text fetch failed", "url", link, "error", err)
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		s.log.Debug("full-text extraction failed", "url", link, "error", err)
		return ""
	}
	return utils.CollapseWhitespace(article.TextContent)
}

// Store upserts the batch inside a single transaction.
func (s *Scraper) Store(ctx context.Context, articles []*depot.NewsArticle) (scraper.Stats, error) {
	stats := scraper.Stats{Records: len(articles)}
	if len(articles) == 0 {
		return stats, nil
	}

	err := s.db.Transaction(ctx, func(tx *depot.Entities) error {
		created, updated, err := tx.Articles.Upsert(ctx, articles)
		stats.Created = created
		stats.Updated = updated
		return err
	})
	if err != nil {
		return scraper.Stats{}, &scraper.StorageError{Op: "news.store", Err: err}
	}
	return stats, nil
}
