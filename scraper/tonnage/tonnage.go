// Package tonnage extracts the monthly ATA truck tonnage index from press
// releases. The releases are prose, not an API, so extraction is pattern
// based and the job reports when nothing machine-readable was found instead
// of guessing.
package tonnage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/freight-pulse/freight-pulse/utils"
)

const (
	defaultBaseURL = "https://www.trucking.org/economics-and-industry-data"
	siteRoot       = "https://www.trucking.org"
	// maxReleases bounds the press-release backfill to roughly a year.
	maxReleases = 12
)

// indexPatterns are the phrasings ATA releases use for the headline value,
// tried in order.
var indexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:increased|decreased|rose|fell)\s+to\s+(\d+\.\d+)`),
	regexp.MustCompile(`(?i)index was\s+(\d+\.\d+)`),
	regexp.MustCompile(`(?i)stood at\s+(\d+\.\d+)`),
	regexp.MustCompile(`(?i)SA index.*?(\d+\.\d+)`),
}

// releaseDatePattern matches the /YYYY/MM/ segment press-release URLs carry.
var releaseDatePattern = regexp.MustCompile(`/(\d{4})/(\d{2})/`)

// Observation is one extracted (month, index) pair.
type Observation struct {
	Month string // YYYY-MM
	Index float64
}

// Outcome is the result of a parse pass. When nothing machine-readable was
// found, NeedsReview flags the run for a human instead of storing a guess;
// flagged outcomes are never persisted.
type Outcome struct {
	Observations []Observation
	NeedsReview  bool
	Reason       string
}

// Scraper walks the ATA economics page, follows recent tonnage press
// releases and lands the extracted index values as monthly metric merges.
type Scraper struct {
	client  *scraper.Client
	db      *depot.Depot
	baseURL string
	log     *slog.Logger
}

func New(db *depot.Depot, client *scraper.Client) *Scraper {
	return &Scraper{
		client:  client,
		db:      db,
		baseURL: defaultBaseURL,
		log:     slog.Default(),
	}
}

func (s *Scraper) Name() string {
	return "tonnage"
}

func (s *Scraper) Scrape(ctx context.Context) (scraper.Stats, error) {
	body, err := s.client.Get(ctx, s.baseURL, nil)
	if err != nil {
		return scraper.Stats{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return scraper.Stats{}, &scraper.ParseError{Source: "ata", Err: err}
	}

	outcome := s.Parse(ctx, doc)
	if outcome.NeedsReview {
		s.log.Warn("tonnage extraction needs manual review", "reason", outcome.Reason)
		return scraper.Stats{Skipped: 1}, nil
	}

	return s.Store(ctx, outcome.Observations)
}

// Parse extracts observations from the economics page: press releases first,
// then the page's own tables as a fallback.
func (s *Scraper) Parse(ctx context.Context, doc *goquery.Document) Outcome {
	observations := s.parseReleases(ctx, DiscoverReleases(doc))
	if len(observations) == 0 {
		observations = parseTables(doc)
	}
	if len(observations) == 0 {
		return Outcome{
			NeedsReview: true,
			Reason:      "no index value found in press releases or page tables",
		}
	}
	return Outcome{Observations: observations}
}

// DiscoverReleases collects press-release links from the economics page,
// newest first, capped at maxReleases.
func DiscoverReleases(doc *goquery.Document) []string {
	var links []string
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if len(links) >= maxReleases {
			return
		}
		href, _ := sel.Attr("href")
		text := strings.ToLower(sel.Text())

		if !strings.Contains(text, "tonnage") && !strings.Contains(strings.ToLower(href), "truck-tonnage") {
			return
		}
		switch {
		case strings.HasPrefix(href, "http"):
		case strings.HasPrefix(href, "/"):
			href = siteRoot + href
		default:
			return
		}
		if !seen[href] {
			seen[href] = true
			links = append(links, href)
		}
	})
	return links
}

func (s *Scraper) parseReleases(ctx context.Context, links []string) []Observation {
	var observations []Observation
	months := map[string]bool{}

	for _, link := range links {
		body, err := s.client.Get(ctx, link, nil)
		if err != nil {
			s.log.Warn("press release fetch failed", "url", link, "error", err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			s.log.Warn("press release unreadable", "url", link, "error", err)
			continue
		}
		text := doc.Text()

		index, ok := ExtractIndex(text)
		if !ok {
			continue
		}
		month := MonthOfRelease(link, text)
		if month == "" {
			continue
		}

		// Releases are listed newest first; keep the first value per month.
		if months[month] {
			continue
		}
		months[month] = true
		observations = append(observations, Observation{Month: month, Index: index})
		s.log.Info("extracted tonnage index", "month", month, "index", index)
	}
	return observations
}

// parseTables scans the page's own tables for month|value rows.
func parseTables(doc *goquery.Document) []Observation {
	var observations []Observation

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		month := utils.ExtractMonth(cells.Eq(0).Text())
		if month == "" {
			return
		}
		value, ok := utils.ParseFloat(cells.Eq(1).Text())
		if !ok || value <= 0 {
			return
		}
		observations = append(observations, Observation{Month: month, Index: value})
	})
	return observations
}

// ExtractIndex pulls the headline index value out of press-release prose.
func ExtractIndex(text string) (float64, bool) {
	for _, pattern := range indexPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// MonthOfRelease resolves the month a release covers: the /YYYY/MM/ URL
// segment when present, otherwise a month-name/year pair in the text.
func MonthOfRelease(url, text string) string {
	if m := releaseDatePattern.FindStringSubmatch(url); m != nil {
		return fmt.Sprintf("%s-%s", m[1], m[2])
	}
	return utils.ExtractMonth(text)
}

// Store merges the observations into the monthly fact table.
func (s *Scraper) Store(ctx context.Context, observations []Observation) (scraper.Stats, error) {
	stats := scraper.Stats{Records: len(observations)}
	if len(observations) == 0 {
		return stats, nil
	}

	err := s.db.Transaction(ctx, func(tx *depot.Entities) error {
		for _, obs := range observations {
			if err := tx.Metrics.SetMonthlyField(ctx, obs.Month, "ata_tonnage_index", obs.Index, "ATA"); err != nil {
				return err
			}
			stats.Updated++
		}
		return nil
	})
	if err != nil {
		return scraper.Stats{}, &scraper.StorageError{Op: "tonnage.store", Err: err}
	}
	return stats, nil
}
