// Package cassindex extracts the monthly Cass Freight Index pair (shipments
// and expenditures) from the Cass transportation-indexes page. Like the
// tonnage job it flags a run for manual review rather than storing guesses
// when nothing machine-readable is found.
package cassindex

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/freight-pulse/freight-pulse/utils"
)

const defaultBaseURL = "https://www.cassinfo.com/freight-audit-payment/cass-transportation-indexes"

var (
	shipmentsPattern    = regexp.MustCompile(`(?i)Shipments Index.*?(\d+\.\d+)`)
	expendituresPattern = regexp.MustCompile(`(?i)Expenditures Index.*?(\d+\.\d+)`)
)

// Observation is one extracted month of index data. Expenditures may be
// missing when only the shipments figure was published.
type Observation struct {
	Month        string // YYYY-MM
	Shipments    float64
	Expenditures *float64
}

// Outcome is the result of a parse pass; NeedsReview outcomes carry no
// observations and are never persisted.
type Outcome struct {
	Observations []Observation
	NeedsReview  bool
	Reason       string
}

// Scraper pulls the Cass indexes page and lands the extracted values as
// monthly metric merges.
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
	return "cassindex"
}

func (s *Scraper) Scrape(ctx context.Context) (scraper.Stats, error) {
	body, err := s.client.Get(ctx, s.baseURL, nil)
	if err != nil {
		return scraper.Stats{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return scraper.Stats{}, &scraper.ParseError{Source: "cass", Err: err}
	}

	outcome := Parse(doc)
	if outcome.NeedsReview {
		s.log.Warn("cass extraction needs manual review", "reason", outcome.Reason)
		return scraper.Stats{Skipped: 1}, nil
	}

	return s.Store(ctx, outcome.Observations)
}

// Parse extracts index rows from the page tables, falling back to prose
// pattern matching for the latest month when no table parses.
func Parse(doc *goquery.Document) Outcome {
	observations := parseTables(doc)
	if len(observations) == 0 {
		observations = parseText(doc.Text())
	}
	if len(observations) == 0 {
		return Outcome{
			NeedsReview: true,
			Reason:      "no index table or recognizable prose on the page",
		}
	}
	return Outcome{Observations: observations}
}

// parseTables reads Month | Shipments | Expenditures rows.
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
		shipments, ok := utils.ParseFloat(cells.Eq(1).Text())
		if !ok || shipments <= 0 {
			return
		}

		obs := Observation{Month: month, Shipments: shipments}
		if cells.Length() >= 3 {
			if v, ok := utils.ParseFloat(cells.Eq(2).Text()); ok && v > 0 {
				obs.Expenditures = &v
			}
		}
		observations = append(observations, obs)
	})
	return observations
}

// parseText extracts a single latest-month observation from prose, used when
// the page ships no parseable table.
func parseText(text string) []Observation {
	month := utils.ExtractMonth(text)
	if month == "" {
		return nil
	}
	m := shipmentsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	shipments, ok := utils.ParseFloat(m[1])
	if !ok {
		return nil
	}

	obs := Observation{Month: month, Shipments: shipments}
	if m := expendituresPattern.FindStringSubmatch(text); m != nil {
		if v, ok := utils.ParseFloat(m[1]); ok {
			obs.Expenditures = &v
		}
	}
	return []Observation{obs}
}

// Store merges the observations into the monthly fact table.
func (s *Scraper) Store(ctx context.Context, observations []Observation) (scraper.Stats, error) {
	stats := scraper.Stats{Records: len(observations)}
	if len(observations) == 0 {
		return stats, nil
	}

	err := s.db.Transaction(ctx, func(tx *depot.Entities) error {
		for _, obs := range observations {
			err := tx.Metrics.SetMonthlyField(ctx, obs.Month, "cass_shipments_index", obs.Shipments, "Cass")
			if err != nil {
				return err
			}
			stats.Updated++

			if obs.Expenditures != nil {
				err := tx.Metrics.SetMonthlyField(ctx, obs.Month, "cass_expenditures_index", *obs.Expenditures, "Cass")
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return scraper.Stats{}, &scraper.StorageError{Op: "cassindex.store", Err: err}
	}
	return stats, nil
}
