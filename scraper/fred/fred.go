// Package fred ingests freight-relevant economic indicator series from the
// FRED API and merges them field-by-field into the daily and monthly metric
// tables.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/freight-pulse/freight-pulse/utils"
)

const (
	defaultBaseURL = "https://api.stlouisfed.org/fred/series/observations"
	// observationLimit is the maximum history FRED hands out per request.
	observationLimit = 100000
	// missingValue is FRED's sentinel for a gap in a series.
	missingValue = "."
)

// Granularity routes a series into the daily or the monthly fact table.
type Granularity int

const (
	Daily Granularity = iota
	Monthly
)

// Series describes one indicator: which table it lands in and which column
// it fills.
type Series struct {
	ID     string
	Name   string
	Table  Granularity
	Column string
}

// Catalog is the fixed set of indicator series polled on every run.
var Catalog = []Series{
	{ID: "IPMAN", Name: "Industrial Production: Manufacturing", Table: Monthly, Column: "industrial_production"},
	{ID: "BSCICP03USM665S", Name: "Business Confidence: Manufacturing (US)", Table: Monthly, Column: "ism_pmi"},
	{ID: "RSXFS", Name: "Retail Sales", Table: Monthly, Column: "retail_sales"},
	{ID: "UMCSENT", Name: "Consumer Sentiment", Table: Monthly, Column: "consumer_sentiment"},
	{ID: "TRUCKD11", Name: "Truck Tonnage Index", Table: Monthly, Column: "ata_tonnage_index"},
	{ID: "FRGSHPUSM649NCIS", Name: "Cass Freight Index: Shipments", Table: Monthly, Column: "cass_shipments_index"},
	{ID: "FRGEXPUSM649NCIS", Name: "Cass Freight Index: Expenditures", Table: Monthly, Column: "cass_expenditures_index"},
	{ID: "GASREGW", Name: "Regular Gas Price (Weekly)", Table: Daily, Column: "gas_price"},
	{ID: "DCOILWTICO", Name: "Crude Oil WTI", Table: Daily, Column: "oil_price"},
}

// Scraper pulls every catalog series and lands the observations as per-field
// metric merges.
type Scraper struct {
	client  *scraper.Client
	db      *depot.Depot
	apiKey  string
	baseURL string
	catalog []Series
	log     *slog.Logger
}

func New(db *depot.Depot, client *scraper.Client, apiKey string) *Scraper {
	return &Scraper{
		client:  client,
		db:      db,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		catalog: Catalog,
		log:     slog.Default(),
	}
}

func (s *Scraper) Name() string {
	return "fred"
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type apiResponse struct {
	Observations []observation `json:"observations"`
}

// seriesData pairs a catalog entry with its raw observations.
type seriesData struct {
	series       Series
	observations []observation
}

// Metric is one validated (period, column, value) merge destined for a fact
// table.
type Metric struct {
	Table  Granularity
	Period string // YYYY-MM-DD for daily, YYYY-MM for monthly
	Column string
	Value  float64
	Source string
}

func (s *Scraper) Scrape(ctx context.Context) (scraper.Stats, error) {
	raw, err := s.Fetch(ctx)
	if err != nil {
		return scraper.Stats{}, err
	}

	metrics, skipped := s.Parse(raw)

	stats, err := s.Store(ctx, metrics)
	if err != nil {
		return scraper.Stats{}, err
	}
	stats.Skipped = skipped
	return stats, nil
}

// Fetch pulls each catalog series. A series that fails is logged and skipped
// so one broken indicator does not take the whole job down; only a fully
// empty pass is an error.
func (s *Scraper) Fetch(ctx context.Context) ([]seriesData, error) {
	var out []seriesData

	for _, series := range s.catalog {
		params := url.Values{}
		params.Set("series_id", series.ID)
		params.Set("file_type", "json")
		params.Set("sort_order", "desc")
		params.Set("limit", strconv.Itoa(observationLimit))
		if s.apiKey != "" {
			params.Set("api_key", s.apiKey)
		}

		body, err := s.client.Get(ctx, s.baseURL, params)
		if err != nil {
			s.log.Error("series fetch failed", "series", series.ID, "error", err)
			continue
		}

		var res apiResponse
		if err := json.Unmarshal(body, &res); err != nil {
			s.log.Error("series response unreadable", "series", series.ID, "error", err)
			continue
		}
		if len(res.Observations) == 0 {
			s.log.Warn("series returned no observations", "series", series.ID)
			continue
		}

		s.log.Info("fetched series", "series", series.ID, "observations", len(res.Observations))
		out = append(out, seriesData{series: series, observations: res.Observations})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: all %d series failed", scraper.ErrNothingFetched, len(s.catalog))
	}
	return out, nil
}

// Parse validates observations and routes them by granularity. The "."
// missing-value sentinel and malformed rows are dropped and counted.
func (s *Scraper) Parse(raw []seriesData) ([]Metric, int) {
	var metrics []Metric
	skipped := 0

	for _, sd := range raw {
		source := "FRED-" + sd.series.ID

		for _, obs := range sd.observations {
			if obs.Value == missingValue {
				skipped++
				continue
			}
			value, err := strconv.ParseFloat(obs.Value, 64)
			if err != nil {
				s.log.Debug("skipping unparseable observation", "series", sd.series.ID, "value", obs.Value)
				skipped++
				continue
			}
			if _, err := time.Parse("2006-01-02", obs.Date); err != nil {
				skipped++
				continue
			}

			period := obs.Date
			if sd.series.Table == Monthly {
				month, err := utils.MonthOf(obs.Date)
				if err != nil {
					skipped++
					continue
				}
				period = month
			}

			metrics = append(metrics, Metric{
				Table:  sd.series.Table,
				Period: period,
				Column: sd.series.Column,
				Value:  value,
				Source: source,
			})
		}
	}
	return metrics, skipped
}

// Store merges every observation into its fact table inside one transaction.
func (s *Scraper) Store(ctx context.Context, metrics []Metric) (scraper.Stats, error) {
	stats := scraper.Stats{Records: len(metrics)}
	if len(metrics) == 0 {
		return stats, nil
	}

	err := s.db.Transaction(ctx, func(tx *depot.Entities) error {
		for _, m := range metrics {
			var err error
			if m.Table == Daily {
				err = tx.Metrics.SetDailyField(ctx, m.Period, m.Column, m.Value, m.Source)
			} else {
				err = tx.Metrics.SetMonthlyField(ctx, m.Period, m.Column, m.Value, m.Source)
			}
			if err != nil {
				return err
			}
			stats.Updated++
		}
		return nil
	})
	if err != nil {
		return scraper.Stats{}, &scraper.StorageError{Op: "fred.store", Err: err}
	}
	return stats, nil
}
