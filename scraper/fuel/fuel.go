// Package fuel ingests weekly retail on-highway diesel prices from the EIA
// open-data API, paging through the full region set and mirroring the
// national average into the daily metrics table. Without an API key, or when
// the API is unreachable, it degrades to scraping the published national
// price table.
package fuel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/freight-pulse/freight-pulse/utils"
)

const (
	defaultBaseURL    = "https://api.eia.gov/v2/petroleum/pri/gnd/data/"
	defaultPageSize   = 5000
	defaultMaxRecords = 100000

	// defaultTableURL serves the weekly national series as an HTML table,
	// with no API key required.
	defaultTableURL = "https://www.eia.gov/dnav/pet/hist/LeafHandler.ashx?n=pet&s=emd_epd2d_pte_nus_dpg&f=w"

	// nationalRegion is the EIA duoarea code for the U.S. average series.
	nationalRegion = "NUS"
)

// Scraper pulls the weekly diesel price series for every surveyed region.
type Scraper struct {
	client     *scraper.Client
	db         *depot.Depot
	apiKey     string
	baseURL    string
	tableURL   string
	pageSize   int
	maxRecords int
	log        *slog.Logger
}

func New(db *depot.Depot, client *scraper.Client, apiKey string) *Scraper {
	return &Scraper{
		client:     client,
		db:         db,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		tableURL:   defaultTableURL,
		pageSize:   defaultPageSize,
		maxRecords: defaultMaxRecords,
		log:        slog.Default(),
	}
}

func (s *Scraper) Name() string {
	return "fuel"
}

// record is one (week, region) observation as the API returns it.
type record struct {
	Period            string    `json:"period"`
	DuoArea           string    `json:"duoarea"`
	AreaName          string    `json:"area-name"`
	SeriesDescription string    `json:"series-description"`
	Value             jsonFloat `json:"value"`
}

type apiPage struct {
	Response struct {
		Data []record `json:"data"`
	} `json:"response"`
}

// jsonFloat tolerates the API's habit of switching between numeric and
// quoted-string values across datasets. null decodes to zero.
type jsonFloat float64

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = 0
		return nil
	}
	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("error parsing quoted number %q: %w", s, err)
		}
		*f = jsonFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

func (s *Scraper) Scrape(ctx context.Context) (scraper.Stats, error) {
	prices, skipped, err := s.fetchPrices(ctx)
	if err != nil {
		return scraper.Stats{}, err
	}

	stats, err := s.Store(ctx, prices)
	if err != nil {
		return scraper.Stats{}, err
	}
	stats.Skipped = skipped
	return stats, nil
}

// fetchPrices prefers the open-data API, which carries every surveyed region.
// Without a key, or when the API call fails, it falls back to the national
// table published on the site.
func (s *Scraper) fetchPrices(ctx context.Context) ([]*depot.DieselPrice, int, error) {
	if s.apiKey == "" {
		s.log.Warn("no EIA API key configured, scraping the published price table")
		return s.scrapeTable(ctx)
	}

	records, err := s.Fetch(ctx)
	if err != nil {
		s.log.Warn("EIA API fetch failed, scraping the published price table", "error", err)
		return s.scrapeTable(ctx)
	}
	prices, skipped := s.Parse(records)
	return prices, skipped, nil
}

func (s *Scraper) scrapeTable(ctx context.Context) ([]*depot.DieselPrice, int, error) {
	body, err := s.client.Get(ctx, s.tableURL, nil)
	if err != nil {
		return nil, 0, err
	}
	return s.ParseTable(body)
}

// ParseTable pulls (week, price) pairs out of the site's history table. Only
// the national series is published there, so every row is tagged with the
// national region code and still feeds the daily metrics mirror.
func (s *Scraper) ParseTable(body []byte) ([]*depot.DieselPrice, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, &scraper.ParseError{Source: "eia", Err: err}
	}

	var prices []*depot.DieselPrice
	skipped := 0

	doc.Find("table.FloatTitle tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		day, err := utils.ParseDate(strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil || day.IsZero() {
			skipped++
			return
		}
		price, ok := utils.ParseFloat(cells.Eq(1).Text())
		if !ok || price <= 0 {
			skipped++
			return
		}

		prices = append(prices, &depot.DieselPrice{
			Date:              day.Format("2006-01-02"),
			RegionCode:        nationalRegion,
			RegionName:        "U.S.",
			Price:             price,
			SeriesDescription: "US No 2 Diesel Retail Prices",
			Source:            "EIA",
		})
	})

	if len(prices) == 0 {
		return nil, skipped, fmt.Errorf("%w: no prices in the published table", scraper.ErrNothingFetched)
	}
	return prices, skipped, nil
}

// Fetch pages through the dataset with offset/length until a short page
// arrives. The maxRecords cap guards against the API ignoring the offset and
// feeding the first page forever.
func (s *Scraper) Fetch(ctx context.Context) ([]record, error) {
	var records []record

	for offset := 0; offset < s.maxRecords; offset += s.pageSize {
		params := url.Values{}
		params.Set("api_key", s.apiKey)
		params.Set("frequency", "weekly")
		params.Set("data[0]", "value")
		params.Set("facets[product][]", "EPD2D")
		params.Set("sort[0][column]", "period")
		params.Set("sort[0][direction]", "desc")
		params.Set("offset", strconv.Itoa(offset))
		params.Set("length", strconv.Itoa(s.pageSize))

		body, err := s.client.Get(ctx, s.baseURL, params)
		if err != nil {
			return nil, err
		}

		var page apiPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &scraper.ParseError{Source: "eia", Err: err}
		}

		records = append(records, page.Response.Data...)
		if len(page.Response.Data) < s.pageSize {
			break
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: eia returned an empty dataset", scraper.ErrNothingFetched)
	}
	return records, nil
}

// Parse validates the raw observations. Records without a proper ISO date, a
// region code or a positive price are dropped and counted.
func (s *Scraper) Parse(records []record) ([]*depot.DieselPrice, int) {
	prices := make([]*depot.DieselPrice, 0, len(records))
	skipped := 0

	for _, r := range records {
		if _, err := time.Parse("2006-01-02", r.Period); err != nil {
			s.log.Warn("skipping diesel record with bad period", "period", r.Period)
			skipped++
			continue
		}
		if r.DuoArea == "" || r.Value <= 0 {
			skipped++
			continue
		}

		prices = append(prices, &depot.DieselPrice{
			Date:              r.Period,
			RegionCode:        r.DuoArea,
			RegionName:        r.AreaName,
			Price:             float64(r.Value),
			SeriesDescription: r.SeriesDescription,
			Source:            "EIA",
		})
	}
	return prices, skipped
}

// Store upserts every (week, region) price and mirrors the national series
// into the daily metrics table, all inside one transaction.
func (s *Scraper) Store(ctx context.Context, prices []*depot.DieselPrice) (scraper.Stats, error) {
	stats := scraper.Stats{Records: len(prices)}
	if len(prices) == 0 {
		return stats, nil
	}

	err := s.db.Transaction(ctx, func(tx *depot.Entities) error {
		for _, price := range prices {
			createdNew, err := tx.Diesel.Upsert(ctx, price)
			if err != nil {
				return err
			}
			if createdNew {
				stats.Created++
			} else {
				stats.Updated++
			}

			if price.RegionCode == nationalRegion {
				err := tx.Metrics.SetDailyField(ctx, price.Date, "diesel_usd_per_gal", price.Price, "EIA")
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return scraper.Stats{}, &scraper.StorageError{Op: "fuel.store", Err: err}
	}
	return stats, nil
}
