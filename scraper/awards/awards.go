// Package awards ingests federal freight contract awards from the
// USASpending search API as benchmark contract-rate observations. Awards are
// reduced to (lane, date) contract markers; the API exposes no mileage, so
// per-mile pricing stays zero until a distance source fills it in.
package awards

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
)

const (
	defaultBaseURL = "https://api.usaspending.gov/api/v2/search/spending_by_award/"
	pageLimit      = 100
	// maxPerPSC caps the backfill per product-service code.
	maxPerPSC    = 2000
	lookbackDays = 730

	// placeholderDistance stands in until the flow-ranking job refreshes the
	// lane with its own estimate.
	placeholderDistance = 500

	source          = "USASpending"
	confidenceScore = 0.8
)

// pscCodes are the freight product-service codes: V1 trucking/motor freight,
// V2 freight forwarding.
var pscCodes = []string{"V1", "V2"}

// award mirrors the API's display-name field keys.
type award struct {
	AwardID        string  `json:"Award ID"`
	RecipientName  string  `json:"Recipient Name"`
	StartDate      string  `json:"Start Date"`
	EndDate        string  `json:"End Date"`
	Amount         float64 `json:"Award Amount"`
	Description    string  `json:"Description"`
	AwardingAgency string  `json:"awarding_agency_name"`
	RecipientState string  `json:"recipient_location_state_code"`
	PopState       string  `json:"pop_state_code"`
}

type apiResponse struct {
	Results []award `json:"results"`
}

// Contract is one usable award: a lane identity plus the award's start date.
type Contract struct {
	AwardID       string
	Origin        string
	Destination   string
	EquipmentType string
	Amount        float64
	Date          string // YYYY-MM-DD
}

// Scraper pulls recent freight awards per PSC code and lands them as
// contract rates.
type Scraper struct {
	client  *scraper.Client
	db      *depot.Depot
	baseURL string
	maxPer  int
	limit   int
	log     *slog.Logger
	now     func() time.Time
}

func New(db *depot.Depot, client *scraper.Client) *Scraper {
	return &Scraper{
		client:  client,
		db:      db,
		baseURL: defaultBaseURL,
		maxPer:  maxPerPSC,
		limit:   pageLimit,
		log:     slog.Default(),
		now:     time.Now,
	}
}

func (s *Scraper) Name() string {
	return "awards"
}

func (s *Scraper) Scrape(ctx context.Context) (scraper.Stats, error) {
	raw, err := s.Fetch(ctx)
	if err != nil {
		return scraper.Stats{}, err
	}

	contracts, skipped := s.Parse(raw)

	stats, err := s.Store(ctx, contracts)
	if err != nil {
		return scraper.Stats{}, err
	}
	stats.Skipped += skipped
	return stats, nil
}

func (s *Scraper) searchPayload(psc string, page int) map[string]any {
	end := s.now()
	start := end.AddDate(0, 0, -lookbackDays)

	return map[string]any{
		"filters": map[string]any{
			"time_period": []map[string]string{
				{
					"start_date": start.Format("2006-01-02"),
					"end_date":   end.Format("2006-01-02"),
				},
			},
			"award_type_codes": []string{"A", "B", "C", "D"},
			"psc_codes":        []string{psc},
		},
		"fields": []string{
			"Award ID",
			"Recipient Name",
			"Start Date",
			"End Date",
			"Award Amount",
			"Description",
			"awarding_agency_name",
			"recipient_location_state_code",
			"pop_state_code",
		},
		"page":  page,
		"limit": s.limit,
		"sort":  "Award Amount",
		"order": "desc",
	}
}

// Fetch walks the page-number pagination for each PSC code until a short
// page or the per-code cap. A failing code is skipped; only a fully empty
// pass is an error.
func (s *Scraper) Fetch(ctx context.Context) ([]award, error) {
	var all []award

	for _, psc := range pscCodes {
		total := 0
		failed := false

		for page := 1; total < s.maxPer; page++ {
			body, err := s.client.PostJSON(ctx, s.baseURL, s.searchPayload(psc, page))
			if err != nil {
				s.log.Error("award search failed", "psc", psc, "page", page, "error", err)
				failed = true
				break
			}

			var res apiResponse
			if err := json.Unmarshal(body, &res); err != nil {
				s.log.Error("award response unreadable", "psc", psc, "page", page, "error", err)
				failed = true
				break
			}
			if len(res.Results) == 0 {
				break
			}

			all = append(all, res.Results...)
			total += len(res.Results)
			s.log.Info("fetched award page", "psc", psc, "page", page, "awards", len(res.Results), "total", total)

			if len(res.Results) < s.limit {
				break
			}
		}
		if !failed {
			s.log.Info("finished award code", "psc", psc, "awards", total)
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no award results for any freight code", scraper.ErrNothingFetched)
	}
	return all, nil
}

// Parse keeps awards with a positive amount and at least one geographic
// endpoint, inferring equipment type from the award description.
func (s *Scraper) Parse(raw []award) ([]Contract, int) {
	contracts := make([]Contract, 0, len(raw))
	skipped := 0

	for _, a := range raw {
		if a.Amount <= 0 {
			skipped++
			continue
		}
		if a.RecipientState == "" && a.PopState == "" {
			skipped++
			continue
		}

		origin := a.RecipientState
		if origin == "" {
			origin = "Unknown"
		}
		destination := a.PopState
		if destination == "" {
			destination = "Unknown"
		}

		date := a.StartDate
		if _, err := time.Parse("2006-01-02", date); err != nil {
			date = s.now().Format("2006-01-02")
		}

		contracts = append(contracts, Contract{
			AwardID:       a.AwardID,
			Origin:        origin,
			Destination:   destination,
			EquipmentType: EquipmentFromDescription(a.Description),
			Amount:        a.Amount,
			Date:          date,
		})
	}
	return contracts, skipped
}

// EquipmentFromDescription infers the trailer type from award prose,
// defaulting to a dry van.
func EquipmentFromDescription(description string) string {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "reefer") || strings.Contains(lower, "refrigerat"):
		return "reefer"
	case strings.Contains(lower, "flatbed") || strings.Contains(lower, "flat bed"):
		return "flatbed"
	default:
		return "van"
	}
}

// Store lands each contract as a rate on its lane. Re-ingesting the same
// window is a no-op thanks to the (lane, date, source) identity; duplicates
// are counted as skipped.
func (s *Scraper) Store(ctx context.Context, contracts []Contract) (scraper.Stats, error) {
	stats := scraper.Stats{Records: len(contracts)}
	if len(contracts) == 0 {
		return stats, nil
	}

	err := s.db.Transaction(ctx, func(tx *depot.Entities) error {
		for _, c := range contracts {
			lane, err := tx.Lanes.GetOrCreate(ctx, c.Origin, c.Destination, c.EquipmentType)
			if err != nil {
				return err
			}
			if lane.DistanceMiles == 0 {
				if err := tx.Lanes.SetDistance(ctx, lane.ID, placeholderDistance); err != nil {
					return err
				}
			}

			createdNew, err := tx.Rates.CreateIfAbsent(ctx, &depot.Rate{
				LaneID:          lane.ID,
				Date:            c.Date,
				RatePerMile:     0,
				IsSpot:          false,
				IsContract:      true,
				Source:          source,
				ConfidenceScore: confidenceScore,
			})
			if err != nil {
				return err
			}
			if createdNew {
				stats.Created++
			} else {
				stats.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return scraper.Stats{}, &scraper.StorageError{Op: "awards.store", Err: err}
	}
	return stats, nil
}
