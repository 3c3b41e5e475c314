// Package flows ingests the FAF (Freight Analysis Framework) origin-
// destination flow database. The source is one very large CSV, so it is
// streamed row by row and reduced to per-lane tonnage totals in bounded
// memory; the busiest lanes are then ranked into the lanes table.
package flows

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
)

const (
	defaultDataURL = "https://faf.ornl.gov/faf5/data/download_files/FAF5.4.1_2017-2022.csv"
	// defaultTopLanes caps how many ranked lanes are kept from the roughly
	// two million flow rows.
	defaultTopLanes = 5000
)

// Modes kept from the dms_mode column: 1 = truck, 5 = multiple/intermodal.
var truckModes = map[int]bool{1: true, 5: true}

// stateNames maps the two-digit FIPS prefix of a FAF region code.
var stateNames = map[string]string{
	"01": "Alabama", "04": "Arizona", "05": "Arkansas", "06": "California",
	"08": "Colorado", "09": "Connecticut", "10": "Delaware", "12": "Florida",
	"13": "Georgia", "16": "Idaho", "17": "Illinois", "18": "Indiana",
	"19": "Iowa", "20": "Kansas", "21": "Kentucky", "22": "Louisiana",
	"23": "Maine", "24": "Maryland", "25": "Massachusetts", "26": "Michigan",
	"27": "Minnesota", "28": "Mississippi", "29": "Missouri", "30": "Montana",
	"31": "Nebraska", "32": "Nevada", "33": "New Hampshire", "34": "New Jersey",
	"35": "New Mexico", "36": "New York", "37": "North Carolina", "38": "North Dakota",
	"39": "Ohio", "40": "Oklahoma", "41": "Oregon", "42": "Pennsylvania",
	"44": "Rhode Island", "45": "South Carolina", "46": "South Dakota", "47": "Tennessee",
	"48": "Texas", "49": "Utah", "50": "Vermont", "51": "Virginia",
	"53": "Washington", "54": "West Virginia", "55": "Wisconsin", "56": "Wyoming",
}

// LaneVolume is the aggregated annual tonnage of one directed region pair.
type LaneVolume struct {
	OriginCode string
	DestCode   string
	Tons       float64
}

// Scraper streams the flow database and ranks the busiest truck lanes.
type Scraper struct {
	client  *scraper.Client
	db      *depot.Depot
	dataURL string
	topN    int
	log     *slog.Logger
}

func New(db *depot.Depot, client *scraper.Client) *Scraper {
	return &Scraper{
		client:  client,
		db:      db,
		dataURL: defaultDataURL,
		topN:    defaultTopLanes,
		log:     slog.Default(),
	}
}

func (s *Scraper) Name() string {
	return "flows"
}

func (s *Scraper) Scrape(ctx context.Context) (scraper.Stats, error) {
	s.log.Info("streaming flow database, this is a multi-hundred-MB download", "url", s.dataURL)

	body, err := s.client.Stream(ctx, s.dataURL, nil)
	if err != nil {
		return scraper.Stats{}, err
	}
	defer func() {
		_ = body.Close()
	}()

	volumes, skipped, err := Aggregate(body)
	if err != nil {
		return scraper.Stats{}, err
	}
	s.log.Info("aggregated flow rows", "lanes", len(volumes), "skipped_rows", skipped)

	stats, err := s.Store(ctx, TopLanes(volumes, s.topN))
	if err != nil {
		return scraper.Stats{}, err
	}
	stats.Skipped = skipped
	return stats, nil
}

// Aggregate reduces the CSV stream to per-lane tonnage totals. Rows that are
// not truck or intermodal, self-pairs and malformed rows are skipped and
// counted; only an unreadable header or a completely empty dataset is fatal.
func Aggregate(r io.Reader) ([]LaneVolume, int, error) {
	reader := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, &scraper.ParseError{Source: "faf", Err: fmt.Errorf("error reading header: %w", err)}
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	maxCol := 0
	for _, required := range []string{"dms_orig", "dms_dest", "dms_mode", "tons_2022"} {
		i, ok := cols[required]
		if !ok {
			return nil, 0, &scraper.ParseError{Source: "faf", Err: fmt.Errorf("missing column %s", required)}
		}
		if i > maxCol {
			maxCol = i
		}
	}

	type key struct{ orig, dest string }
	totals := map[key]float64{}
	skipped := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		// FieldsPerRecord is -1, so a ragged row can be shorter than the
		// header; it must not be indexed.
		if len(row) <= maxCol {
			skipped++
			continue
		}

		mode, err := strconv.Atoi(strings.TrimSpace(row[cols["dms_mode"]]))
		if err != nil || !truckModes[mode] {
			skipped++
			continue
		}

		orig := strings.TrimSpace(row[cols["dms_orig"]])
		dest := strings.TrimSpace(row[cols["dms_dest"]])
		if orig == "" || dest == "" || orig == dest {
			skipped++
			continue
		}

		tons, err := strconv.ParseFloat(strings.TrimSpace(row[cols["tons_2022"]]), 64)
		if err != nil {
			skipped++
			continue
		}
		// ReuseRecord means row fields share a buffer that the next Read
		// overwrites; clone before keeping them as map keys.
		totals[key{strings.Clone(orig), strings.Clone(dest)}] += tons
	}

	if len(totals) == 0 {
		return nil, skipped, fmt.Errorf("%w: no truck flows in dataset", scraper.ErrNothingFetched)
	}

	volumes := make([]LaneVolume, 0, len(totals))
	for k, tons := range totals {
		volumes = append(volumes, LaneVolume{OriginCode: k.orig, DestCode: k.dest, Tons: tons})
	}
	return volumes, skipped, nil
}

// TopLanes sorts by tonnage and keeps the busiest n lanes. Ties break on the
// region codes so ranking is deterministic.
func TopLanes(volumes []LaneVolume, n int) []LaneVolume {
	sort.Slice(volumes, func(i, j int) bool {
		if volumes[i].Tons != volumes[j].Tons {
			return volumes[i].Tons > volumes[j].Tons
		}
		if volumes[i].OriginCode != volumes[j].OriginCode {
			return volumes[i].OriginCode < volumes[j].OriginCode
		}
		return volumes[i].DestCode < volumes[j].DestCode
	})
	if len(volumes) > n {
		volumes = volumes[:n]
	}
	return volumes
}

// RegionName turns a FAF region code ("482" = Texas region 2) into a
// readable lane endpoint.
func RegionName(code string) string {
	if len(code) < 2 {
		return "Region_" + code
	}
	state, region := code[:2], code[2:]
	name, ok := stateNames[state]
	if !ok {
		name = "State_" + state
	}
	if region != "" && region != "0" {
		return fmt.Sprintf("%s (Region %s)", name, region)
	}
	return name
}

// EstimateDistance gives a rough lane length from the FIPS prefixes: 500
// miles per state-code step, floored at 100. A stand-in until real
// geocoding; good enough for rate-per-mile sanity checks.
func EstimateDistance(originCode, destCode string) float64 {
	const fallback = 500

	if len(originCode) < 2 || len(destCode) < 2 {
		return fallback
	}
	o, err := strconv.Atoi(originCode[:2])
	if err != nil {
		return fallback
	}
	d, err := strconv.Atoi(destCode[:2])
	if err != nil {
		return fallback
	}

	diff := o - d
	if diff < 0 {
		diff = -diff
	}
	miles := float64(diff * 500)
	if miles < 100 {
		return 100
	}
	return miles
}

// Store upserts the ranked lanes: position in the sorted slice is the volume
// rank, and the distance estimate is refreshed on every run.
func (s *Scraper) Store(ctx context.Context, volumes []LaneVolume) (scraper.Stats, error) {
	stats := scraper.Stats{Records: len(volumes)}
	if len(volumes) == 0 {
		return stats, nil
	}

	err := s.db.Transaction(ctx, func(tx *depot.Entities) error {
		for i, v := range volumes {
			lane, err := tx.Lanes.GetOrCreate(ctx, RegionName(v.OriginCode), RegionName(v.DestCode), "van")
			if err != nil {
				return err
			}
			if lane.VolumeRank == 0 {
				stats.Created++
			} else {
				stats.Updated++
			}

			rank := i + 1
			distance := EstimateDistance(v.OriginCode, v.DestCode)
			if err := tx.Lanes.UpdateRank(ctx, lane.ID, rank, distance); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return scraper.Stats{}, &scraper.StorageError{Op: "flows.store", Err: err}
	}
	return stats, nil
}
