package fred

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/stretchr/testify/require"
)

func TestScraper_Parse(t *testing.T) {
	s := New(nil, scraper.NewClient(), "")

	raw := []seriesData{
		{
			series: Series{ID: "DCOILWTICO", Table: Daily, Column: "oil_price"},
			observations: []observation{
				{Date: "2024-11-29", Value: "72.44"},
				{Date: "2024-11-28", Value: "."},
				{Date: "2024-11-27", Value: "not-a-number"},
			},
		},
		{
			series: Series{ID: "TRUCKD11", Table: Monthly, Column: "ata_tonnage_index"},
			observations: []observation{
				{Date: "2024-10-01", Value: "114.3"},
				{Date: "bad-date", Value: "113.9"},
			},
		},
	}

	metrics, skipped := s.Parse(raw)

	want := []Metric{
		{Table: Daily, Period: "2024-11-29", Column: "oil_price", Value: 72.44, Source: "FRED-DCOILWTICO"},
		{Table: Monthly, Period: "2024-10", Column: "ata_tonnage_index", Value: 114.3, Source: "FRED-TRUCKD11"},
	}
	if !reflect.DeepEqual(metrics, want) {
		t.Errorf("Parse() = %v, want %v", metrics, want)
	}
	if skipped != 3 {
		t.Errorf("Parse() skipped = %d, want 3", skipped)
	}
}

func TestScraper_Fetch_skipsBrokenSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("series_id") == "BROKEN" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(apiResponse{
			Observations: []observation{{Date: "2024-10-01", Value: "114.3"}},
		})
	}))
	defer srv.Close()

	s := New(nil, scraper.NewClient(), "test-key")
	s.baseURL = srv.URL
	s.catalog = []Series{
		{ID: "BROKEN", Table: Monthly, Column: "ism_pmi"},
		{ID: "TRUCKD11", Table: Monthly, Column: "ata_tonnage_index"},
	}

	raw, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raw, 1)
	require.Equal(t, "TRUCKD11", raw[0].series.ID)
}

func TestScraper_Fetch_allSeriesFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := New(nil, scraper.NewClient(), "")
	s.baseURL = srv.URL

	_, err := s.Fetch(context.Background())
	require.ErrorIs(t, err, scraper.ErrNothingFetched)
}

func TestCatalog_columnsMatchFactTables(t *testing.T) {
	// Every catalog entry must route to a distinct, named column.
	seen := map[string]bool{}
	for _, series := range Catalog {
		if series.Column == "" {
			t.Errorf("series %s has no target column", series.ID)
		}
		key := series.Column
		if seen[key] {
			t.Errorf("column %s targeted by more than one series", key)
		}
		seen[key] = true
	}
}
