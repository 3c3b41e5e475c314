package tonnage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractIndex(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		wantOK bool
	}{
		{
			name:   "increased to",
			text:   "The seasonally adjusted index increased to 115.7 in October.",
			want:   115.7,
			wantOK: true,
		},
		{
			name:   "fell to",
			text:   "Tonnage fell to 112.3 compared with September.",
			want:   112.3,
			wantOK: true,
		},
		{
			name:   "index was",
			text:   "In October, the index was 114.1, the association said.",
			want:   114.1,
			wantOK: true,
		},
		{
			name:   "stood at",
			text:   "The not seasonally adjusted index stood at 118.9.",
			want:   118.9,
			wantOK: true,
		},
		{
			name:   "SA index phrasing",
			text:   "The SA index equaled 113.2 in the latest month.",
			want:   113.2,
			wantOK: true,
		},
		{
			name:   "no value",
			text:   "The association discussed market conditions broadly.",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractIndex(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractIndex() ok = %v, wantOK %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ExtractIndex() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthOfRelease(t *testing.T) {
	tests := []struct {
		name string
		url  string
		text string
		want string
	}{
		{
			name: "month from url segment",
			url:  "https://www.trucking.org/news/2024/11/truck-tonnage",
			text: "irrelevant",
			want: "2024-11",
		},
		{
			name: "month from prose",
			url:  "https://www.trucking.org/news/truck-tonnage-latest",
			text: "Truck tonnage rose in October 2024 according to the association.",
			want: "2024-10",
		},
		{
			name: "nothing found",
			url:  "https://www.trucking.org/news/truck-tonnage-latest",
			text: "No date anywhere in this text.",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthOfRelease(tt.url, tt.text); got != tt.want {
				t.Errorf("MonthOfRelease() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiscoverReleases(t *testing.T) {
	html := `<html><body>
		<a href="/news/2024/11/truck-tonnage">ATA Truck Tonnage Index Rose in October</a>
		<a href="https://www.trucking.org/news/2024/10/truck-tonnage">Tonnage Report</a>
		<a href="/news/2024/11/truck-tonnage">ATA Truck Tonnage Index Rose in October</a>
		<a href="/about">About Us</a>
		<a href="#anchor">Tonnage chart</a>
	</body></html>`

	got := DiscoverReleases(mustDoc(t, html))
	want := []string{
		"https://www.trucking.org/news/2024/11/truck-tonnage",
		"https://www.trucking.org/news/2024/10/truck-tonnage",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DiscoverReleases() = %v, want %v", got, want)
	}
}

func TestScraper_Parse_fromPressReleases(t *testing.T) {
	release := `<html><body><p>
		ATA's advanced seasonally adjusted For-Hire Truck Tonnage Index
		increased to 115.7 in October 2024.
	</p></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(release))
	}))
	defer srv.Close()

	landing := `<html><body>
		<a href="` + srv.URL + `/news/2024/11/truck-tonnage">Truck Tonnage Index</a>
	</body></html>`

	s := New(nil, scraper.NewClient())
	outcome := s.Parse(context.Background(), mustDoc(t, landing))

	require.False(t, outcome.NeedsReview)
	require.Equal(t, []Observation{{Month: "2024-11", Index: 115.7}}, outcome.Observations)
}

func TestScraper_Parse_tableFallback(t *testing.T) {
	landing := `<html><body>
		<table>
			<tr><th>Month</th><th>Index</th></tr>
			<tr><td>October 2024</td><td>115.7</td></tr>
			<tr><td>September 2024</td><td>114.2</td></tr>
		</table>
	</body></html>`

	s := New(nil, scraper.NewClient())
	outcome := s.Parse(context.Background(), mustDoc(t, landing))

	require.False(t, outcome.NeedsReview)
	want := []Observation{
		{Month: "2024-10", Index: 115.7},
		{Month: "2024-09", Index: 114.2},
	}
	require.Equal(t, want, outcome.Observations)
}

func TestScraper_Parse_flagsForReview(t *testing.T) {
	landing := `<html><body><p>Economics and industry data overview.</p></body></html>`

	s := New(nil, scraper.NewClient())
	outcome := s.Parse(context.Background(), mustDoc(t, landing))

	if !outcome.NeedsReview {
		t.Fatal("Parse() expected NeedsReview for a page with no extractable data")
	}
	if outcome.Reason == "" {
		t.Error("Parse() NeedsReview outcome should carry a reason")
	}
	if len(outcome.Observations) != 0 {
		t.Errorf("Parse() flagged outcome must carry no observations, got %v", outcome.Observations)
	}
}
