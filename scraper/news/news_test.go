package news

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/mmcdole/gofeed"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "capacity and rates",
			text: "Spot rate pressure builds as capacity exits the market",
			want: []string{"capacity", "rates"},
		},
		{
			name: "diesel",
			text: "Diesel prices fell for the third straight week",
			want: []string{"diesel"},
		},
		{
			name: "ltl does not require the acronym",
			text: "Less than truckload carriers report soft demand",
			want: []string{"economy", "ftl", "ltl"},
		},
		{
			name: "no match",
			text: "Company opens new headquarters building",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		title string
		tags  []string
		want  int
	}{
		{
			name:  "baseline",
			title: "Weekly market recap",
			tags:  nil,
			want:  1,
		},
		{
			name:  "priority tag",
			title: "Carrier files for bankruptcy",
			tags:  []string{"bankruptcy"},
			want:  2,
		},
		{
			name:  "priority tag plus urgent title",
			title: "Major capacity shortage hits the spot market",
			tags:  []string{"capacity"},
			want:  3,
		},
		{
			name:  "broad story with three tags",
			title: "Record diesel spike squeezes truckload rates",
			tags:  []string{"diesel", "ftl", "rates"},
			want:  4,
		},
		{
			name:  "all bonuses stack",
			title: "Breaking: unprecedented crisis",
			tags:  []string{"capacity", "rates", "bankruptcy", "merger", "economy"},
			want:  4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.title, tt.tags); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScraper_Parse(t *testing.T) {
	s := New(nil, scraper.NewClient(), nil)
	published := time.Date(2024, 11, 18, 9, 30, 0, 0, time.UTC)

	entries := []entry{
		{
			source: "FreightWaves",
			item: &gofeed.Item{
				Title:           "Major capacity shortage hits the spot market",
				Link:            "https://www.freightwaves.com/news/capacity-shortage",
				Description:     "<p>Carriers report a severe shortage of available trucks as rates climb.</p>",
				PublishedParsed: &published,
			},
		},
		{
			source: "Transport Topics",
			item: &gofeed.Item{
				Title:       "Company opens new headquarters building",
				Link:        "https://www.ttnews.com/articles/new-hq",
				Description: "A ribbon cutting was held on Tuesday.",
			},
		},
		{
			source: "Transport Topics",
			item: &gofeed.Item{
				Title: "Item without a link",
			},
		},
	}

	articles, skipped := s.Parse(context.Background(), entries)

	if len(articles) != 2 {
		t.Fatalf("Parse() returned %d articles, want 2", len(articles))
	}
	if skipped != 1 {
		t.Errorf("Parse() skipped = %d, want 1", skipped)
	}

	urgent, neutral := articles[0], articles[1]

	if urgent.Summary == "" || urgent.Summary[0] == '<' {
		t.Errorf("Parse() summary not sanitized: %q", urgent.Summary)
	}
	if !urgent.PublishedAt.Equal(published) {
		t.Errorf("Parse() published_at = %v, want %v", urgent.PublishedAt, published)
	}
	if urgent.Hash == "" {
		t.Error("Parse() did not assign a content hash")
	}

	wantTags := "capacity,rates"
	if urgent.Tags != wantTags {
		t.Errorf("Parse() tags = %q, want %q", urgent.Tags, wantTags)
	}
	if neutral.Tags != "" {
		t.Errorf("Parse() tags on neutral article = %q, want empty", neutral.Tags)
	}
	if urgent.Importance <= neutral.Importance {
		t.Errorf("Parse() importance: urgent %d should outrank neutral %d",
			urgent.Importance, neutral.Importance)
	}
}

func TestScraper_Parse_dropsDuplicateItems(t *testing.T) {
	s := New(nil, scraper.NewClient(), nil)

	item := &gofeed.Item{
		Title:       "Diesel prices fall again",
		Link:        "https://www.freightwaves.com/news/diesel-falls",
		Description: "Third consecutive weekly decline.",
	}
	entries := []entry{
		{source: "FreightWaves", item: item},
		{source: "FreightWaves", item: item},
	}

	articles, skipped := s.Parse(context.Background(), entries)
	if len(articles) != 1 {
		t.Errorf("Parse() returned %d articles, want 1", len(articles))
	}
	if skipped != 1 {
		t.Errorf("Parse() skipped = %d, want 1", skipped)
	}
}

func TestScraper_Parse_truncatesLongSummaries(t *testing.T) {
	s := New(nil, scraper.NewClient(), nil)

	long := make([]byte, 0, 2000)
	for i := 0; i < 200; i++ {
		long = append(long, []byte("freight js ")...)
	}
	entries := []entry{
		{
			source: "FreightWaves",
			item: &gofeed.Item{
				Title:       "A very long story",
				Link:        "https://www.freightwaves.com/news/long-story",
				Description: string(long),
			},
		},
	}

	articles, _ := s.Parse(context.Background(), entries)
	if len(articles) != 1 {
		t.Fatalf("Parse() returned %d articles, want 1", len(articles))
	}
	if got := len([]rune(articles[0].Summary)); got > summaryLimit+3 {
		t.Errorf("Parse() summary length = %d, want at most %d", got, summaryLimit+3)
	}
}
