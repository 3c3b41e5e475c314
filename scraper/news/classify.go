package news

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// tagKeywords is the keyword-to-tag table for the multi-label classifier.
// Matching is case-insensitive substring; any hit activates the tag.
var tagKeywords = map[string][]string{
	"capacity":   {"capacity", "tight", "shortage", "availability", "surplus"},
	"rates":      {"rate", "pricing", "cost", "price", "tariff"},
	"diesel":     {"diesel", "fuel", "energy", "gas"},
	"ltl":        {"less-than-truckload", "ltl", "less than truckload"},
	"ftl":        {"full-truckload", "ftl", "full truckload", "truckload"},
	"contracts":  {"contract", "bid", "rfp", "agreement"},
	"economy":    {"economy", "gdp", "recession", "demand", "growth"},
	"regulation": {"fmcsa", "regulation", "compliance", "dot", "law"},
	"technology": {"technology", "digital", "automation", "software"},
	"labor":      {"driver", "labor", "wage", "employment", "turnover"},
	"merger":     {"merger", "acquisition", "bought", "consolidation"},
	"bankruptcy": {"bankruptcy", "closure", "shutdown", "failed"},
}

// priorityTags bump the importance score when present.
var priorityTags = []string{"capacity", "rates", "bankruptcy", "merger"}

// urgentKeywords bump the importance score when found in the title.
var urgentKeywords = []string{
	"breaking", "major", "crisis", "shortage", "spike",
	"record", "unprecedented", "significant", "urgent",
}

// Classify returns the sorted set of tags whose keywords appear in the text.
func Classify(text string) []string {
	lower := strings.ToLower(text)

	var tags []string
	for tag, keywords := range tagKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Score rates an article 1-5: +1 for a high-priority tag, +1 for an urgent
// keyword in the title, +1 when three or more tags matched.
func Score(title string, tags []string) int {
	score := 1

	if lo.Some(tags, priorityTags) {
		score++
	}

	lowerTitle := strings.ToLower(title)
	for _, kw := range urgentKeywords {
		if strings.Contains(lowerTitle, kw) {
			score++
			break
		}
	}

	if len(tags) >= 3 {
		score++
	}

	if score > 5 {
		score = 5
	}
	return score
}
