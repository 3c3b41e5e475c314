package cassindex

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParse_fromTable(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<table>
			<tr><th>Month</th><th>Shipments</th><th>Expenditures</th></tr>
			<tr><td>October 2024</td><td>1.102</td><td>3.412</td></tr>
			<tr><td>September 2024</td><td>1.091</td><td></td></tr>
		</table>
	</body></html>`)

	outcome := Parse(doc)
	require.False(t, outcome.NeedsReview)
	require.Len(t, outcome.Observations, 2)

	first := outcome.Observations[0]
	require.Equal(t, "2024-10", first.Month)
	require.Equal(t, 1.102, first.Shipments)
	require.NotNil(t, first.Expenditures)
	require.Equal(t, 3.412, *first.Expenditures)

	second := outcome.Observations[1]
	require.Equal(t, "2024-09", second.Month)
	require.Nil(t, second.Expenditures)
}

func TestParse_fromProse(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>
		In October 2024 the Cass Freight Shipments Index came in at 1.102
		while the Expenditures Index registered 3.412.
	</p></body></html>`)

	outcome := Parse(doc)
	require.False(t, outcome.NeedsReview)
	require.Len(t, outcome.Observations, 1)

	obs := outcome.Observations[0]
	require.Equal(t, "2024-10", obs.Month)
	require.Equal(t, 1.102, obs.Shipments)
	require.NotNil(t, obs.Expenditures)
	require.Equal(t, 3.412, *obs.Expenditures)
}

func TestParse_flagsForReview(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<p>Learn more about our freight audit and payment services.</p>
	</body></html>`)

	outcome := Parse(doc)
	if !outcome.NeedsReview {
		t.Fatal("Parse() expected NeedsReview for a page with no index data")
	}
	if len(outcome.Observations) != 0 {
		t.Errorf("Parse() flagged outcome must carry no observations, got %v", outcome.Observations)
	}
}

func TestParse_proseWithoutShipmentsIsFlagged(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>
		The October 2024 report is now available for download.
	</p></body></html>`)

	outcome := Parse(doc)
	if !outcome.NeedsReview {
		t.Fatal("Parse() expected NeedsReview when no shipments figure is present")
	}
}
