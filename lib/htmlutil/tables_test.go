package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const twoLevelTable = `
<html><body>
<table>
<thead>
<tr><th></th><th colspan="2">Real GDP (%)</th></tr>
<tr><th></th><th>previous</th><th>new</th></tr>
</thead>
<tbody>
<tr><td>2023</td><td>1.2</td><td>1.4</td></tr>
<tr><td>2023:Q4</td><td>0.3</td><td>0.5</td></tr>
</tbody>
</table>
</body></html>`

func TestParseTablesExpandsColspan(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(twoLevelTable))
	require.NoError(t, err)

	tables := ParseTables(doc)
	require.Len(t, tables, 1)

	want := Table{
		Header: [][]string{
			{"", "Real GDP (%)", "Real GDP (%)"},
			{"", "previous", "new"},
		},
		Rows: [][]string{
			{"2023", "1.2", "1.4"},
			{"2023:Q4", "0.3", "0.5"},
		},
	}
	if diff := cmp.Diff(want, tables[0]); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTablesHeaderlessBody(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><th>a</th><th>b</th></tr><tr><td>1</td><td>2</td></tr></table>`,
	))
	require.NoError(t, err)

	tables := ParseTables(doc)
	require.Len(t, tables, 1)
	require.Equal(t, [][]string{{"a", "b"}}, tables[0].Header)
	require.Equal(t, [][]string{{"1", "2"}}, tables[0].Rows)
}
