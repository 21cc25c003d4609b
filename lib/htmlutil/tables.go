package htmlutil

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Table is a scraped html table with its header rows kept separate from
// the body. Header cells are colspan-expanded so that every header row
// lines up column-for-column with the body rows beneath it. Statistical
// sites love two-level headers, so Header may hold more than one row.
type Table struct {
	Header [][]string
	Rows   [][]string
}

// HeaderLevel returns the given header row, or nil when the table is
// not that deep.
func (t Table) HeaderLevel(level int) []string {
	if level >= len(t.Header) {
		return nil
	}
	return t.Header[level]
}

// ParseTables extracts every <table> in document order.
func ParseTables(doc *goquery.Document) []Table {
	var tables []Table
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		tables = append(tables, parseTable(table))
	})
	return tables
}

func parseTable(table *goquery.Selection) Table {
	var out Table

	table.Find("thead tr").Each(func(_ int, tr *goquery.Selection) {
		out.Header = append(out.Header, parseRow(tr))
	})

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.ParentsFiltered("thead").Length() > 0 {
			return
		}
		// a leading all-<th> row outside a thead is still a header row
		if len(out.Rows) == 0 && tr.Children().Length() > 0 && tr.Children().Length() == tr.Find("th").Length() {
			out.Header = append(out.Header, parseRow(tr))
			return
		}
		out.Rows = append(out.Rows, parseRow(tr))
	})

	return out
}

func parseRow(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		text := CleanText(cell.Text())

		span := 1
		if attr, ok := cell.Attr("colspan"); ok {
			parsed, err := strconv.Atoi(attr)
			if err == nil && parsed > 1 {
				span = parsed
			}
		}
		for i := 0; i < span; i++ {
			cells = append(cells, text)
		}
	})
	return cells
}
