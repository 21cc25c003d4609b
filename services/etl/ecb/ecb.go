// Package ecb scrapes the ECB Survey of Professional Forecasters
// summary page for one quarter. The page carries a handful of anchor
// links naming the forecast tables that follow, and the scrape is only
// trusted when the two line up one to one.
package ecb

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"macrocast-backend/lib/fetch"
	"macrocast-backend/lib/htmlutil"
	"macrocast-backend/lib/period"
	"macrocast-backend/services/etl"

	"github.com/PuerkitoBio/goquery"
)

const (
	pageUrlFormat = "https://www.ecb.europa.eu/stats/ecb_surveys/survey_of_professional_forecasters/html/table_3_%dq%d.en.html"

	// every SPF record covers the euro area
	areaCode = "EA17"
)

// anchors whose href marks a forecast table label on the page
var labelFragments = map[string]bool{
	"#inflation":    true,
	"#core":         true,
	"#gdp":          true,
	"#unemployment": true,
}

var indicatorByLabel = map[string]string{
	"Inflation forecasts":         "HICP",
	"Core inflation forecasts":    "CHICP",
	"Real GDP growth forecasts":   "RGDP",
	"Unemployment rate forecasts": "UR",
}

var suffixByMeasure = map[string]string{
	"Mean point estimate": "_MPE",
	"Standard deviation":  "_STD",
}

var yearColumn = regexp.MustCompile(`\b20[0-9]{2}`)

type Source struct {
	client  *fetch.Client
	year    int
	quarter int
}

func NewSource(year, quarter int) *Source {
	return &Source{
		client: fetch.NewClient(fetch.Options{
			BrowserProfile: true,
		}),
		year:    year,
		quarter: quarter,
	}
}

func (s *Source) Name() string        { return "ecb" }
func (s *Source) Institution() string { return "ECB" }
func (s *Source) Slug() string {
	return fmt.Sprintf("ECB_%d-Q%d", s.year, s.quarter)
}
func (s *Source) RawExt() string { return ".html" }

func (s *Source) Fetcher() *fetch.Client { return s.client }

func (s *Source) BuildEndpoints(ctx context.Context) ([]fetch.Endpoint, error) {
	return []fetch.Endpoint{
		{Role: "page", Url: fmt.Sprintf(pageUrlFormat, s.year, s.quarter)},
	}, nil
}

func (s *Source) Merge(responses []fetch.Response) ([]byte, error) {
	if len(responses) != 1 {
		return nil, &etl.ReconciliationError{
			Source: s.Name(),
			Detail: fmt.Sprintf("expected a single page, got %d responses", len(responses)),
		}
	}
	return responses[0].Body, nil
}

// Transform parses the quarter's page. Table labels come from the
// known anchor fragments, tables from the page body; a count mismatch
// between the two aborts the run. Each table unpivots its year and
// quarter columns into one record per window.
func (s *Source) Transform(raw []byte) ([]etl.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	labels := s.tableLabels(doc)
	tables := htmlutil.ParseTables(doc)
	if len(labels) == 0 {
		return nil, &etl.ReconciliationError{Source: s.Name(), Detail: "no table labels found"}
	}
	if len(tables) == 0 {
		return nil, &etl.ReconciliationError{Source: s.Name(), Detail: "no tables found"}
	}
	if len(labels) != len(tables) {
		return nil, &etl.ReconciliationError{
			Source: s.Name(),
			Detail: fmt.Sprintf("%d labels but %d tables", len(labels), len(tables)),
		}
	}

	published := period.QuarterStart(s.year, s.quarter)

	var records []etl.Record
	for i, table := range tables {
		indicator, ok := indicatorByLabel[labels[i]]
		if !ok {
			return nil, &etl.ReconciliationError{
				Source: s.Name(),
				Detail: fmt.Sprintf("unknown table label %q", labels[i]),
			}
		}

		unpivoted, err := s.unpivotTable(table, indicator, published)
		if err != nil {
			return nil, err
		}
		records = append(records, unpivoted...)
	}
	return records, nil
}

// tableLabels records the text of anchors pointing at the known
// fragment identifiers, in document order.
func (s *Source) tableLabels(doc *goquery.Document) []string {
	var labels []string
	for _, anchor := range htmlutil.GetAnchors(doc.Find("a")) {
		if !labelFragments[anchor.Href] || anchor.Name == "" {
			continue
		}
		labels = append(labels, anchor.Name)
	}
	return labels
}

// unpivotTable walks the measure rows and spreads the wide date columns
// into long records. A column counts as a date column only when its
// header contains a 20xx year.
func (s *Source) unpivotTable(table htmlutil.Table, indicator string, published time.Time) ([]etl.Record, error) {
	header := table.HeaderLevel(0)

	var records []etl.Record
	for _, row := range table.Rows {
		if len(row) == 0 {
			continue
		}
		suffix, ok := suffixByMeasure[row[0]]
		if !ok {
			continue
		}

		for col := 1; col < len(row) && col < len(header); col++ {
			token := header[col]
			if !yearColumn.MatchString(token) {
				continue
			}

			dateFrom, err := period.Parse(strings.ReplaceAll(token, " ", "-"))
			if err != nil {
				return nil, err
			}

			cell := strings.TrimSpace(row[col])
			if cell == "" || cell == "N.A." {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}

			records = append(records, etl.Record{
				Institution:   s.Institution(),
				Indicator:     indicator + suffix,
				Area:          areaCode,
				DatePublished: published,
				DateFrom:      dateFrom,
				DateUntil:     period.Until(dateFrom, period.Annual),
				Value:         value,
				IsForecast:    true,
			})
		}
	}
	return records, nil
}

func (s *Source) LastUpload(ctx context.Context) (time.Time, error) {
	return period.QuarterStart(s.year, s.quarter), nil
}
