// Package philadelphia scrapes the Philadelphia Fed Survey of
// Professional Forecasters release page for one quarter. The page
// carries two wide panels, annual and quarterly projections, that
// unpivot and merge into one set of records.
package philadelphia

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
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
	pageUrlFormat = "https://www.philadelphiafed.org/surveys-and-data/real-time-data-research/spf-q%d-%d"

	areaCode = "USA"
)

var indicatorByHeader = map[string]string{
	"Real GDP (%)":          "RGDP",
	"Unemployment Rate (%)": "UR",
	"Payrolls (000s/month)": "PL",
	"Headline CPI":          "HCPI",
	"Core CPI":              "CCPI",
	"Headline PCE":          "HPCE",
	"Core PCE":              "CPCE",
}

// matches both plain years and quarter tokens like "2025-Q1"
var dateToken = regexp.MustCompile(`\b20[0-9]{2}`)

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

func (s *Source) Name() string        { return "philadelphia" }
func (s *Source) Institution() string { return "FRBP" }
func (s *Source) Slug() string {
	return fmt.Sprintf("PHILADELPHIA_SPF_%d-Q%d", s.year, s.quarter)
}
func (s *Source) RawExt() string { return ".html" }

func (s *Source) Fetcher() *fetch.Client { return s.client }

func (s *Source) BuildEndpoints(ctx context.Context) ([]fetch.Endpoint, error) {
	return []fetch.Endpoint{
		{Role: "page", Url: fmt.Sprintf(pageUrlFormat, s.quarter, s.year)},
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

// cell is one unpivoted observation keyed by the window it covers. Two
// panels can both mention a window; the later panel wins on conflict,
// and windows seen in either panel survive the merge.
type cell struct {
	indicator string
	dateFrom  time.Time
	freq      period.Frequency
	value     float64
}

// Transform reads the first two tables off the page, the annual and
// quarterly projection panels, unpivots each and outer-merges them on
// the projection window.
func (s *Source) Transform(raw []byte) ([]etl.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	tables := htmlutil.ParseTables(doc)
	if len(tables) < 2 {
		return nil, &etl.ReconciliationError{
			Source: s.Name(),
			Detail: fmt.Sprintf("expected at least 2 projection panels, got %d tables", len(tables)),
		}
	}

	merged := map[string]cell{}
	for _, table := range tables[:2] {
		cells, err := s.unpivotPanel(table)
		if err != nil {
			return nil, err
		}
		for key, c := range cells {
			merged[key] = c
		}
	}
	if len(merged) == 0 {
		return nil, &etl.EmptyDataError{Source: s.Name(), Stage: "transform"}
	}

	published := period.QuarterStart(s.year, s.quarter)

	records := make([]etl.Record, 0, len(merged))
	for _, c := range merged {
		records = append(records, etl.Record{
			Institution:   s.Institution(),
			Indicator:     c.indicator,
			Area:          areaCode,
			DatePublished: published,
			DateFrom:      c.dateFrom,
			DateUntil:     period.Until(c.dateFrom, c.freq),
			Value:         c.value,
			IsForecast:    true,
		})
	}

	// map iteration order is random, keep the artifact deterministic
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Indicator != b.Indicator {
			return a.Indicator < b.Indicator
		}
		if !a.DateFrom.Equal(b.DateFrom) {
			return a.DateFrom.Before(b.DateFrom)
		}
		return a.DateUntil.Before(b.DateUntil)
	})
	return records, nil
}

// unpivotPanel flattens a panel's two-level header to indicator columns
// and spreads its date rows into cells. Columns whose sub-header reads
// "previous" repeat the prior survey's numbers and are dropped.
func (s *Source) unpivotPanel(table htmlutil.Table) (map[string]cell, error) {
	top := table.HeaderLevel(0)
	sub := table.HeaderLevel(1)

	type column struct {
		index     int
		indicator string
	}
	var columns []column
	for i := 1; i < len(top); i++ {
		if i < len(sub) && strings.EqualFold(strings.TrimSpace(sub[i]), "previous") {
			continue
		}
		indicator, ok := indicatorByHeader[top[i]]
		if !ok {
			continue
		}
		columns = append(columns, column{index: i, indicator: indicator})
	}
	if len(columns) == 0 {
		return nil, &etl.ReconciliationError{
			Source: s.Name(),
			Detail: "panel has no recognizable indicator columns",
		}
	}

	cells := map[string]cell{}
	for _, row := range table.Rows {
		if len(row) == 0 {
			continue
		}
		token := strings.ReplaceAll(strings.TrimSpace(row[0]), ":", "-")
		if !dateToken.MatchString(token) || len(token) > 7 {
			continue
		}

		dateFrom, err := period.Parse(token)
		if err != nil {
			return nil, err
		}
		freq := period.FrequencyOf(token)

		for _, col := range columns {
			if col.index >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[col.index])
			if raw == "" || raw == "N.A." {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}

			key := fmt.Sprintf("%s|%s|%s", col.indicator, token, freq)
			cells[key] = cell{
				indicator: col.indicator,
				dateFrom:  dateFrom,
				freq:      freq,
				value:     value,
			}
		}
	}
	return cells, nil
}

func (s *Source) LastUpload(ctx context.Context) (time.Time, error) {
	return period.QuarterStart(s.year, s.quarter), nil
}
