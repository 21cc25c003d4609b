// Package oecd adapts the OECD Economic Outlook SDMX api. The series
// is published as sdmx-csv and fetched in two slices, annual and
// quarterly, that merge into one dataset.
package oecd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"macrocast-backend/lib/fetch"
	"macrocast-backend/lib/period"
	"macrocast-backend/services/etl"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/etl/oecd")

const (
	DefaultEndpoint = "https://sdmx.oecd.org/public/rest/data/OECD.ECO.MAD,DSD_EO@DF_EO"
	searchEndpoint  = "https://dotstat-search.oecd.org/api/search?tenant=oecd"

	roleAnnual    = "annual"
	roleQuarterly = "quarterly"
)

type Source struct {
	endpoint   string
	client     *fetch.Client
	search     *resty.Client
	uploadDate time.Time
}

func NewSource() *Source {
	return &Source{
		endpoint: DefaultEndpoint,
		client: fetch.NewClient(fetch.Options{
			Headers: map[string]string{
				"Accept": "application/vnd.sdmx.data+csv; charset=utf-8; version=2",
			},
		}),
		search: resty.New().SetTimeout(fetch.DefaultTimeout),
	}
}

func (s *Source) Name() string        { return "oecd" }
func (s *Source) Institution() string { return "OECD" }
func (s *Source) Slug() string        { return "OECD_ECONOMIC_OUTLOOK" }
func (s *Source) RawExt() string      { return ".csv" }

func (s *Source) Fetcher() *fetch.Client { return s.client }

// BuildEndpoints returns the annual and quarterly slices of the series.
// The roles let Merge identify each slice regardless of which request
// finished first.
func (s *Source) BuildEndpoints(ctx context.Context) ([]fetch.Endpoint, error) {
	return []fetch.Endpoint{
		{Role: roleAnnual, Url: s.endpoint + "/..A"},
		{Role: roleQuarterly, Url: s.endpoint + "/..Q"},
	}, nil
}

// Merge concatenates the two csv bodies: the header line comes from the
// annual slice only, and trailing blank lines are trimmed from both.
func (s *Source) Merge(responses []fetch.Response) ([]byte, error) {
	var annual, quarterly []byte
	for _, res := range responses {
		switch res.Role {
		case roleAnnual:
			annual = res.Body
		case roleQuarterly:
			quarterly = res.Body
		}
	}
	if annual == nil || quarterly == nil {
		return nil, &etl.ReconciliationError{
			Source: s.Name(),
			Detail: fmt.Sprintf("expected annual and quarterly responses, got %d", len(responses)),
		}
	}

	annualLines := trimTrailingBlank(strings.Split(string(annual), "\n"))
	quarterlyLines := trimTrailingBlank(strings.Split(string(quarterly), "\n"))
	if len(annualLines) == 0 || len(quarterlyLines) < 2 {
		return nil, &etl.EmptyDataError{Source: s.Name(), Stage: "merge"}
	}

	merged := append(annualLines, quarterlyLines[1:]...)
	return []byte(strings.Join(merged, "\n")), nil
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// SetUploadDate overrides the publication date normally fetched from
// the search api, used when transforming offline.
func (s *Source) SetUploadDate(t time.Time) {
	s.uploadDate = t
}

// Transform normalizes the merged sdmx-csv. Rows missing the area,
// indicator, value or frequency column are dropped; the rest classify
// as forecast when their window starts on or after the upload date.
func (s *Source) Transform(raw []byte) ([]etl.Record, error) {
	if s.uploadDate.IsZero() {
		return nil, fmt.Errorf("oecd: upload date unknown, call LastUpload first")
	}

	in := csv.NewReader(bytes.NewReader(raw))
	in.FieldsPerRecord = -1

	header, err := in.Read()
	if err != nil {
		return nil, err
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"REF_AREA", "MEASURE", "OBS_VALUE", "TIME_PERIOD", "FREQ"} {
		_, ok := cols[required]
		if !ok {
			return nil, fmt.Errorf("oecd: missing column %q in sdmx csv", required)
		}
	}

	var records []etl.Record
	for {
		row, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		area := field(row, cols["REF_AREA"])
		indicator := field(row, cols["MEASURE"])
		rawValue := field(row, cols["OBS_VALUE"])
		token := field(row, cols["TIME_PERIOD"])
		freq := period.Frequency(field(row, cols["FREQ"]))
		if area == "" || indicator == "" || rawValue == "" || freq == "" {
			continue
		}

		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			continue
		}

		dateFrom, err := period.Parse(token)
		if err != nil {
			return nil, err
		}

		records = append(records, etl.Record{
			Institution:   s.Institution(),
			Indicator:     indicator,
			Area:          area,
			DatePublished: s.uploadDate,
			DateFrom:      dateFrom,
			DateUntil:     period.Until(dateFrom, freq),
			Value:         value,
			IsForecast:    !dateFrom.Before(s.uploadDate),
		})
	}
	return records, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// LastUpload asks the dotstat search api when the economic outlook
// dataflow was last refreshed. The date is cached so Transform can
// classify forecasts with it.
func (s *Source) LastUpload(ctx context.Context) (time.Time, error) {
	ctx, span := tracer.Start(ctx, "LastUpload")
	defer span.End()

	if !s.uploadDate.IsZero() {
		return s.uploadDate, nil
	}

	payload := map[string]any{
		"lang":   "en",
		"search": "",
		"sort":   "score desc, sname asc, indexationDate desc",
		"facets": map[string]any{
			"Topic": []string{"1|Economy#ECO#|Economic outlook#ECO_OUT#"},
			"datasourceId": []string{
				"dsDisseminateFinalDMZ",
				"dsDisseminateFinalCloud",
			},
		},
		"rows":  20,
		"start": 0,
	}

	res, err := s.search.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(searchEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return time.Time{}, &fetch.TransportError{URL: searchEndpoint, Err: err}
	}
	if res.IsError() {
		return time.Time{}, &fetch.TransportError{URL: searchEndpoint, StatusCode: res.StatusCode()}
	}

	var body struct {
		Dataflows []struct {
			LastUpdated string `json:"lastUpdated"`
		} `json:"dataflows"`
	}
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		return time.Time{}, err
	}
	if len(body.Dataflows) == 0 {
		return time.Time{}, fmt.Errorf("oecd: search api returned no dataflows")
	}

	stamp := body.Dataflows[len(body.Dataflows)-1].LastUpdated
	datePart, _, _ := strings.Cut(stamp, "T")
	uploaded, err := time.Parse(etl.DateLayout, datePart)
	if err != nil {
		return time.Time{}, &period.ParseError{Token: stamp, Err: err}
	}

	s.uploadDate = uploaded
	return uploaded, nil
}
