// Package imf adapts the IMF datamapper api. Each indicator the store
// knows for the IMF is fetched separately and the nested value maps are
// folded into a single dataset before transforming.
package imf

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
	"macrocast-backend/lib/fetch"
	"macrocast-backend/lib/period"
	"macrocast-backend/services/etl"
	"macrocast-backend/services/etl/store"
)

const DefaultEndpoint = "https://www.imf.org/external/datamapper/api/v1"

type Source struct {
	endpoint string
	client   *fetch.Client
	store    store.Store

	// date the dataset counts as published, jan 1 of the current year
	published time.Time
}

func NewSource(st store.Store) *Source {
	return &Source{
		endpoint:  DefaultEndpoint,
		client:    fetch.NewClient(fetch.Options{}),
		store:     st,
		published: time.Date(time.Now().UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *Source) Name() string        { return "imf" }
func (s *Source) Institution() string { return "IMF" }
func (s *Source) Slug() string {
	return fmt.Sprintf("IMF_WEO_%d", s.published.Year())
}
func (s *Source) RawExt() string { return ".json" }

func (s *Source) Fetcher() *fetch.Client { return s.client }

// SetPublished overrides the publication date, used in tests.
func (s *Source) SetPublished(t time.Time) {
	s.published = t
}

// BuildEndpoints derives one request per indicator already registered
// for the IMF, so the store decides what gets pulled.
func (s *Source) BuildEndpoints(ctx context.Context) ([]fetch.Endpoint, error) {
	inst, err := s.store.GetInstitution(ctx, s.Institution())
	if err != nil {
		return nil, err
	}
	indicators, err := s.store.ListIndicators(ctx, inst.Instid)
	if err != nil {
		return nil, err
	}

	endpoints := make([]fetch.Endpoint, len(indicators))
	for i, indicator := range indicators {
		endpoints[i] = fetch.Endpoint{
			Role: indicator.Abbreviation,
			Url:  fmt.Sprintf("%s/%s", s.endpoint, indicator.Abbreviation),
		}
	}
	return endpoints, nil
}

// values[indicator][area][year] = value
type valueMap map[string]map[string]map[string]*float64

type dataset struct {
	Values valueMap `json:"values"`
}

// Merge deep-merges the per-indicator value dictionaries. The merge is
// keyed, so response order does not matter.
func (s *Source) Merge(responses []fetch.Response) ([]byte, error) {
	merged := dataset{Values: valueMap{}}
	for _, res := range responses {
		var body dataset
		err := json.Unmarshal(res.Body, &body)
		if err != nil {
			return nil, fmt.Errorf("imf: indicator %s: %w", res.Role, err)
		}

		for indicator, areas := range body.Values {
			target, ok := merged.Values[indicator]
			if !ok {
				target = map[string]map[string]*float64{}
				merged.Values[indicator] = target
			}
			for area, years := range areas {
				targetYears, ok := target[area]
				if !ok {
					targetYears = map[string]*float64{}
					target[area] = targetYears
				}
				for year, value := range years {
					targetYears[year] = value
				}
			}
		}
	}
	return json.Marshal(merged)
}

// Transform flattens indicator -> area -> year into normalized annual
// records. Null values are dropped.
func (s *Source) Transform(raw []byte) ([]etl.Record, error) {
	var body dataset
	err := json.Unmarshal(raw, &body)
	if err != nil {
		return nil, err
	}

	var records []etl.Record
	for indicator, areas := range body.Values {
		for area, years := range areas {
			for year, value := range years {
				if value == nil {
					continue
				}
				dateFrom, err := period.Parse(year)
				if err != nil {
					return nil, err
				}
				records = append(records, etl.Record{
					Institution:   s.Institution(),
					Indicator:     indicator,
					Area:          area,
					DatePublished: s.published,
					DateFrom:      dateFrom,
					DateUntil:     period.Until(dateFrom, period.Annual),
					Value:         *value,
					IsForecast:    !dateFrom.Before(s.published),
				})
			}
		}
	}

	// map iteration order is random, keep the artifact deterministic
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Indicator != b.Indicator {
			return a.Indicator < b.Indicator
		}
		if a.Area != b.Area {
			return a.Area < b.Area
		}
		return a.DateFrom.Before(b.DateFrom)
	})
	return records, nil
}

func (s *Source) LastUpload(ctx context.Context) (time.Time, error) {
	return s.published, nil
}
