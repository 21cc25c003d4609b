// Package etl defines the contract shared by every forecast source:
// the normalized record every adapter converges on, the adapter
// interface itself, and the error taxonomy of a pipeline run.
package etl

import (
	"context"
	"fmt"
	"time"
	"macrocast-backend/lib/fetch"
)

// Record is the canonical row shape all adapters must produce. One
// record is one published figure: an institution's value for an
// indicator, over an area, covering [DateFrom, DateUntil).
type Record struct {
	Institution   string
	Indicator     string
	Area          string
	DatePublished time.Time
	DateFrom      time.Time
	DateUntil     time.Time
	Value         float64
	IsForecast    bool
}

// Validate enforces the window ordering every adapter must uphold.
func (r Record) Validate() error {
	if !r.DateFrom.Before(r.DateUntil) {
		return fmt.Errorf(
			"record %s/%s/%s: date_from %s is not before date_until %s",
			r.Institution, r.Indicator, r.Area,
			r.DateFrom.Format(DateLayout), r.DateUntil.Format(DateLayout),
		)
	}
	return nil
}

// Source is the per-institution adapter contract. Extract fans out over
// BuildEndpoints through the shared fetch layer, Merge folds the raw
// responses into a single dataset, and Transform turns that dataset
// into normalized records. Stages communicate through files, so Merge
// output must be self-contained.
type Source interface {
	// short lowercase identifier, doubles as the data subdirectory
	Name() string
	// institution code the records belong to, e.g. "OECD"
	Institution() string
	// identifies one dataset vintage, used in artifact filenames
	Slug() string
	// file extension of the raw artifact (".csv", ".json", ".html")
	RawExt() string

	Fetcher() *fetch.Client
	BuildEndpoints(ctx context.Context) ([]fetch.Endpoint, error)
	Merge(responses []fetch.Response) ([]byte, error)
	Transform(raw []byte) ([]Record, error)

	// the source's externally reported last publication date, used by
	// the freshness guard before a full etl run
	LastUpload(ctx context.Context) (time.Time, error)
}

// ReconciliationError reports a structural mismatch in scraped data,
// e.g. fewer table labels than tables. It aborts the adapter's run.
type ReconciliationError struct {
	Source string
	Detail string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s: raw data not reconciled: %s", e.Source, e.Detail)
}

// EmptyDataError fails a stage that filtered everything away.
type EmptyDataError struct {
	Source string
	Stage  string
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("%s: %s stage produced zero rows", e.Source, e.Stage)
}
