// Package load maps normalized records onto persisted entities and
// writes the surviving rows into the published fact table. Historical
// rows are reconciled against what the store already holds so an
// unchanged value is never written twice; forecast rows always insert,
// every run being a new vintage.
package load

import (
	"context"
	"log/slog"
	"math"
	"macrocast-backend/services/etl"
	"macrocast-backend/services/etl/db"
	"macrocast-backend/services/etl/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/etl/load")

const DefaultBatchSize = 1000

type Options struct {
	// rows per insert transaction, DefaultBatchSize when zero
	BatchSize int
	// change-detection tolerance for historical values. zero keeps
	// the exact-equality semantics.
	Tolerance float64
}

type factKey struct {
	indicator int64
	area      int64
	dateFrom  int64
	dateUntil int64
}

// Load reads a normalized csv and inserts the rows that survive entity
// resolution and historical reconciliation. It returns the number of
// rows inserted. A missing institution aborts the whole load; a row
// whose indicator or area is unknown is logged and dropped.
func Load(ctx context.Context, st store.Store, csvPath, institutionCode string, opts Options) (int, error) {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(
		attribute.String("institution", institutionCode),
		attribute.String("path", csvPath),
	)

	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}

	records, err := etl.ReadRecordsFile(csvPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read normalized csv")
		return 0, err
	}

	inst, err := st.GetInstitution(ctx, institutionCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve institution")
		return 0, err
	}

	indicators, err := st.ListIndicators(ctx, inst.Instid)
	if err != nil {
		return 0, err
	}
	indicatorIDs := make(map[string]int64, len(indicators))
	for _, ind := range indicators {
		indicatorIDs[ind.Abbreviation] = ind.Indicid
	}

	areas, err := st.ListAreas(ctx)
	if err != nil {
		return 0, err
	}
	areaIDs := make(map[string]int64, len(areas))
	for _, area := range areas {
		areaIDs[area.Code] = area.Areaid
	}

	existing, err := existingHistorical(ctx, st, inst.Instid)
	if err != nil {
		return 0, err
	}

	var facts []db.CreatePublishParams
	skippedUnchanged := 0
	droppedUnresolved := 0

	for _, r := range records {
		indicID, ok := indicatorIDs[r.Indicator]
		if !ok {
			slog.WarnContext(ctx, "dropping row with unknown indicator",
				"institution", institutionCode, "indicator", r.Indicator)
			droppedUnresolved++
			continue
		}
		areaID, ok := areaIDs[r.Area]
		if !ok {
			slog.WarnContext(ctx, "dropping row with unknown area",
				"institution", institutionCode, "area", r.Area)
			droppedUnresolved++
			continue
		}

		fact := db.CreatePublishParams{
			InstInstid:    inst.Instid,
			IndicIndicid:  indicID,
			AreaAreaid:    areaID,
			DatePublished: r.DatePublished.Unix(),
			DateFrom:      r.DateFrom.Unix(),
			DateUntil:     r.DateUntil.Unix(),
			Value:         r.Value,
		}

		if r.IsForecast {
			fact.IsForecast = 1
			facts = append(facts, fact)
			continue
		}

		key := factKey{
			indicator: indicID,
			area:      areaID,
			dateFrom:  fact.DateFrom,
			dateUntil: fact.DateUntil,
		}
		stored, ok := existing[key]
		if ok && valuesEqual(stored, r.Value, opts.Tolerance) {
			skippedUnchanged++
			continue
		}
		facts = append(facts, fact)
	}

	inserted, err := st.BulkInsert(ctx, facts, opts.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk insert failed")
		return inserted, err
	}

	slog.InfoContext(ctx, "load finished",
		"institution", institutionCode,
		"inserted", inserted,
		"skipped_unchanged", skippedUnchanged,
		"dropped_unresolved", droppedUnresolved,
	)
	return inserted, nil
}

// existingHistorical snapshots the institution's stored historical
// facts into a lookup keyed by (indicator, area, window). Built fresh
// per load, never cached across runs.
func existingHistorical(ctx context.Context, st store.Store, instID int64) (map[factKey]float64, error) {
	rows, err := st.ListHistorical(ctx, instID)
	if err != nil {
		return nil, err
	}
	existing := make(map[factKey]float64, len(rows))
	for _, row := range rows {
		existing[factKey{
			indicator: row.IndicIndicid,
			area:      row.AreaAreaid,
			dateFrom:  row.DateFrom,
			dateUntil: row.DateUntil,
		}] = row.Value
	}
	return existing, nil
}

func valuesEqual(a, b, tolerance float64) bool {
	if tolerance == 0 {
		return a == b
	}
	return math.Abs(a-b) <= tolerance
}
