// Package pipeline sequences the extract, transform and load stages of
// one source. Stages hand data to each other through files on disk, so
// any stage can be re-run on its own given the previous stage's output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"macrocast-backend/services/etl"
	"macrocast-backend/services/etl/load"
	"macrocast-backend/services/etl/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/etl/pipeline")

type Mode string

const (
	ModeExtract   Mode = "e"
	ModeTransform Mode = "t"
	ModeLoad      Mode = "l"
	ModeETL       Mode = "etl"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExtract, ModeTransform, ModeLoad, ModeETL:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q, use 'e', 't', 'l' or 'etl'", s)
}

type Outcome int

const (
	Completed Outcome = iota
	SkippedUpToDate
)

type Result struct {
	Outcome  Outcome
	Inserted int
}

type Pipeline struct {
	DataDir string
	Store   store.Store
	Load    load.Options
}

// RawPath is where the extract stage leaves the merged raw dataset.
func (p Pipeline) RawPath(src etl.Source) string {
	return filepath.Join(p.DataDir, src.Name(), src.Slug()+".raw"+src.RawExt())
}

// NormalizedPath is where the transform stage leaves the normalized csv.
func (p Pipeline) NormalizedPath(src etl.Source) string {
	return filepath.Join(p.DataDir, src.Name(), src.Slug()+".transformed.csv")
}

// Run executes the requested stage, or the whole sequence for ModeETL.
// A full run first consults the freshness guard: when the store already
// holds data at least as new as the source reports, the run is skipped
// outright.
func (p Pipeline) Run(ctx context.Context, src etl.Source, mode Mode) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", src.Name()),
		attribute.String("mode", string(mode)),
	)

	switch mode {
	case ModeExtract:
		return Result{}, p.Extract(ctx, src)
	case ModeTransform:
		return Result{}, p.Transform(ctx, src)
	case ModeLoad:
		inserted, err := p.runLoad(ctx, src)
		return Result{Inserted: inserted}, err
	case ModeETL:
	default:
		return Result{}, fmt.Errorf("invalid mode %q", mode)
	}

	upToDate, err := p.upToDate(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "freshness check failed")
		return Result{}, err
	}
	if upToDate {
		slog.InfoContext(ctx, "store is up to date, skipping run", "source", src.Name())
		return Result{Outcome: SkippedUpToDate}, nil
	}

	err = p.Extract(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("extract: %w", err)
	}
	err = p.Transform(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("transform: %w", err)
	}
	inserted, err := p.runLoad(ctx, src)
	if err != nil {
		return Result{Inserted: inserted}, fmt.Errorf("load: %w", err)
	}
	return Result{Outcome: Completed, Inserted: inserted}, nil
}

func (p Pipeline) upToDate(ctx context.Context, src etl.Source) (bool, error) {
	upload, err := src.LastUpload(ctx)
	if err != nil {
		return false, err
	}

	inst, err := p.Store.GetInstitution(ctx, src.Institution())
	if err != nil {
		return false, err
	}
	stored, ok, err := p.Store.LatestPublishedDate(ctx, inst.Instid, false)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	slog.DebugContext(ctx, "freshness guard",
		"source", src.Name(),
		"stored", stored.Format(etl.DateLayout),
		"upload", upload.Format(etl.DateLayout),
	)
	return !stored.Before(upload), nil
}

// Extract fetches the source's endpoint manifest concurrently, merges
// the responses and writes the raw dataset artifact.
func (p Pipeline) Extract(ctx context.Context, src etl.Source) error {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	endpoints, err := src.BuildEndpoints(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build endpoints")
		return err
	}
	if len(endpoints) == 0 {
		return &etl.EmptyDataError{Source: src.Name(), Stage: "extract"}
	}

	responses, err := src.Fetcher().FetchConcurrent(ctx, endpoints)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return err
	}

	raw, err := src.Merge(responses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		return err
	}

	path := p.RawPath(src)
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	err = os.WriteFile(path, raw, 0644)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "raw dataset saved",
		"source", src.Name(), "path", path, "bytes", len(raw))
	return nil
}

// Transform reads the raw artifact, runs the adapter's transform and
// writes the normalized csv. Nothing is written when the transform
// fails, so a bad date token never leaves a partial artifact behind.
func (p Pipeline) Transform(ctx context.Context, src etl.Source) error {
	ctx, span := tracer.Start(ctx, "Transform")
	defer span.End()

	raw, err := os.ReadFile(p.RawPath(src))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read raw artifact")
		return err
	}

	records, err := src.Transform(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transform failed")
		return err
	}
	if len(records) == 0 {
		return &etl.EmptyDataError{Source: src.Name(), Stage: "transform"}
	}
	for _, r := range records {
		err = r.Validate()
		if err != nil {
			return err
		}
	}

	path := p.NormalizedPath(src)
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	err = etl.WriteRecordsFile(path, records)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "normalized records saved",
		"source", src.Name(), "path", path, "records", len(records))
	return nil
}

func (p Pipeline) runLoad(ctx context.Context, src etl.Source) (int, error) {
	return load.Load(ctx, p.Store, p.NormalizedPath(src), src.Institution(), p.Load)
}
