// Package store is the pipeline's view of the relational store: entity
// lookups for institutions, indicators and areas, plus batched inserts
// into the published fact table. Reference entities are created at
// installation time and only ever read here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"macrocast-backend/services/etl/db"
)

// NotFoundError reports a reference entity the store does not know.
type NotFoundError struct {
	Kind string
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Code)
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func (s Store) Queries() *db.Queries {
	return s.qry
}

func (s Store) GetInstitution(ctx context.Context, code string) (db.Institution, error) {
	inst, err := s.qry.GetInstitutionByAbbreviation(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Institution{}, &NotFoundError{Kind: "institution", Code: code}
	}
	return inst, err
}

func (s Store) ListIndicators(ctx context.Context, instID int64) ([]db.Indicator, error) {
	return s.qry.ListIndicatorsByInstitution(ctx, instID)
}

func (s Store) ListAreas(ctx context.Context) ([]db.Area, error) {
	return s.qry.ListAreas(ctx)
}

// LatestPublishedDate returns the newest date_published stored for the
// institution, and false when nothing has been loaded yet.
func (s Store) LatestPublishedDate(ctx context.Context, instID int64, isForecast bool) (time.Time, bool, error) {
	latest, err := s.qry.LatestPublishedDate(ctx, db.LatestPublishedDateParams{
		InstInstid: instID,
		IsForecast: boolToInt(isForecast),
	})
	if err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(latest.Int64, 0).UTC(), true, nil
}

func (s Store) ListHistorical(ctx context.Context, instID int64) ([]db.Publish, error) {
	return s.qry.ListPublishesByInstitution(ctx, db.ListPublishesByInstitutionParams{
		InstInstid: instID,
		IsForecast: 0,
	})
}

// BulkInsert writes facts in transactions of batchSize rows each and
// returns the number inserted.
func (s Store) BulkInsert(ctx context.Context, facts []db.CreatePublishParams, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	inserted := 0
	for start := 0; start < len(facts); start += batchSize {
		end := start + batchSize
		if end > len(facts) {
			end = len(facts)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return inserted, err
		}
		txqry := s.qry.WithTx(tx)

		for _, fact := range facts[start:end] {
			err = txqry.CreatePublish(ctx, fact)
			if err != nil {
				tx.Rollback()
				return inserted, err
			}
		}

		err = tx.Commit()
		if err != nil {
			return inserted, err
		}
		inserted += end - start
	}
	return inserted, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
