package db

import (
	"context"
	"database/sql"
)

const getInstitutionByAbbreviation = `
SELECT instid, abbreviation, name, description, url, type, country, created_at
FROM institution
WHERE abbreviation = ?
`

func (q *Queries) GetInstitutionByAbbreviation(ctx context.Context, abbreviation string) (Institution, error) {
	row := q.db.QueryRowContext(ctx, getInstitutionByAbbreviation, abbreviation)
	var i Institution
	err := row.Scan(
		&i.Instid,
		&i.Abbreviation,
		&i.Name,
		&i.Description,
		&i.Url,
		&i.Type,
		&i.Country,
		&i.CreatedAt,
	)
	return i, err
}

const createInstitution = `
INSERT INTO institution (abbreviation, name, description, url, type, country, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateInstitutionParams struct {
	Abbreviation string
	Name         string
	Description  string
	Url          string
	Type         string
	Country      string
	CreatedAt    int64
}

func (q *Queries) CreateInstitution(ctx context.Context, arg CreateInstitutionParams) error {
	_, err := q.db.ExecContext(ctx, createInstitution,
		arg.Abbreviation,
		arg.Name,
		arg.Description,
		arg.Url,
		arg.Type,
		arg.Country,
		arg.CreatedAt,
	)
	return err
}

const listIndicatorsByInstitution = `
SELECT indicid, inst_instid, abbreviation, name, "group", description, unit, created_at, updated_at
FROM indicator
WHERE inst_instid = ?
ORDER BY abbreviation
`

func (q *Queries) ListIndicatorsByInstitution(ctx context.Context, instInstid int64) ([]Indicator, error) {
	rows, err := q.db.QueryContext(ctx, listIndicatorsByInstitution, instInstid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Indicator
	for rows.Next() {
		var i Indicator
		err := rows.Scan(
			&i.Indicid,
			&i.InstInstid,
			&i.Abbreviation,
			&i.Name,
			&i.Group,
			&i.Description,
			&i.Unit,
			&i.CreatedAt,
			&i.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getIndicatorByCode = `
SELECT indicid, inst_instid, abbreviation, name, "group", description, unit, created_at, updated_at
FROM indicator
WHERE inst_instid = ? AND abbreviation = ?
`

type GetIndicatorByCodeParams struct {
	InstInstid   int64
	Abbreviation string
}

func (q *Queries) GetIndicatorByCode(ctx context.Context, arg GetIndicatorByCodeParams) (Indicator, error) {
	row := q.db.QueryRowContext(ctx, getIndicatorByCode, arg.InstInstid, arg.Abbreviation)
	var i Indicator
	err := row.Scan(
		&i.Indicid,
		&i.InstInstid,
		&i.Abbreviation,
		&i.Name,
		&i.Group,
		&i.Description,
		&i.Unit,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createIndicator = `
INSERT INTO indicator (inst_instid, abbreviation, name, "group", description, unit, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateIndicatorParams struct {
	InstInstid   int64
	Abbreviation string
	Name         string
	Group        string
	Description  string
	Unit         string
	CreatedAt    int64
	UpdatedAt    int64
}

func (q *Queries) CreateIndicator(ctx context.Context, arg CreateIndicatorParams) error {
	_, err := q.db.ExecContext(ctx, createIndicator,
		arg.InstInstid,
		arg.Abbreviation,
		arg.Name,
		arg.Group,
		arg.Description,
		arg.Unit,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const listAreas = `
SELECT areaid, code, name, description, currency, population, created_at, updated_at
FROM area
ORDER BY code
`

func (q *Queries) ListAreas(ctx context.Context) ([]Area, error) {
	rows, err := q.db.QueryContext(ctx, listAreas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Area
	for rows.Next() {
		var a Area
		err := rows.Scan(
			&a.Areaid,
			&a.Code,
			&a.Name,
			&a.Description,
			&a.Currency,
			&a.Population,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const getAreaByCode = `
SELECT areaid, code, name, description, currency, population, created_at, updated_at
FROM area
WHERE code = ?
`

func (q *Queries) GetAreaByCode(ctx context.Context, code string) (Area, error) {
	row := q.db.QueryRowContext(ctx, getAreaByCode, code)
	var a Area
	err := row.Scan(
		&a.Areaid,
		&a.Code,
		&a.Name,
		&a.Description,
		&a.Currency,
		&a.Population,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

const createArea = `
INSERT INTO area (code, name, description, currency, population, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateAreaParams struct {
	Code        string
	Name        string
	Description string
	Currency    string
	Population  sql.NullInt64
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateArea(ctx context.Context, arg CreateAreaParams) error {
	_, err := q.db.ExecContext(ctx, createArea,
		arg.Code,
		arg.Name,
		arg.Description,
		arg.Currency,
		arg.Population,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const latestPublishedDate = `
SELECT MAX(date_published)
FROM publishes
WHERE inst_instid = ? AND is_forecast = ?
`

type LatestPublishedDateParams struct {
	InstInstid int64
	IsForecast int64
}

func (q *Queries) LatestPublishedDate(ctx context.Context, arg LatestPublishedDateParams) (sql.NullInt64, error) {
	row := q.db.QueryRowContext(ctx, latestPublishedDate, arg.InstInstid, arg.IsForecast)
	var latest sql.NullInt64
	err := row.Scan(&latest)
	return latest, err
}

const listPublishesByInstitution = `
SELECT pub_id, inst_instid, indic_indicid, area_areaid, date_published, date_from, date_until, value, is_forecast
FROM publishes
WHERE inst_instid = ? AND is_forecast = ?
`

type ListPublishesByInstitutionParams struct {
	InstInstid int64
	IsForecast int64
}

func (q *Queries) ListPublishesByInstitution(ctx context.Context, arg ListPublishesByInstitutionParams) ([]Publish, error) {
	rows, err := q.db.QueryContext(ctx, listPublishesByInstitution, arg.InstInstid, arg.IsForecast)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Publish
	for rows.Next() {
		var p Publish
		err := rows.Scan(
			&p.PubID,
			&p.InstInstid,
			&p.IndicIndicid,
			&p.AreaAreaid,
			&p.DatePublished,
			&p.DateFrom,
			&p.DateUntil,
			&p.Value,
			&p.IsForecast,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const createPublish = `
INSERT INTO publishes (inst_instid, indic_indicid, area_areaid, date_published, date_from, date_until, value, is_forecast)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePublishParams struct {
	InstInstid    int64
	IndicIndicid  int64
	AreaAreaid    int64
	DatePublished int64
	DateFrom      int64
	DateUntil     int64
	Value         float64
	IsForecast    int64
}

func (q *Queries) CreatePublish(ctx context.Context, arg CreatePublishParams) error {
	_, err := q.db.ExecContext(ctx, createPublish,
		arg.InstInstid,
		arg.IndicIndicid,
		arg.AreaAreaid,
		arg.DatePublished,
		arg.DateFrom,
		arg.DateUntil,
		arg.Value,
		arg.IsForecast,
	)
	return err
}
