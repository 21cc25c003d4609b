package db

import "database/sql"

type Institution struct {
	Instid       int64
	Abbreviation string
	Name         string
	Description  string
	Url          string
	Type         string
	Country      string
	CreatedAt    int64
}

type Indicator struct {
	Indicid      int64
	InstInstid   int64
	Abbreviation string
	Name         string
	Group        string
	Description  string
	Unit         string
	CreatedAt    int64
	UpdatedAt    int64
}

type Area struct {
	Areaid      int64
	Code        string
	Name        string
	Description string
	Currency    string
	Population  sql.NullInt64
	CreatedAt   int64
	UpdatedAt   int64
}

type Publish struct {
	PubID         int64
	InstInstid    int64
	IndicIndicid  int64
	AreaAreaid    int64
	DatePublished int64
	DateFrom      int64
	DateUntil     int64
	Value         float64
	IsForecast    int64
}
