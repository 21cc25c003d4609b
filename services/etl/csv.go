package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

var csvHeader = []string{
	"institution_code",
	"indicator_code",
	"area_code",
	"date_published",
	"date_from",
	"date_until",
	"value",
	"is_forecast",
}

func WriteRecords(w io.Writer, records []Record) error {
	out := csv.NewWriter(w)

	err := out.Write(csvHeader)
	if err != nil {
		return err
	}
	for _, r := range records {
		forecast := "N"
		if r.IsForecast {
			forecast = "Y"
		}
		err = out.Write([]string{
			r.Institution,
			r.Indicator,
			r.Area,
			r.DatePublished.Format(DateLayout),
			r.DateFrom.Format(DateLayout),
			r.DateUntil.Format(DateLayout),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
			forecast,
		})
		if err != nil {
			return err
		}
	}

	out.Flush()
	return out.Error()
}

func WriteRecordsFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteRecords(f, records)
}

func ReadRecords(r io.Reader) ([]Record, error) {
	in := csv.NewReader(r)

	header, err := in.Read()
	if err != nil {
		return nil, err
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(header))
	}

	var records []Record
	for {
		row, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		datePublished, err := time.Parse(DateLayout, row[3])
		if err != nil {
			return nil, err
		}
		dateFrom, err := time.Parse(DateLayout, row[4])
		if err != nil {
			return nil, err
		}
		dateUntil, err := time.Parse(DateLayout, row[5])
		if err != nil {
			return nil, err
		}
		value, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("row %s/%s/%s: bad value %q", row[0], row[1], row[2], row[6])
		}

		records = append(records, Record{
			Institution:   row[0],
			Indicator:     row[1],
			Area:          row[2],
			DatePublished: datePublished,
			DateFrom:      dateFrom,
			DateUntil:     dateUntil,
			Value:         value,
			IsForecast:    row[7] == "Y",
		})
	}
	return records, nil
}

func ReadRecordsFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}
