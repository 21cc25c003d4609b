package ecb

import (
	"testing"
	"time"
	"macrocast-backend/lib/fetch"
	"macrocast-backend/lib/testutil"
	"macrocast-backend/services/etl"

	"github.com/stretchr/testify/require"
)

var page = []byte(`
<html><body>
<a href="#gdp">Real GDP growth forecasts</a>
<a href="/other/page.html">Something unrelated</a>
<table>
<tr><th></th><th>2025</th><th>2026</th><th>Sep 2026</th></tr>
<tr><td>Mean point estimate</td><td>1.2</td><td>1.5</td><td>1.7</td></tr>
<tr><td>Standard deviation</td><td>0.3</td><td>N.A.</td><td>N.A.</td></tr>
<tr><td>Number of replies</td><td>58</td><td>57</td><td>55</td></tr>
</table>
</body></html>`)

func TestTransform(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "ecb"})
	defer cleanup()

	src := NewSource(2025, 1)
	records, err := src.Transform(page)
	require.NoError(t, err)

	published := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, []etl.Record{
		{
			Institution:   "ECB",
			Indicator:     "RGDP_MPE",
			Area:          "EA17",
			DatePublished: published,
			DateFrom:      time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Value:         1.2,
			IsForecast:    true,
		},
		{
			Institution:   "ECB",
			Indicator:     "RGDP_MPE",
			Area:          "EA17",
			DatePublished: published,
			DateFrom:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
			Value:         1.5,
			IsForecast:    true,
		},
		// rolling-horizon column, published as "Sep 2026" on the page
		{
			Institution:   "ECB",
			Indicator:     "RGDP_MPE",
			Area:          "EA17",
			DatePublished: published,
			DateFrom:      time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2027, time.September, 1, 0, 0, 0, 0, time.UTC),
			Value:         1.7,
			IsForecast:    true,
		},
		{
			Institution:   "ECB",
			Indicator:     "RGDP_STD",
			Area:          "EA17",
			DatePublished: published,
			DateFrom:      time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Value:         0.3,
			IsForecast:    true,
		},
	}, records)
}

func TestTransformRejectsLabelTableMismatch(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "ecb"})
	defer cleanup()

	// two labelled anchors but only one table on the page
	mismatched := []byte(`
<html><body>
<a href="#gdp">Real GDP growth forecasts</a>
<a href="#inflation">Inflation forecasts</a>
<table>
<tr><th></th><th>2025</th></tr>
<tr><td>Mean point estimate</td><td>1.2</td></tr>
</table>
</body></html>`)

	src := NewSource(2025, 1)
	_, err := src.Transform(mismatched)

	var recErr *etl.ReconciliationError
	require.ErrorAs(t, err, &recErr)
}

func TestTransformRejectsEmptyPage(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "ecb"})
	defer cleanup()

	src := NewSource(2025, 1)
	_, err := src.Transform([]byte("<html><body></body></html>"))

	var recErr *etl.ReconciliationError
	require.ErrorAs(t, err, &recErr)
}

func TestMergeRequiresSinglePage(t *testing.T) {
	src := NewSource(2025, 1)

	body, err := src.Merge([]fetch.Response{{Role: "page", Body: page}})
	require.NoError(t, err)
	require.Equal(t, page, body)

	_, err = src.Merge(nil)
	var recErr *etl.ReconciliationError
	require.ErrorAs(t, err, &recErr)
}
