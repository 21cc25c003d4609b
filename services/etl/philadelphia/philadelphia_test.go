package philadelphia

import (
	"testing"
	"time"
	"macrocast-backend/lib/period"
	"macrocast-backend/lib/testutil"
	"macrocast-backend/services/etl"

	"github.com/stretchr/testify/require"
)

// annual and quarterly projection panels the way the release page lays
// them out, including a "previous" column that repeats last survey's
// numbers and must be dropped.
var page = []byte(`
<html><body>
<table>
<thead>
<tr><th></th><th colspan="2">Real GDP (%)</th><th>Unemployment Rate (%)</th></tr>
<tr><th></th><th>Previous</th><th>New</th><th>New</th></tr>
</thead>
<tr><td>2025</td><td>1.8</td><td>2.1</td><td>4.2</td></tr>
<tr><td>2026</td><td>1.9</td><td>2.0</td><td>N.A.</td></tr>
<tr><td>Annual averages</td><td></td><td></td><td></td></tr>
</table>
<table>
<tr><th></th><th>Real GDP (%)</th></tr>
<tr><td>2025:Q4</td><td>2.4</td></tr>
<tr><td>2025-2029</td><td>2.2</td></tr>
</table>
</body></html>`)

func TestTransform(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "philadelphia"})
	defer cleanup()

	src := NewSource(2025, 4)
	records, err := src.Transform(page)
	require.NoError(t, err)

	published := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, []etl.Record{
		{
			Institution:   "FRBP",
			Indicator:     "RGDP",
			Area:          "USA",
			DatePublished: published,
			DateFrom:      time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Value:         2.1,
			IsForecast:    true,
		},
		{
			Institution:   "FRBP",
			Indicator:     "RGDP",
			Area:          "USA",
			DatePublished: published,
			DateFrom:      time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Value:         2.4,
			IsForecast:    true,
		},
		{
			Institution:   "FRBP",
			Indicator:     "RGDP",
			Area:          "USA",
			DatePublished: published,
			DateFrom:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
			Value:         2.0,
			IsForecast:    true,
		},
		{
			Institution:   "FRBP",
			Indicator:     "UR",
			Area:          "USA",
			DatePublished: published,
			DateFrom:      time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			DateUntil:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Value:         4.2,
			IsForecast:    true,
		},
	}, records)
}

func TestTransformRequiresTwoPanels(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "philadelphia"})
	defer cleanup()

	src := NewSource(2025, 4)
	_, err := src.Transform([]byte(`
<html><body>
<table><tr><th></th><th>Real GDP (%)</th></tr><tr><td>2025</td><td>2.1</td></tr></table>
</body></html>`))

	var recErr *etl.ReconciliationError
	require.ErrorAs(t, err, &recErr)
}

func TestUnpivotPanelDropsPreviousColumns(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "philadelphia"})
	defer cleanup()

	src := NewSource(2025, 4)
	panel := mustPanel(t, src, page)

	for key, c := range panel {
		require.NotEqual(t, 1.8, c.value, "previous-survey column leaked through: %s", key)
		require.NotEqual(t, 1.9, c.value, "previous-survey column leaked through: %s", key)
	}
}

func TestFrequencyFollowsTokenShape(t *testing.T) {
	require.Equal(t, period.Annual, period.FrequencyOf("2025"))
	require.Equal(t, period.Quarterly, period.FrequencyOf("2025-Q4"))
}

func mustPanel(t *testing.T, src *Source, raw []byte) map[string]cell {
	t.Helper()

	records, err := src.Transform(raw)
	require.NoError(t, err)

	panel := map[string]cell{}
	for _, r := range records {
		panel[r.Indicator+r.DateFrom.Format(etl.DateLayout)] = cell{
			indicator: r.Indicator,
			dateFrom:  r.DateFrom,
			value:     r.Value,
		}
	}
	return panel
}
