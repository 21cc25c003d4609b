package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		token string
		want  time.Time
	}{
		{"2023", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-Q1", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-Q3", time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-Q4", time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-06-15", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"March 2022", time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := Parse(c.token)
		require.NoError(t, err, c.token)
		require.Equal(t, c.want, got, c.token)
	}
}

// column headers go through a space-to-dash rewrite before parsing, so
// dashed month-year tokens must resolve like their spaced forms
func TestParseDashedMonthYear(t *testing.T) {
	cases := []struct {
		token string
		want  time.Time
	}{
		{"Sep-2025", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"Dec-2026", time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)},
		{"March-2022", time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := Parse(c.token)
		require.NoError(t, err, c.token)
		require.Equal(t, c.want, got, c.token)
	}
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"not-a-date", "20xx", "2023-Q9", "", "garbage token"} {
		_, err := Parse(token)
		require.Error(t, err, token)

		var perr *ParseError
		require.ErrorAs(t, err, &perr, token)
	}
}

func TestUntil(t *testing.T) {
	from := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), Until(from, Annual))
	require.Equal(t, time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), Until(from, Quarterly))

	require.True(t, Until(from, Annual).After(from))
	require.True(t, Until(from, Quarterly).After(from))
}

func TestFrequencyOf(t *testing.T) {
	require.Equal(t, Annual, FrequencyOf("2023"))
	require.Equal(t, Quarterly, FrequencyOf("2023-Q2"))
}
