package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
	"macrocast-backend/lib/fetch"
	"macrocast-backend/lib/testutil"
	"macrocast-backend/services/etl"
	"macrocast-backend/services/etl/db"
	"macrocast-backend/services/etl/store"

	"github.com/stretchr/testify/require"
)

// surveySource is a minimal adapter backed by an httptest server. Its
// transform emits one historical and one forecast record per run.
type surveySource struct {
	client *fetch.Client
	url    string
	upload time.Time
}

func (s *surveySource) Name() string           { return "survey" }
func (s *surveySource) Institution() string    { return "OECD" }
func (s *surveySource) Slug() string           { return "SURVEY_2025" }
func (s *surveySource) RawExt() string         { return ".csv" }
func (s *surveySource) Fetcher() *fetch.Client { return s.client }

func (s *surveySource) BuildEndpoints(ctx context.Context) ([]fetch.Endpoint, error) {
	return []fetch.Endpoint{{Role: "page", Url: s.url}}, nil
}

func (s *surveySource) Merge(responses []fetch.Response) ([]byte, error) {
	return responses[0].Body, nil
}

func (s *surveySource) Transform(raw []byte) ([]etl.Record, error) {
	historical := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	forecast := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []etl.Record{
		{
			Institution: "OECD", Indicator: "GDPV", Area: "USA",
			DatePublished: s.upload,
			DateFrom:      historical, DateUntil: historical.AddDate(1, 0, 0),
			Value: 2.8,
		},
		{
			Institution: "OECD", Indicator: "GDPV", Area: "USA",
			DatePublished: s.upload,
			DateFrom:      forecast, DateUntil: forecast.AddDate(1, 0, 0),
			Value: 1.9, IsForecast: true,
		},
	}, nil
}

func (s *surveySource) LastUpload(ctx context.Context) (time.Time, error) {
	return s.upload, nil
}

func setup(t *testing.T) (Pipeline, *surveySource) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "pipeline",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw,survey,data\n"))
	}))
	t.Cleanup(server.Close)

	st := store.NewStore(res.DB)
	ctx := context.Background()
	now := time.Now().Unix()

	qry := st.Queries()
	require.NoError(t, qry.CreateInstitution(ctx, db.CreateInstitutionParams{
		Abbreviation: "OECD",
		Name:         "Organisation for Economic Co-operation and Development",
		CreatedAt:    now,
	}))
	inst, err := st.GetInstitution(ctx, "OECD")
	require.NoError(t, err)
	require.NoError(t, qry.CreateIndicator(ctx, db.CreateIndicatorParams{
		InstInstid:   inst.Instid,
		Abbreviation: "GDPV",
		Name:         "Gross domestic product, volume",
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
	require.NoError(t, qry.CreateArea(ctx, db.CreateAreaParams{
		Code:      "USA",
		Name:      "United States",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	src := &surveySource{
		client: fetch.NewClient(fetch.Options{}),
		url:    server.URL,
		upload: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	return Pipeline{DataDir: t.TempDir(), Store: st}, src
}

func TestRunFullSequence(t *testing.T) {
	p, src := setup(t)
	ctx := context.Background()

	result, err := p.Run(ctx, src, ModeETL)
	require.NoError(t, err)
	require.Equal(t, Completed, result.Outcome)
	require.Equal(t, 2, result.Inserted)

	// both stage artifacts are left on disk for re-runs
	_, err = os.Stat(p.RawPath(src))
	require.NoError(t, err)
	_, err = os.Stat(p.NormalizedPath(src))
	require.NoError(t, err)
}

func TestRunSkipsWhenStoreIsFresh(t *testing.T) {
	p, src := setup(t)
	ctx := context.Background()

	result, err := p.Run(ctx, src, ModeETL)
	require.NoError(t, err)
	require.Equal(t, Completed, result.Outcome)

	// the store now holds the upload date, a second full run is a no-op
	result, err = p.Run(ctx, src, ModeETL)
	require.NoError(t, err)
	require.Equal(t, SkippedUpToDate, result.Outcome)
	require.Equal(t, 0, result.Inserted)
}

func TestRunProceedsWhenSourceIsNewer(t *testing.T) {
	p, src := setup(t)
	ctx := context.Background()

	_, err := p.Run(ctx, src, ModeETL)
	require.NoError(t, err)

	// the source reports a fresher publication than what is stored
	src.upload = time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)

	result, err := p.Run(ctx, src, ModeETL)
	require.NoError(t, err)
	require.Equal(t, Completed, result.Outcome)
}

func TestStagesRunIndividually(t *testing.T) {
	p, src := setup(t)
	ctx := context.Background()

	_, err := p.Run(ctx, src, ModeExtract)
	require.NoError(t, err)
	_, err = p.Run(ctx, src, ModeTransform)
	require.NoError(t, err)

	result, err := p.Run(ctx, src, ModeLoad)
	require.NoError(t, err)
	require.Equal(t, 2, result.Inserted)
}

func TestTransformFailsWithoutRawArtifact(t *testing.T) {
	p, src := setup(t)

	_, err := p.Run(context.Background(), src, ModeTransform)
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"e", "t", "l", "etl"} {
		_, err := ParseMode(valid)
		require.NoError(t, err)
	}
	_, err := ParseMode("extract")
	require.Error(t, err)
}
