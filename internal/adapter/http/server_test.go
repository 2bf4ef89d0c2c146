package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/ndvi-aggregation-service/internal/adapter/http"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/observability"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource []domain.RawRecord

func (m memSource) Records(_ context.Context) ([]domain.RawRecord, error) { return m, nil }

// failingService is a loaded service whose queries always fail.
type failingService struct {
	*pipeline.Pipeline
	err error
}

func (f failingService) Weekly(context.Context, pipeline.WeeklyQuery) ([]domain.WeeklyRecord, error) {
	return nil, f.err
}

// unencodableService answers comparisons with a value JSON cannot carry.
type unencodableService struct {
	*pipeline.Pipeline
}

func (u unencodableService) Comparison(context.Context, pipeline.ComparisonQuery) (pipeline.Comparison, error) {
	nan := math.NaN()
	rec := domain.WeeklyRecord{FieldKey: "100_A"}
	rec.Bands.Red.WeightedMean = &nan
	return pipeline.Comparison{Weekly: []domain.WeeklyRecord{rec}}, nil
}

func newPipeline(t *testing.T, load bool) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.New(slog.Default(), observability.NewMetricsForTesting(), pipeline.DefaultSettings, 4)
	if !load {
		return p
	}
	src := memSource{
		{KPIN: "100", BlockName: "A", AcquisitionDate: "2024-05-14", SupplyArea: "Latina", ValidPixels: "[0.6, 0.2]"},
		{KPIN: "100", BlockName: "A", AcquisitionDate: "2023-05-16", SupplyArea: "Latina", ValidPixels: "[0.4]"},
		{KPIN: "200", BlockName: "B", AcquisitionDate: "2024-05-15", SupplyArea: "Latina", ValidPixels: "[0.8]"},
		{KPIN: "300", BlockName: "C", AcquisitionDate: "2024-05-15", SupplyArea: "Latina", ValidPixels: "[1e308]"},
	}
	_, err := p.Load(context.Background(), src)
	require.NoError(t, err)
	return p
}

func newTestServer(t *testing.T) *httpadapter.Server {
	t.Helper()
	return httpadapter.NewServer(":0", newPipeline(t, true), slog.Default())
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(t), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotLoaded(t *testing.T) {
	srv := httpadapter.NewServer(":0", newPipeline(t, false), slog.Default())
	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, pipeline.ErrNotLoaded.Error(), body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDatasetStatus(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/dataset")
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[pipeline.Status](t, rec)
	assert.Equal(t, 3, status.Observations)
	assert.Equal(t, 2, status.Fields)
	assert.Equal(t, 1, status.RejectedRows)
	require.Len(t, status.Rejected, 1)
	assert.Equal(t, 4, status.Rejected[0].Row)
	assert.Equal(t, "300_C", status.Rejected[0].FieldKey)
}

func TestDatasetStatus_BeforeLoad(t *testing.T) {
	srv := httpadapter.NewServer(":0", newPipeline(t, false), slog.Default())
	rec := get(t, srv, "/v1/dataset")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"observations":0,"fields":0,"areas":0,"rejected_rows":0,"rejected":[]}`, rec.Body.String())
}

func TestListFields(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/fields")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	fields := decode[[]domain.FieldSummary](t, rec)
	require.Len(t, fields, 2)
	assert.Equal(t, "100_A", fields[0].FieldKey)
	assert.Equal(t, []int{2023, 2024}, fields[0].Seasons)
}

func TestListAreas(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/areas")

	require.Equal(t, http.StatusOK, rec.Code)
	areas := decode[[]domain.AreaSummary](t, rec)
	require.Len(t, areas, 1)
	assert.Equal(t, 2, areas[0].FieldCount)
}

func TestFieldWeekly(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/v1/fields/100_A/weekly?year=2024&start_week=20&end_week=21")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	records := decode[[]map[string]any](t, rec)
	require.Len(t, records, 2)
	assert.Equal(t, "100_A", records[0]["field_key"])
	assert.Equal(t, "2024-05-13T00:00:00Z", records[0]["week_start_date"])
	assert.Equal(t, false, records[0]["filled"])
	assert.Equal(t, true, records[1]["filled"])

	bands := records[1]["bands"].(map[string]any)
	green := bands["green"].(map[string]any)
	assert.Nil(t, green["weighted_mean"], "gap-filled weeks carry null statistics")
}

func TestFieldWeekly_AllSeasons(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/fields/100_A/weekly?start_week=20&end_week=20")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)
}

func TestFieldWeekly_CustomThresholds(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/v1/fields/100_A/weekly?year=2023&start_week=20&end_week=20&lower=0.1&upper=0.35")
	require.Equal(t, http.StatusOK, rec.Code)

	records := decode[[]domain.WeeklyRecord](t, rec)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Bands.Green.TotalPixelCount)
	assert.Equal(t, 1, *records[0].Bands.Green.TotalPixelCount)
}

func TestAreaWeekly(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/v1/areas/Latina/weekly?year=2024&start_week=20&end_week=20&exclude=200_B")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	records := decode[[]domain.AreaRecord](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "area=Latina,exclude=200_B,years=2024", records[0].Cohort)
	assert.Equal(t, 1, records[0].FieldCount)
}

func TestAreaWeekly_EmptyCohort(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/areas/Latina/weekly?exclude=100_A,200_B")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestComparison(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/fields/100_A/comparison?start_week=20&end_week=21")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cmp := decode[pipeline.Comparison](t, rec)
	assert.Equal(t, 2024, cmp.Year)
	assert.Equal(t, "100_A", cmp.Field.FieldKey)
	assert.Len(t, cmp.Weekly, 2)
	assert.Len(t, cmp.Area, 2)
}

func TestQueryErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown field", "/v1/fields/nope/weekly", http.StatusNotFound},
		{"unknown area", "/v1/areas/Atlantis/weekly", http.StatusNotFound},
		{"unknown comparison field", "/v1/fields/nope/comparison", http.StatusNotFound},
		{"inverted thresholds", "/v1/fields/100_A/weekly?lower=0.7&upper=0.2", http.StatusBadRequest},
		{"threshold out of range", "/v1/areas/Latina/weekly?upper=1.5", http.StatusBadRequest},
		{"non-numeric threshold", "/v1/fields/100_A/weekly?lower=abc", http.StatusBadRequest},
		{"bad window", "/v1/fields/100_A/weekly?start_week=30&end_week=10", http.StatusBadRequest},
		{"bad year", "/v1/fields/100_A/weekly?year=twenty", http.StatusBadRequest},
		{"two comparison years", "/v1/fields/100_A/comparison?year=2023&year=2024", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestQueryBeforeLoadReturns503(t *testing.T) {
	srv := httpadapter.NewServer(":0", newPipeline(t, false), slog.Default())
	rec := get(t, srv, "/v1/fields/100_A/weekly")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInternalErrorReturns500(t *testing.T) {
	svc := failingService{Pipeline: newPipeline(t, true), err: fmt.Errorf("aggregate: %w", errors.New("boom"))}
	srv := httpadapter.NewServer(":0", svc, slog.Default())

	rec := get(t, srv, "/v1/fields/100_A/weekly")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "aggregate: boom", decode[map[string]string](t, rec)["error"])
}

func TestEncodeFailureReturns500(t *testing.T) {
	srv := httpadapter.NewServer(":0", unencodableService{Pipeline: newPipeline(t, true)}, slog.Default())

	rec := get(t, srv, "/v1/fields/100_A/comparison")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "encode response", decode[map[string]string](t, rec)["error"])
}
