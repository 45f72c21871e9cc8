package http_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/farm-sim-service/internal/adapter/http"
	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/export"
	"github.com/couchcryptid/farm-sim-service/internal/growth"
	"github.com/couchcryptid/farm-sim-service/internal/rng"
	"github.com/couchcryptid/farm-sim-service/internal/simulation"
	"github.com/couchcryptid/farm-sim-service/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOrchestrator(t *testing.T) *simulation.Orchestrator {
	t.Helper()
	w, err := weather.New(weather.DefaultConfig(), rng.Source(7, "weather"))
	require.NoError(t, err)
	e, err := growth.New(growth.DefaultConfig(), rng.Source(7, "growth"))
	require.NoError(t, err)
	return simulation.New(w, e, simulation.Options{Logger: discardLogger(), MaxBatch: 365})
}

// newTestServer returns a server over an orchestrator holding seeded days of history.
func newTestServer(t *testing.T, seeded int) (*httpadapter.Server, *simulation.Orchestrator) {
	t.Helper()
	sim := newOrchestrator(t)
	if seeded > 0 {
		_, err := sim.RunBatch(context.Background(), seeded)
		require.NoError(t, err)
	}
	return httpadapter.NewServer(":0", sim, discardLogger()), sim
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type batchBody struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    []domain.Record `json:"data"`
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenHistoryExists(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	rec := do(t, srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenHistoryEmpty(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- reads ---

func TestData_ReturnsFullHistory(t *testing.T) {
	srv, _ := newTestServer(t, 5)
	rec := do(t, srv, http.MethodGet, "/api/data", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	records := decode[[]domain.Record](t, rec)
	require.Len(t, records, 5)
	assert.Equal(t, "2023-01-01", records[0].Date)
	assert.Equal(t, "2023-01-05", records[4].Date)
}

func TestData_EmptyHistoryIsEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodGet, "/api/data", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestLatest(t *testing.T) {
	srv, _ := newTestServer(t, 3)
	rec := do(t, srv, http.MethodGet, "/api/data/latest", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2023-01-03", decode[domain.Record](t, rec).Date)
}

func TestLatest_404WhenEmpty(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodGet, "/api/data/latest", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
}

func TestEnvironmentalAndProductionProjections(t *testing.T) {
	srv, sim := newTestServer(t, 4)
	all := sim.All()

	rec := do(t, srv, http.MethodGet, "/api/data/environmental", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode[[]domain.Observation](t, rec)
	require.Len(t, env, 4)
	assert.Equal(t, all[2].Environmental.Date, env[2].Date)
	assert.InDelta(t, all[2].Environmental.Temperature, env[2].Temperature, 1e-9)

	rec = do(t, srv, http.MethodGet, "/api/data/production", "")
	require.Equal(t, http.StatusOK, rec.Code)
	prod := decode[[]domain.ProductionDay](t, rec)
	require.Len(t, prod, 4)
	assert.Len(t, prod[0].Fields, len(growth.DefaultFields()))
	assert.Equal(t, all[3].Production.Stats.TotalFields, prod[3].Stats.TotalFields)
}

func TestRange(t *testing.T) {
	srv, _ := newTestServer(t, 30)

	tests := []struct {
		name      string
		query     string
		wantFirst string
		wantLen   int
	}{
		{"date-only end covers the whole day", "start=2023-01-05&end=2023-01-10", "2023-01-05", 6},
		{"single day", "start=2023-01-20&end=2023-01-20", "2023-01-20", 1},
		{"rfc3339 bounds", "start=2023-01-02T00:00:00Z&end=2023-01-03T00:00:00Z", "2023-01-02", 2},
		{"outside history", "start=2024-01-01&end=2024-02-01", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/data/range?"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)
			records := decode[[]domain.Record](t, rec)
			require.Len(t, records, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, records[0].Date)
			}
		})
	}
}

func TestRange_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, 5)

	for _, q := range []string{
		"",
		"start=2023-01-01",
		"end=2023-01-01",
		"start=yesterday&end=2023-01-02",
		"start=2023-01-01&end=02/01/2023",
		"start=2023-01-05&end=2023-01-01",
	} {
		rec := do(t, srv, http.MethodGet, "/api/data/range?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"], q)
	}
}

// --- mutations ---

func TestSimulate_DefaultsToOneDay(t *testing.T) {
	srv, sim := newTestServer(t, 2)
	rec := do(t, srv, http.MethodPost, "/api/simulate", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[batchBody](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "2023-01-03", body.Data[0].Date)
	assert.Equal(t, 3, sim.Len())
}

func TestSimulate_Days(t *testing.T) {
	srv, sim := newTestServer(t, 0)
	rec := do(t, srv, http.MethodPost, "/api/simulate", `{"days": 10}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[batchBody](t, rec)
	assert.Equal(t, 10, body.Count)
	assert.Len(t, body.Data, 10)
	assert.Equal(t, 10, sim.Len())
}

func TestSimulate_InvalidDays(t *testing.T) {
	srv, sim := newTestServer(t, 0)

	for _, body := range []string{
		`{"days": 0}`,
		`{"days": -1}`,
		`{"days": 366}`,
		`{"days": "ten"}`,
		`{"days": 1.5}`,
		`not json`,
	} {
		rec := do(t, srv, http.MethodPost, "/api/simulate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"], body)
	}
	assert.Zero(t, sim.Len())
}

func TestSimulate_WrongMethod(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodGet, "/api/simulate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestForecast_DoesNotMutateHistory(t *testing.T) {
	srv, sim := newTestServer(t, 5)
	rec := do(t, srv, http.MethodPost, "/api/forecast", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[batchBody](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, 7, body.Count)
	assert.Equal(t, "2023-01-06", body.Data[0].Date)
	assert.Equal(t, 5, sim.Len())

	rec = do(t, srv, http.MethodPost, "/api/forecast", `{"days": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[batchBody](t, rec).Count)

	rec = do(t, srv, http.MethodPost, "/api/forecast", `{"days": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset(t *testing.T) {
	srv, sim := newTestServer(t, 5)
	before := sim.RunID()

	rec := do(t, srv, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])

	assert.Zero(t, sim.Len())
	assert.NotEqual(t, before, sim.RunID())
}

// --- export & status ---

func TestExport_CSV(t *testing.T) {
	srv, sim := newTestServer(t, 3)
	rec := do(t, srv, http.MethodGet, "/api/export", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV.ContentType(), rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), sim.RunID()+".csv")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, export.DailyHeader, rows[0])
	assert.Equal(t, "2023-01-03", rows[3][0])
}

func TestExport_XLSX(t *testing.T) {
	srv, _ := newTestServer(t, 3)
	rec := do(t, srv, http.MethodGet, "/api/export?format=xlsx", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
	// xlsx is a zip container
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestExport_UnknownFormat(t *testing.T) {
	srv, _ := newTestServer(t, 3)
	rec := do(t, srv, http.MethodGet, "/api/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	srv, sim := newTestServer(t, 4)
	rec := do(t, srv, http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, sim.RunID(), body["runId"])
	assert.InDelta(t, 4, body["records"], 0)
	assert.Equal(t, "2023-01-04", body["latestDate"])
}

func TestStatus_EmptyHistoryOmitsLatest(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.NotContains(t, body, "latestDate")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	rec := do(t, srv, http.MethodOptions, "/api/simulate", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// --- failures ---

// failingSim wraps a real orchestrator but fails every batch with a store error.
type failingSim struct {
	*simulation.Orchestrator
	err error
}

func (f *failingSim) RunBatch(_ context.Context, _ int) ([]domain.Record, error) {
	return nil, f.err
}

func TestSimulate_InternalErrorReturns500(t *testing.T) {
	sim := &failingSim{Orchestrator: newOrchestrator(t), err: errors.New("disk full")}
	srv := httpadapter.NewServer(":0", sim, discardLogger())

	rec := do(t, srv, http.MethodPost, "/api/simulate", `{"days": 2}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "simulation failed", body["error"])
	assert.Equal(t, "disk full", body["details"])
}

// unsavedSim advances the real orchestrator but reports a persistence failure.
type unsavedSim struct {
	*simulation.Orchestrator
}

func (u *unsavedSim) RunBatch(ctx context.Context, n int) ([]domain.Record, error) {
	records, err := u.Orchestrator.RunBatch(ctx, n)
	if err != nil {
		return records, err
	}
	return records, errors.New("disk full")
}

func TestSimulate_CommittedButUnsavedReturnsRecordsWithWarning(t *testing.T) {
	sim := &unsavedSim{Orchestrator: newOrchestrator(t)}
	srv := httpadapter.NewServer(":0", sim, discardLogger())
	before := sim.Len()

	rec := do(t, srv, http.MethodPost, "/api/simulate", `{"days": 2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])
	assert.Len(t, body["data"], 2)
	assert.Contains(t, body["warning"], "disk full")
	assert.Equal(t, before+2, sim.Len())
}

func TestSimulate_WrappedInvalidArgumentIs400(t *testing.T) {
	sim := &failingSim{
		Orchestrator: newOrchestrator(t),
		err:          fmt.Errorf("batch: %w", domain.ErrInvalidArgument),
	}
	srv := httpadapter.NewServer(":0", sim, discardLogger())

	rec := do(t, srv, http.MethodPost, "/api/simulate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
