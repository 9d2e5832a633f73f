package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/flood-monitor-service/internal/adapter/http"
	"github.com/couchcryptid/flood-monitor-service/internal/domain"
	"github.com/couchcryptid/flood-monitor-service/internal/monitor"
	"github.com/couchcryptid/flood-monitor-service/internal/observability"
)

// --- mocks ---

type stubSource struct {
	warnings   []domain.Warning
	measures   []domain.Measure
	measureErr error
}

func (s *stubSource) FetchStations(_ context.Context, _ string) ([]domain.Station, error) {
	return nil, nil
}

func (s *stubSource) FetchWarnings(_ context.Context) ([]domain.Warning, error) {
	return s.warnings, nil
}

func (s *stubSource) FetchMeasures(_ context.Context, _ string) ([]domain.Measure, error) {
	return s.measures, s.measureErr
}

type stubPolygons struct{}

func (stubPolygons) FetchPolygon(_ context.Context, _ string) (domain.MultiPolygon, error) {
	return domain.MultiPolygon{{{{Lon: -1.0, Lat: 51.0}, {Lon: -1.1, Lat: 51.1}, {Lon: -1.0, Lat: 51.0}}}}, nil
}

func newTestMonitor(src *stubSource) *monitor.Monitor {
	m := monitor.New(src, stubPolygons{}, nil, nil, monitor.NewState(), monitor.Options{
		RefreshInterval:    15 * time.Minute,
		PolygonConcurrency: 1,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	m.State().SetStations([]domain.Station{
		{Notation: "1029TH", Label: "Bourton Dickler", RiverName: "River Dikler", Town: "Little Rissington", Lat: 51.874767, Lon: -1.740083},
		{Notation: "E2043", Label: "Surfleet Sluice", RiverName: "River Glen", Town: "Surfleet", Lat: 52.845991, Lon: -0.100848},
		{Notation: "52119", Label: "Gaw Bridge", RiverName: "River Parrett", Town: "Kingsbury Episcopi", Lat: 50.976043, Lon: -2.793549},
	}, time.Now())
	return m
}

func newTestServer(t *testing.T, src *stubSource) (*httpadapter.Server, *monitor.Monitor) {
	t.Helper()
	m := newTestMonitor(src)
	return httpadapter.NewServer(":0", m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
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
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type listBody[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
}

func TestReadyzFollowsRefresh(t *testing.T) {
	srv, m := newTestServer(t, &stubSource{})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/readyz").Code)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, http.StatusOK, get(t, srv, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- stations ---

func TestStations(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})

	rec := get(t, srv, "/api/v1/stations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[listBody[domain.Station]](t, rec)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "1029TH", body.Items[0].Notation)
}

func TestStations_Filters(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})

	body := decode[listBody[domain.Station]](t, get(t, srv, "/api/v1/stations?river=river+glen"))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "E2043", body.Items[0].Notation)

	body = decode[listBody[domain.Station]](t, get(t, srv, "/api/v1/stations?town=Surfleet&river=River+Dikler"))
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Items)
}

// --- measures ---

func TestMeasures(t *testing.T) {
	src := &stubSource{measures: []domain.Measure{{ID: "m1", Parameter: "level", UnitName: "mASD", LatestReading: 0.412}}}
	srv, m := newTestServer(t, src)

	rec := get(t, srv, "/api/v1/stations/1029TH/measures")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[listBody[domain.Measure]](t, rec)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "level", body.Items[0].Parameter)

	st, ok := m.State().Station("1029TH")
	require.True(t, ok)
	assert.Len(t, st.Measures, 1)
}

func TestMeasures_UnknownStation(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	rec := get(t, srv, "/api/v1/stations/NOPE/measures")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "NOPE")
}

func TestMeasures_UpstreamFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{measureErr: errors.New("status 500")})
	assert.Equal(t, http.StatusBadGateway, get(t, srv, "/api/v1/stations/E2043/measures").Code)
}

// --- warnings ---

type warningBody struct {
	Count     int        `json:"count"`
	UpdatedAt *time.Time `json:"updated_at"`
	Items     []struct {
		ID            string              `json:"id"`
		SeverityLevel int                 `json:"severity_level"`
		PolygonPath   []domain.Coordinate `json:"polygon_path"`
	} `json:"items"`
}

func TestWarnings(t *testing.T) {
	src := &stubSource{warnings: []domain.Warning{
		{ID: "alert", Description: "River Ock", SeverityLevel: 3},
		{ID: "severe", Description: "River Thames", SeverityLevel: 1, PolygonURL: "http://example/polygon"},
		{ID: "warning", Description: "River Thame", SeverityLevel: 2},
	}}
	srv, m := newTestServer(t, src)

	before := decode[warningBody](t, get(t, srv, "/api/v1/warnings"))
	assert.Zero(t, before.Count)
	assert.Nil(t, before.UpdatedAt)

	require.NoError(t, m.Refresh(context.Background()))

	body := decode[warningBody](t, get(t, srv, "/api/v1/warnings"))
	require.Equal(t, 3, body.Count)
	require.NotNil(t, body.UpdatedAt)
	assert.Equal(t, "severe", body.Items[0].ID)
	assert.Len(t, body.Items[0].PolygonPath, 3)
	assert.NotNil(t, body.Items[1].PolygonPath)
	assert.Empty(t, body.Items[1].PolygonPath)

	filtered := decode[warningBody](t, get(t, srv, "/api/v1/warnings?min_level=2"))
	require.Equal(t, 2, filtered.Count)
	assert.Equal(t, "warning", filtered.Items[1].ID)
}

func TestWarnings_InvalidMinLevel(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	for _, v := range []string{"0", "-1", "severe"} {
		assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/warnings?min_level="+v).Code, v)
	}
}

// --- clusters ---

type clusterBody struct {
	Zoom  float64 `json:"zoom"`
	Count int     `json:"count"`
	Items []struct {
		Count        int    `json:"count"`
		IsCluster    bool   `json:"is_cluster"`
		StationIndex int    `json:"station_index"`
		Notation     string `json:"notation"`
	} `json:"items"`
}

func TestClusters_HighZoomShowsStations(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})

	rec := get(t, srv, "/api/v1/clusters?zoom=12")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[clusterBody](t, rec)
	assert.InDelta(t, 12.0, body.Zoom, 0)
	require.Equal(t, 3, body.Count)

	var notations []string
	for _, it := range body.Items {
		assert.False(t, it.IsCluster)
		notations = append(notations, it.Notation)
	}
	assert.ElementsMatch(t, []string{"1029TH", "E2043", "52119"}, notations)
}

func TestClusters_LowZoomGroups(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})

	body := decode[clusterBody](t, get(t, srv, "/api/v1/clusters?zoom=5"))
	require.Equal(t, 1, body.Count)
	assert.True(t, body.Items[0].IsCluster)
	assert.Equal(t, 3, body.Items[0].Count)
	assert.Equal(t, -1, body.Items[0].StationIndex)
	assert.Empty(t, body.Items[0].Notation)
}

func TestClusters_InvalidZoom(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	for _, q := range []string{"", "?zoom=", "?zoom=abc", "?zoom=-1", "?zoom=99", "?zoom=NaN"} {
		assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/clusters"+q).Code, q)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/rivers").Code)
}
