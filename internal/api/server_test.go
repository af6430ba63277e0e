package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"gonum.org/v1/gonum/mat"

	blackmarble "github.com/geowatch/go-blackmarble"
	"github.com/geowatch/go-blackmarble/internal/api"
)

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	dir := t.TempDir()

	// One tile per date inside the Sudan preset, with a missing sample in
	// the earlier date.
	lats := []float64{10, 11}
	lons := []float64{22, 23}
	writeTile(t, filepath.Join(dir, "a.tif"), [][]float64{{-5, 2}, {3, 4}}, lats, lons, "2023-04-01")
	writeTile(t, filepath.Join(dir, "b.tif"), [][]float64{{1, 2}, {3, 8}}, lats, lons, "2023-06-01")

	store := blackmarble.NewStore(os.DirFS(dir))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := api.NewServer(":0", store, 8, logger)
	assert.NoError(t, err)
	return srv
}

func writeTile(t *testing.T, path string, values [][]float64, lats, lons []float64, date blackmarble.DateKey) {
	t.Helper()
	rows, cols := len(values), len(values[0])
	data := make([]float64, 0, rows*cols)
	for _, row := range values {
		data = append(data, row...)
	}
	tile := &blackmarble.Tile{
		Grid: mat.NewDense(rows, cols, data),
		Lats: lats,
		Lons: lons,
	}
	f, err := os.Create(path)
	assert.NoError(t, err)
	assert.NoError(t, blackmarble.WriteTile(f, tile, date))
	assert.NoError(t, f.Close())
}

func get(t *testing.T, srv *api.Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestServer_Dates(t *testing.T) {
	srv := newTestServer(t)
	rec := get(t, srv, "/dates")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Dates []string `json:"dates"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"2023-04-01", "2023-06-01"}, resp.Dates)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RenderSingle(t *testing.T) {
	srv := newTestServer(t)
	rec := get(t, srv, "/render?mode=single&date=2023-04-01")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tiles []struct {
			Values [][]*float64 `json:"values"`
			Lats   []float64    `json:"latitudes"`
			Lons   []float64    `json:"longitudes"`
		} `json:"tiles"`
		Normalized bool `json:"normalized"`
		Difference bool `json:"difference"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, len(resp.Tiles))
	assert.False(t, resp.Normalized)
	assert.False(t, resp.Difference)
	assert.Equal(t, []float64{10, 11}, resp.Tiles[0].Lats)
	// The invalid sample comes back as null.
	assert.Zero(t, resp.Tiles[0].Values[0][0])
	assert.Equal(t, 2.0, *resp.Tiles[0].Values[0][1])
}

func TestServer_RenderRelative(t *testing.T) {
	srv := newTestServer(t)
	rec := get(t, srv, "/render?mode=relative&date=2023-04-01&date2=2023-06-01")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Relative   bool `json:"relative"`
		Difference bool `json:"difference"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Relative)
	assert.True(t, resp.Difference)
}

func TestServer_RenderBoundsFallback(t *testing.T) {
	srv := newTestServer(t)
	rec := get(t, srv, "/render?mode=single&date=2023-04-01&bounds=9,23,x,39")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tiles       []json.RawMessage `json:"tiles"`
		BoundsError string            `json:"bounds_error"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.BoundsError)
	assert.Equal(t, 1, len(resp.Tiles)) // served from the Sudan preset instead
}

func TestServer_RenderErrors(t *testing.T) {
	srv := newTestServer(t)
	for _, tc := range []struct {
		name string
		url  string
		code int
	}{
		{name: "missing_date", url: "/render?mode=single", code: http.StatusBadRequest},
		{name: "bad_mode", url: "/render?mode=pivot&date=2023-04-01", code: http.StatusBadRequest},
		{name: "missing_date2", url: "/render?mode=difference&date=2023-04-01", code: http.StatusBadRequest},
		{name: "bad_factor", url: "/render?mode=single&date=2023-04-01&factor=0", code: http.StatusBadRequest},
		{name: "unknown_preset", url: "/render?mode=single&date=2023-04-01&preset=Atlantis", code: http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, srv, tc.url)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestServer_RenderCached(t *testing.T) {
	srv := newTestServer(t)
	first := get(t, srv, "/render?mode=single&date=2023-04-01")
	assert.Equal(t, http.StatusOK, first.Code)
	second := get(t, srv, "/render?mode=single&date=2023-04-01")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}
