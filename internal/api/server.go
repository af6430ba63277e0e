// Package api exposes the tile pipeline to external renderers over HTTP
// JSON. It returns tile triples plus metadata; color scaling, projection,
// and legends are the renderer's business.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	blackmarble "github.com/geowatch/go-blackmarble"
)

const defaultPreset = "Sudan"

// Server serves catalog and render requests for one tile store.
type Server struct {
	httpServer *http.Server
	store      *blackmarble.Store
	logger     *slog.Logger
	cache      *lru.Cache[string, []byte]
}

// NewServer creates an HTTP server with /dates, /render, /healthz, and
// /metrics routes. Render responses are cached by their query string, so
// repeated identical requests do not re-run the pipeline.
func NewServer(addr string, store *blackmarble.Store, cacheSize int, logger *slog.Logger) (*Server, error) {
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:  store,
		logger: logger,
		cache:  cache,
	}

	mux.HandleFunc("GET /dates", s.handleDates)
	mux.HandleFunc("GET /render", s.handleRender)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s, nil
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleDates(w http.ResponseWriter, _ *http.Request) {
	dates, err := s.store.Dates()
	if err != nil {
		s.logger.Error("catalog scan failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, datesResponse{Dates: dates})
}

type datesResponse struct {
	Dates []blackmarble.DateKey `json:"dates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// tileJSON is one (values, latitudes, longitudes) triple. Missing samples
// are encoded as nulls because JSON has no NaN.
type tileJSON struct {
	Values [][]*float64 `json:"values"`
	Lats   []float64    `json:"latitudes"`
	Lons   []float64    `json:"longitudes"`
}

type renderResponse struct {
	Tiles       []tileJSON `json:"tiles"`
	Normalized  bool       `json:"normalized"`
	Difference  bool       `json:"difference"`
	Relative    bool       `json:"relative"`
	BoundsError string     `json:"bounds_error,omitempty"` // set when custom bounds were malformed and the preset was used instead
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	cacheKey := r.URL.Query().Encode()
	if cached, ok := s.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	req, boundsErr, err := parseRenderRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.store.Do(req)
	if err != nil {
		var alignErr *blackmarble.AlignmentError
		status := http.StatusInternalServerError
		if errors.As(err, &alignErr) || errors.Is(err, blackmarble.ErrZeroTotal) {
			status = http.StatusConflict
		}
		s.logger.Error("render failed", "mode", req.Mode, "date", req.Date, "error", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	resp := renderResponse{
		Tiles:      make([]tileJSON, len(result.Tiles)),
		Normalized: result.Normalized,
		Difference: result.Difference,
		Relative:   result.Relative,
	}
	if boundsErr != nil {
		resp.BoundsError = boundsErr.Error()
	}
	for i, tile := range result.Tiles {
		resp.Tiles[i] = tileJSON{
			Values: gridValues(tile),
			Lats:   tile.Lats,
			Lons:   tile.Lons,
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.cache.Add(cacheKey, body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// parseRenderRequest maps the query surface onto a pipeline request.
// Malformed custom bounds are not fatal: the request falls back to the
// selected preset and the parse error is returned for reporting.
func parseRenderRequest(r *http.Request) (req blackmarble.Request, boundsErr, err error) {
	q := r.URL.Query()
	switch q.Get("mode") {
	case "", "single":
		req.Mode = blackmarble.ModeSingle
	case "difference":
		req.Mode = blackmarble.ModeDifference
	case "relative":
		req.Mode = blackmarble.ModeRelative
	default:
		return req, nil, errors.New("mode must be single, difference, or relative")
	}

	req.Date = blackmarble.DateKey(q.Get("date"))
	if req.Date == "" {
		return req, nil, errors.New("date is required")
	}
	req.LaterDate = blackmarble.DateKey(q.Get("date2"))
	if req.Mode != blackmarble.ModeSingle && req.LaterDate == "" {
		return req, nil, errors.New("date2 is required for difference and relative modes")
	}

	preset := q.Get("preset")
	if preset == "" {
		preset = defaultPreset
	}
	presetBounds, ok := blackmarble.Presets[preset]
	if !ok {
		return req, nil, errors.New("unknown preset " + strconv.Quote(preset))
	}
	req.Bounds = presetBounds
	if custom := q.Get("bounds"); custom != "" {
		bounds, err := blackmarble.ParseBounds(custom)
		if err != nil {
			boundsErr = err
		} else {
			req.Bounds = bounds
		}
	}

	req.Factor = 1
	if factor := q.Get("factor"); factor != "" {
		n, err := strconv.Atoi(factor)
		if err != nil || n < 1 {
			return req, nil, errors.New("factor must be an integer >= 1")
		}
		req.Factor = n
	}
	req.Normalize = q.Get("normalize") == "true"

	return req, boundsErr, nil
}

// gridValues converts a tile's grid to nested slices with nulls for NaNs.
func gridValues(tile *blackmarble.Tile) [][]*float64 {
	rows, cols := tile.Grid.Dims()
	values := make([][]*float64, rows)
	for i := range rows {
		row := make([]*float64, cols)
		for j := range cols {
			if v := tile.Grid.At(i, j); !math.IsNaN(v) {
				row[j] = &v
			}
		}
		values[i] = row
	}
	return values
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
