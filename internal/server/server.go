// Package server exposes the exploration session over HTTP for map
// frontends. All state lives in app.State; handlers stay thin.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/areascope/areascope/internal/app"
	"github.com/areascope/areascope/internal/compare"
	"github.com/areascope/areascope/internal/model"
	"github.com/areascope/areascope/internal/store"
)

// Server wraps the session state with an HTTP API.
type Server struct {
	state *app.State
	log   *zap.Logger
}

// New returns a Server over the given session state.
func New(state *app.State) *Server {
	return &Server{
		state: state,
		log:   zap.L().With(zap.String("component", "server")),
	}
}

// Router builds the chi router with CORS enabled for browser frontends.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/layers", func(r chi.Router) {
		r.Get("/", s.handleListLayers)
		r.Post("/", s.handleImportLayer)
		r.Put("/{id}", s.handleSetLayerActive)
	})

	r.Post("/selection", s.handleSetSelection)
	r.Get("/stats", s.handleStats)
	r.Get("/quality", s.handleQuality)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/areas", func(r chi.Router) {
		r.Get("/", s.handleListAreas)
		r.Post("/", s.handleAddArea)
		r.Get("/matrix", s.handleMatrix)
		r.Patch("/{id}", s.handleRenameArea)
		r.Delete("/{id}", s.handleRemoveArea)
		r.Post("/{id}/reorder", s.handleReorderArea)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type layerView struct {
	model.LayerConfig
	Active bool `json:"active"`
}

func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	active := s.state.ActiveSet()
	configs := s.state.Manifest()
	out := make([]layerView, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, layerView{LayerConfig: cfg, Active: active[cfg.ID]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleImportLayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Features json.RawMessage `json:"features"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || len(req.Features) == 0 {
		writeError(w, http.StatusBadRequest, "id and features are required")
		return
	}
	fc, err := geojson.UnmarshalFeatureCollection(req.Features)
	if err != nil {
		writeError(w, http.StatusBadRequest, "features is not a GeoJSON feature collection")
		return
	}
	name := req.Name
	if name == "" {
		name = req.ID
	}

	cfg := s.state.ImportCustomLayer(req.ID, name, fc)
	if err := s.recomputeIfSelected(r); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleSetLayerActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.state.SetLayerActive(id, req.Active); err != nil {
		s.writeAppError(w, err)
		return
	}
	if req.Active {
		if err := s.recomputeIfSelected(r); err != nil {
			s.writeAppError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": req.Active})
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Polygon json.RawMessage `json:"polygon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := geojson.UnmarshalGeometry(req.Polygon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "polygon is not valid GeoJSON")
		return
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		writeError(w, http.StatusBadRequest, "polygon geometry required")
		return
	}

	sel, err := s.state.SetSelection(r.Context(), poly)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

type statsView struct {
	Selection  *model.Selection            `json:"selection"`
	Layers     map[string]*model.LayerData `json:"layers"`
	Categories []model.CategoryMetrics     `json:"categories"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sel := s.state.Selection()
	if sel == nil {
		writeError(w, http.StatusConflict, "no selection set")
		return
	}

	layers := s.state.Repository().Snapshot()
	// Raw features are bulky and the frontend already has them.
	for _, ld := range layers {
		ld.Features = nil
		ld.Clipped = nil
	}
	writeJSON(w, http.StatusOK, statsView{
		Selection:  sel,
		Layers:     layers,
		Categories: s.state.CategoryStats(),
	})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Quality())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	dm, err := s.state.DerivedMetrics(r.URL.Query().Get("area"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dm)
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	strategy := compare.SortStrategy(r.URL.Query().Get("sort"))
	if strategy == "" {
		strategy = compare.SortManual
	}
	areas := s.state.SortAreas(strategy)
	// Strip layer payloads from the listing.
	out := make([]*model.ComparisonArea, 0, len(areas))
	for _, a := range areas {
		cp := *a
		cp.Layers = nil
		out = append(out, &cp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddArea(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	area, err := s.state.AddArea(r.Context(), req.Name)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	cp := *area
	cp.Layers = nil
	writeJSON(w, http.StatusCreated, &cp)
}

func (s *Server) handleRenameArea(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := s.state.RenameArea(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleRemoveArea(w http.ResponseWriter, r *http.Request) {
	if err := s.state.RemoveArea(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderArea(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction compare.Direction `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Direction != compare.DirectionUp && req.Direction != compare.DirectionDown {
		writeError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}
	if err := s.state.ReorderArea(r.Context(), chi.URLParam(r, "id"), req.Direction); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": s.state.Areas()})
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	strategy := compare.SortStrategy(r.URL.Query().Get("sort"))
	if strategy == "" {
		strategy = compare.SortManual
	}
	writeJSON(w, http.StatusOK, s.state.Matrix(s.state.SortAreas(strategy)))
}

func (s *Server) recomputeIfSelected(r *http.Request) error {
	err := s.state.Recompute(r.Context())
	if eris.Is(err, app.ErrNoSelection) {
		return nil
	}
	return err
}

// writeAppError maps domain errors onto HTTP statuses.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, compare.ErrTooManyAreas):
		writeError(w, http.StatusConflict, "area limit reached, remove an area first")
	case eris.Is(err, compare.ErrAreaNotFound), eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "area not found")
	case eris.Is(err, app.ErrUnknownLayer):
		writeError(w, http.StatusNotFound, "unknown layer")
	case eris.Is(err, app.ErrNoSelection):
		writeError(w, http.StatusConflict, "no selection set")
	case eris.Is(err, app.ErrDegenerateSelection), eris.Is(err, compare.ErrDegeneratePolygon):
		writeError(w, http.StatusBadRequest, "polygon has no interior")
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
