package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"estate_distribution/internal/app"
	"estate_distribution/internal/area"
	"estate_distribution/internal/domain"
)

type AreaService interface {
	AssignByID(ctx context.Context, id string) (app.AssignResult, error)
	Explain(ctx context.Context, id string) (app.Breakdown, error)
}

type RecipientFinder interface {
	Recipients(ctx context.Context, propertyID string) (domain.MatchResult, error)
}

type Handlers struct {
	Areas      AreaService
	Recipients RecipientFinder
	Catalog    *area.Catalog
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/areas", h.listAreas)
	s.mux.Route("/v1/properties/{id}", func(r chi.Router) {
		r.Post("/areas", h.assignAreas)
		r.Get("/areas/explain", h.explainAreas)
		r.Get("/recipients", h.recipients)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeRepoError maps repository failures; anything but ErrNotFound is an
// upstream problem, not the caller's.
func writeRepoError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "request cancelled or timed out")
		return
	}
	log.Error().Err(err).Msg(what + " request failed")
	writeProblem(w, http.StatusBadGateway, "Upstream Error", "property or buyer store failed")
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "response could not be encoded")
		return
	}
	if r.Method == http.MethodGet {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func propertyID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "property id is required")
		return "", false
	}
	return id, true
}

type assignResponse struct {
	PropertyID string             `json:"property_id"`
	Areas      string             `json:"areas"`
	Glyphs     []string           `json:"glyphs"`
	Coordinate *domain.Coordinate `json:"coordinate,omitempty"`
	GeoSource  string             `json:"geo_source,omitempty"`
	GeoError   string             `json:"geo_error,omitempty"`
	Changed    bool               `json:"changed"`
}

func (h *Handlers) assignAreas(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(w, r)
	if !ok {
		return
	}
	res, err := h.Areas.AssignByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "property")
		return
	}
	glyphs := make([]string, 0, len(res.Areas))
	for _, g := range res.Areas {
		glyphs = append(glyphs, string(g))
	}
	writeJSON(w, r, http.StatusOK, assignResponse{
		PropertyID: res.PropertyID,
		Areas:      res.Areas.String(),
		Glyphs:     glyphs,
		Coordinate: res.Coordinate,
		GeoSource:  string(res.GeoSource),
		GeoError:   res.GeoError,
		Changed:    res.Changed,
	})
}

func (h *Handlers) explainAreas(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(w, r)
	if !ok {
		return
	}
	b, err := h.Areas.Explain(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "property")
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

func (h *Handlers) recipients(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(w, r)
	if !ok {
		return
	}
	diag := false
	switch strings.ToLower(r.URL.Query().Get("diagnostics")) {
	case "", "0", "false":
	case "1", "true":
		diag = true
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid diagnostics", "diagnostics must be 1 or 0")
		return
	}
	res, err := h.Recipients.Recipients(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "property")
		return
	}
	if !diag {
		res.Diagnostics = nil
	}
	writeJSON(w, r, http.StatusOK, res)
}

type areaView struct {
	ID       string             `json:"id"`
	Kind     string             `json:"kind"`
	City     string             `json:"city,omitempty"`
	Center   *domain.Coordinate `json:"center,omitempty"`
	RadiusKm float64            `json:"radius_km,omitempty"`
	Active   bool               `json:"active"`
}

func (h *Handlers) listAreas(w http.ResponseWriter, r *http.Request) {
	defs := h.Catalog.Definitions()
	out := make([]areaView, 0, len(defs))
	for _, d := range defs {
		v := areaView{ID: string(d.ID), Active: d.Active}
		switch s := d.Scope.(type) {
		case domain.CityWide:
			v.Kind, v.City = "city", s.City
		case domain.RadiusBased:
			c := s.Center
			v.Kind, v.Center, v.RadiusKm = "radius", &c, s.RadiusKm
		}
		out = append(out, v)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"areas": out})
}
