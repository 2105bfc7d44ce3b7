// Package api exposes the fixture address workflow as a JSON HTTP API with
// a websocket channel for state-change notifications.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/attraddr/attraddr-go/internal/config"
	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/services/csvimport"
	"github.com/attraddr/attraddr-go/internal/services/export"
	"github.com/attraddr/attraddr-go/internal/services/ma3"
	"github.com/attraddr/attraddr-go/internal/services/mvr"
	"github.com/attraddr/attraddr-go/internal/services/pubsub"
	"github.com/attraddr/attraddr-go/internal/services/sequence"
	"github.com/attraddr/attraddr-go/internal/services/session"
)

// maxUploadBytes caps import uploads. MVR archives with embedded GDTF files
// can get large, CSV and console XML never should.
const maxUploadBytes = 256 << 20

// Server holds the API dependencies.
type Server struct {
	session *session.Session
	bus     *pubsub.PubSub
	version string
}

// NewServer creates an API server around a session.
func NewServer(sess *session.Session, bus *pubsub.PubSub, version string) *Server {
	return &Server{session: sess, bus: bus, version: version}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router(cfg *config.Config) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            cfg.IsDevelopment(),
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/health", s.handleHealth)
	router.Get("/ws", s.handleWebsocket)

	router.Route("/api", func(r chi.Router) {
		r.Get("/fixtures", s.handleListFixtures)
		r.Delete("/fixtures", s.handleClearFixtures)
		r.Put("/fixtures/{id}/role", s.handleSetRole)
		r.Put("/fixtures/{id}/selected", s.handleSetSelected)
		r.Put("/fixtures/{id}/fixture-id", s.handleSetFixtureID)
		r.Put("/fixtures/{id}/patch", s.handleSetPatch)

		r.Get("/profiles", s.handleListProfiles)
		r.Get("/attributes", s.handleGetAttributes)
		r.Put("/attributes", s.handleSetAttributes)

		r.Post("/import/mvr", s.handleImportMVR)
		r.Post("/import/csv", s.handleImportCSV)
		r.Post("/import/ma3", s.handleImportMA3)

		r.Get("/match/candidates", s.handleCandidates)
		r.Post("/match", s.handleApplyMatch)
		r.Post("/match/auto", s.handleAutoMatch)

		r.Post("/addresses/resolve", s.handleResolve)
		r.Post("/sequences/assign", s.handleAssignSequences)

		r.Get("/config/sequence", s.handleGetSequenceConfig)
		r.Put("/config/sequence", s.handleSetSequenceConfig)
		r.Get("/config/export", s.handleGetExportConfig)
		r.Put("/config/export", s.handleSetExportConfig)

		r.Get("/links", s.handleLinks)
		r.Get("/summary", s.handleSummary)
		r.Get("/export", s.handleExport)
	})

	return router
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
	})
}

func (s *Server) handleListFixtures(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.Fixtures())
}

func (s *Server) handleClearFixtures(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role fixture.Role `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetRole(chi.URLParam(r, "id"), body.Role); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleSetSelected(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Selected bool `json:"selected"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetSelected(chi.URLParam(r, "id"), body.Selected); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleSetFixtureID(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FixtureID int `json:"fixtureId"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetFixtureID(chi.URLParam(r, "id"), body.FixtureID); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleSetPatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Universe int `json:"universe"`
		Channel  int `json:"channel"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetPatch(chi.URLParam(r, "id"), body.Universe, body.Channel); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.Registry().Profiles())
}

func (s *Server) handleGetAttributes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"selected": s.session.SelectedAttributes(),
	})
}

func (s *Server) handleSetAttributes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Selected []string `json:"selected"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	s.session.SetSelectedAttributes(body.Selected)
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// uploadedFile reads the "file" part of a multipart upload into memory.
func uploadedFile(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(io.LimitReader(file, maxUploadBytes))
}

type importResponse struct {
	Imported int      `json:"imported"`
	Profiles int      `json:"profiles,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) handleImportMVR(w http.ResponseWriter, r *http.Request) {
	data, err := uploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	result, err := mvr.Import(data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.session.AddFixtures(result.Fixtures, result.Profiles)
	respondJSON(w, http.StatusOK, importResponse{
		Imported: len(result.Fixtures),
		Profiles: result.Profiles.Len(),
		Warnings: result.Warnings,
	})
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := uploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	// Column mapping arrives as an optional JSON form field. When absent it
	// is guessed from the header row.
	var mapping csvimport.Mapping
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
	} else {
		headers, _, err := csvimport.Preview(bytes.NewReader(data), 0)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err)
			return
		}
		mapping = csvimport.GuessMapping(headers)
	}

	result, err := csvimport.Import(bytes.NewReader(data), mapping, len(s.session.Fixtures())+1)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.session.AddFixtures(result.Fixtures, nil)
	respondJSON(w, http.StatusOK, importResponse{
		Imported: len(result.Fixtures),
		Warnings: result.Warnings,
	})
}

func (s *Server) handleImportMA3(w http.ResponseWriter, r *http.Request) {
	data, err := uploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	result, err := ma3.Import(data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.session.AddFixtures(result.Fixtures, nil)
	respondJSON(w, http.StatusOK, importResponse{
		Imported: len(result.Fixtures),
		Warnings: result.Warnings,
	})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	fixtureType := r.URL.Query().Get("type")
	if fixtureType == "" {
		respondError(w, http.StatusBadRequest, errors.New("missing type query parameter"))
		return
	}
	respondJSON(w, http.StatusOK, s.session.Candidates(fixtureType))
}

func (s *Server) handleApplyMatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FixtureType string `json:"fixtureType"`
		ProfileName string `json:"profileName"`
		ModeName    string `json:"modeName"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.ApplyMatch(r.Context(), body.FixtureType, body.ProfileName, body.ModeName); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"matched": true})
}

func (s *Server) handleAutoMatch(w http.ResponseWriter, r *http.Request) {
	matched, warnings, err := s.session.AutoMatch(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matchedTypes":    matched.Types,
		"matchedFixtures": matched.Fixtures,
		"warnings":        warnings,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.ResolveAddresses())
}

func (s *Server) handleAssignSequences(w http.ResponseWriter, r *http.Request) {
	assigned, err := s.session.AssignSequences()
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"assigned": assigned})
}

func (s *Server) handleGetSequenceConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.SequenceConfig())
}

func (s *Server) handleSetSequenceConfig(w http.ResponseWriter, r *http.Request) {
	var cfg sequence.Config
	if err := decodeBody(r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetSequenceConfig(r.Context(), cfg); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetExportConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.ExportConfig())
}

func (s *Server) handleSetExportConfig(w http.ResponseWriter, r *http.Request) {
	var cfg export.FormatConfig
	if err := decodeBody(r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetExportConfig(r.Context(), cfg); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.Links())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.Summarize())
}

// contentTypeFor maps an export format to its response media type.
func contentTypeFor(format export.Format) string {
	switch format {
	case export.FormatCSV:
		return "text/csv"
	case export.FormatJSON:
		return "application/json"
	case export.FormatMA3DMXRemotes, export.FormatMA3Sequences:
		return "application/xml"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatText
	}
	if !format.Valid() {
		respondError(w, http.StatusBadRequest, export.ErrUnknownFormat)
		return
	}

	out, err := s.session.Export(format)
	if err != nil {
		if errors.Is(err, export.ErrNoRows) {
			respondError(w, http.StatusConflict, err)
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", `attachment; filename="fixture_addresses`+export.ExtensionFor(format)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		log.Printf("Failed to write export response: %v", err)
	}
}

func statusFor(err error) int {
	if errors.Is(err, session.ErrFixtureNotFound) {
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}
