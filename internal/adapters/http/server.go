// Package httpadapter exposes the discovery engine over a small REST API.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
	"dealerscout/internal/services/companies"
	"dealerscout/internal/workers/discoveryrunner"
)

type Server struct {
	scanner     ports.Scanner
	discoveries ports.DiscoveryRepository
	results     ports.ResultRepository
	jobs        ports.JobRepository
	processor   discoveryrunner.DiscoveryProcessor
}

func New(scanner ports.Scanner, discoveries ports.DiscoveryRepository, results ports.ResultRepository, jobs ports.JobRepository, processor discoveryrunner.DiscoveryProcessor) *Server {
	return &Server{scanner: scanner, discoveries: discoveries, results: results, jobs: jobs, processor: processor}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Post("/discoveries", s.handleCreateDiscovery)
	r.Get("/discoveries/{id}", s.handleGetDiscovery)
	r.Get("/discoveries/{id}/contacts", s.handleGetContacts)
	r.Get("/results/{domain}", s.handleGetLatestResult)
	return r
}

type createDiscoveryRequest struct {
	URL string `json:"url"`
}

type discoveryResponse struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Contacts []contactJSON `json:"contacts,omitempty"`
}

type discoveryAcceptedResponse struct {
	DiscoveryID string `json:"discovery_id"`
}

type contactJSON struct {
	Name            string   `json:"name,omitempty"`
	Title           string   `json:"title,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	PhotoURL        string   `json:"photo_url,omitempty"`
	LinkedInURL     string   `json:"linkedin_url,omitempty"`
	Source          string   `json:"source"`
	ConfidenceScore float64  `json:"confidence_score"`
	QualityFlags    []string `json:"quality_flags,omitempty"`
}

type resultResponse struct {
	Domain             string        `json:"domain"`
	CompanyName        string        `json:"company_name"`
	Platform           string        `json:"platform"`
	PlatformConfidence float64       `json:"platform_confidence"`
	DetectionMethod    string        `json:"detection_method"`
	StaffURL           string        `json:"staff_url,omitempty"`
	Contacts           []contactJSON `json:"contacts"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateDiscovery enqueues a run. With ?wait=1 it runs the pipeline
// inline and answers with the finished discovery, bounded by ?timeout
// seconds (default 30).
func (s *Server) handleCreateDiscovery(w http.ResponseWriter, r *http.Request) {
	var req createDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing or invalid body")
		return
	}

	id, err := s.scanner.Enqueue(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, companies.ErrInvalidDomain) {
			writeError(w, http.StatusBadRequest, "invalid url")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !boolParam(r, "wait") {
		writeJSON(w, http.StatusAccepted, discoveryAcceptedResponse{DiscoveryID: id})
		return
	}

	timeout := 30
	if t, err := strconv.Atoi(r.URL.Query().Get("timeout")); err == nil && t > 0 {
		timeout = t
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeout)*time.Second)
	defer cancel()

	url, err := s.discoveries.URLForDiscovery(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Use the same processor the workers use
	if err := discoveryrunner.ProcessInline(ctx, s.jobs, s.processor, id, url); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	status, err := s.scanner.Status(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	contacts, err := s.results.ContactsForDiscovery(ctx, id)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, discoveryResponse{ID: id, Status: status, Contacts: toContactJSON(contacts)})
}

func (s *Server) handleGetDiscovery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid discovery id")
		return
	}

	status, err := s.scanner.Status(r.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "discovery not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, discoveryResponse{ID: id, Status: status})
}

func (s *Server) handleGetContacts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid discovery id")
		return
	}

	contacts, err := s.results.ContactsForDiscovery(r.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no result for discovery")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]contactJSON{"contacts": toContactJSON(contacts)})
}

func (s *Server) handleGetLatestResult(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "domain")
	registrable, err := companies.RegistrableDomain(host)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain")
		return
	}

	exists, result, err := s.results.LatestByDomain(r.Context(), registrable)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "no result for domain")
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{
		Domain:             result.Domain,
		CompanyName:        result.CompanyName,
		Platform:           result.Detection.Platform,
		PlatformConfidence: result.Detection.Confidence,
		DetectionMethod:    result.Detection.Method,
		StaffURL:           result.StaffURL,
		Contacts:           toContactJSON(result.Contacts),
	})
}

func toContactJSON(contacts []domain.Contact) []contactJSON {
	out := make([]contactJSON, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, contactJSON{
			Name:            c.Name,
			Title:           c.Title,
			Email:           c.Email,
			Phone:           c.Phone,
			PhotoURL:        c.PhotoURL,
			LinkedInURL:     c.LinkedInURL,
			Source:          string(c.Source),
			ConfidenceScore: c.ConfidenceScore,
			QualityFlags:    c.QualityFlags,
		})
	}
	return out
}

func boolParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
