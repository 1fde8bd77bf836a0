package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/leadscout/leadscout/internal/models"
	"github.com/leadscout/leadscout/internal/notifications"
	"github.com/leadscout/leadscout/internal/search"
)

// apiServer wires the HTTP routes to the search orchestrator.
type apiServer struct {
	orchestrator *search.Orchestrator
	notifier     notifications.Notifier
}

type searchRequest struct {
	Criteria  models.SearchCriteria `json:"criteria"`
	Platforms []string              `json:"platforms,omitempty"`
	AI        *aiRequestOptions     `json:"ai,omitempty"`
}

type aiRequestOptions struct {
	ProductContext    *models.ProductContext `json:"productContext,omitempty"`
	MinRelevanceScore *int                   `json:"minRelevanceScore,omitempty"`
	MaxToScore        *int                   `json:"maxToScore,omitempty"`
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.orchestrator.Search(r.Context(), req.Criteria, req.Platforms))
}

func (s *apiServer) handleSearchRanked(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.orchestrator.SearchRanked(r.Context(), req.Criteria, req.Platforms))
}

func (s *apiServer) handleSearchAI(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	opts := search.DefaultAIOptions()
	if req.AI != nil {
		opts.ProductContext = req.AI.ProductContext
		if req.AI.MinRelevanceScore != nil {
			opts.MinRelevanceScore = *req.AI.MinRelevanceScore
		}
		if req.AI.MaxToScore != nil {
			opts.MaxToScore = *req.AI.MaxToScore
		}
	}

	result := s.orchestrator.SearchWithAI(r.Context(), req.Criteria, req.Platforms, opts)

	// Push hot leads out of band; the response never waits on delivery.
	if s.notifier.Configured() && len(result.HotLeads) > 0 {
		go func() {
			if err := s.notifier.SendHotLeads(result); err != nil {
				logrus.Errorf("Hot-lead notification failed: %v", err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleSearchPlatform(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}
	platform := mux.Vars(r)["platform"]
	writeJSON(w, http.StatusOK, s.orchestrator.SearchPlatform(r.Context(), req.Criteria, platform))
}

func (s *apiServer) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"platforms": s.orchestrator.Platforms()})
}

// decodeSearchRequest parses the body and enforces the one request-level
// rule the core delegates to the HTTP layer: keywords must be non-empty.
func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (*searchRequest, bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}

	var keywords []string
	for _, kw := range req.Criteria.Keywords {
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		writeError(w, http.StatusBadRequest, "criteria.keywords must contain at least one keyword")
		return nil, false
	}
	req.Criteria.Keywords = keywords

	return &req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("Handled request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
