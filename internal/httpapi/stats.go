package httpapi

import (
	"net/http"
	"strings"

	"concertjournal/internal/app/stats"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.Stats.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleCountryChart(w http.ResponseWriter, r *http.Request) {
	chart, err := s.Stats.CountryChart(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handlePerformers(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page", 0)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid page"})
		return
	}
	sortOrder := strings.ToLower(r.URL.Query().Get("sort"))
	if sortOrder != "" && sortOrder != "most" && sortOrder != "least" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sort must be most or least"})
		return
	}

	result, err := s.Stats.Performers(r.Context(), stats.PerformerQuery{
		Search: r.URL.Query().Get("search"),
		Sort:   sortOrder,
		Page:   page,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePerformer(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "performer name is required"})
		return
	}

	details, err := s.Stats.PerformerDetails(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if details.TimesSeen == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "performer not found"})
		return
	}
	writeJSON(w, http.StatusOK, details)
}
