package httpapi

import (
	"net/http"

	"concertjournal/internal/models"
)

const maxPageSize = 100

type concertListResponse struct {
	Concerts []models.Concert `json:"concerts"`
	Total    int              `json:"total"`
}

func (s *Server) handleListConcerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid offset"})
		return
	}
	limit, ok := queryInt(r, "limit", models.DefaultPageSize)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sortKey := models.SortDefault
	if raw := q.Get("sort"); raw != "" {
		key, known := models.ParseSortKey(raw)
		if !known {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown sort " + raw})
			return
		}
		sortKey = key
	}

	page := models.PageQuery{Offset: offset, Limit: limit, Sort: sortKey, Search: q.Get("search")}.Normalize()

	concerts, err := s.Concerts.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := s.Concerts.Count(r.Context(), page.Search)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, concertListResponse{Concerts: concerts, Total: total})
}

func (s *Server) handleCreateConcert(w http.ResponseWriter, r *http.Request) {
	var concert models.Concert
	if err := decodeJSON(r, &concert); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	concert.ID = 0

	created, err := s.Concerts.Save(r.Context(), concert)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetConcert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid concert id"})
		return
	}

	concert, err := s.Concerts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concert)
}

func (s *Server) handleUpdateConcert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid concert id"})
		return
	}

	var concert models.Concert
	if err := decodeJSON(r, &concert); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	concert.ID = id

	updated, err := s.Concerts.Save(r.Context(), concert)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteConcert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid concert id"})
		return
	}

	if err := s.Concerts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ids is required"})
		return
	}

	if err := s.Concerts.DeleteMany(r.Context(), req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
