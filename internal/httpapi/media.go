package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"concertjournal/internal/media"
	"concertjournal/internal/models"
)

type mediaResponse struct {
	Key     string          `json:"key"`
	Concert *models.Concert `json:"concert"`
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid concert id"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, media.ErrTooLarge)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	concert, key, err := s.Media.Attach(r.Context(), id, header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mediaResponse{Key: key, Concert: concert})
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	obj, err := s.Media.Open(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}
