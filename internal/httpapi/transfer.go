package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"concertjournal/internal/transfer"
)

const maxImportSize = 32 << 20

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	format, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxImportSize)
	result, err := s.Importer.Import(r.Context(), format, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(transfer.FormatCSV)
	}
	format, err := transfer.ParseFormat(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if _, err := s.Exporter.Export(r.Context(), format, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("ConcertJournal_%s.%s", time.Now().Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
