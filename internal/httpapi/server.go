// Package httpapi exposes the journal over a JSON HTTP API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"concertjournal/internal/app/settings"
	"concertjournal/internal/app/stats"
	"concertjournal/internal/auth"
	"concertjournal/internal/logging"
	"concertjournal/internal/media"
	"concertjournal/internal/models"
	"concertjournal/internal/store"
	"concertjournal/internal/transfer"
	"concertjournal/internal/update"
)

// ConcertService captures the concert operations used by the handlers.
type ConcertService interface {
	Save(ctx context.Context, concert models.Concert) (*models.Concert, error)
	Get(ctx context.Context, id int64) (*models.Concert, error)
	List(ctx context.Context, q models.PageQuery) ([]models.Concert, error)
	Count(ctx context.Context, search string) (int, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) error
}

// StatsService computes dashboards and performer views.
type StatsService interface {
	Dashboard(ctx context.Context) (stats.Dashboard, error)
	CountryChart(ctx context.Context) (stats.CountryChart, error)
	Performers(ctx context.Context, q stats.PerformerQuery) (stats.PerformerPage, error)
	PerformerDetails(ctx context.Context, name string) (stats.PerformerDetails, error)
}

// SettingsService reads and changes preferences.
type SettingsService interface {
	Get(ctx context.Context) (settings.Settings, error)
	Apply(ctx context.Context, u settings.Update) (settings.Settings, error)
}

// Importer loads spreadsheets.
type Importer interface {
	Import(ctx context.Context, format transfer.Format, r io.Reader) (transfer.Result, error)
}

// Exporter writes spreadsheets.
type Exporter interface {
	Export(ctx context.Context, format transfer.Format, w io.Writer) (int, error)
}

// MediaLibrary stores concert photos.
type MediaLibrary interface {
	Attach(ctx context.Context, concertID int64, filename string, body io.Reader) (*models.Concert, string, error)
	Open(ctx context.Context, key string) (*media.Object, error)
}

// UpdateChecker reports whether a newer release exists.
type UpdateChecker interface {
	Check(ctx context.Context) update.Result
}

// Authenticator issues tokens for the owner account.
type Authenticator interface {
	Enabled() bool
	Login(username, password string) (auth.Token, error)
}

// Services groups the dependencies of a Server. Optional ones may be nil, in
// which case their routes are not registered.
type Services struct {
	Concerts ConcertService
	Stats    StatsService
	Settings SettingsService
	Importer Importer
	Exporter Exporter
	Media    MediaLibrary
	Updates  UpdateChecker
	Auth     Authenticator
	Metrics  http.Handler
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	Services
}

// New configures a Server.
func New(services Services) *Server {
	return &Server{Services: services}
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.Auth != nil {
		mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	}

	mux.HandleFunc("GET /api/v1/concerts", s.handleListConcerts)
	mux.HandleFunc("POST /api/v1/concerts", s.handleCreateConcert)
	mux.HandleFunc("GET /api/v1/concerts/{id}", s.handleGetConcert)
	mux.HandleFunc("PUT /api/v1/concerts/{id}", s.handleUpdateConcert)
	mux.HandleFunc("DELETE /api/v1/concerts/{id}", s.handleDeleteConcert)
	mux.HandleFunc("POST /api/v1/concerts/bulk-delete", s.handleBulkDelete)

	if s.Media != nil {
		mux.HandleFunc("POST /api/v1/concerts/{id}/media", s.handleUploadMedia)
		mux.HandleFunc("GET /api/v1/media/{key...}", s.handleGetMedia)
	}

	if s.Stats != nil {
		mux.HandleFunc("GET /api/v1/stats", s.handleDashboard)
		mux.HandleFunc("GET /api/v1/stats/countries", s.handleCountryChart)
		mux.HandleFunc("GET /api/v1/performers", s.handlePerformers)
		mux.HandleFunc("GET /api/v1/performers/{name}", s.handlePerformer)
	}

	if s.Importer != nil {
		mux.HandleFunc("POST /api/v1/import", s.handleImport)
	}
	if s.Exporter != nil {
		mux.HandleFunc("GET /api/v1/export", s.handleExport)
	}

	if s.Settings != nil {
		mux.HandleFunc("GET /api/v1/settings", s.handleGetSettings)
		mux.HandleFunc("PUT /api/v1/settings", s.handleUpdateSettings)
	}

	if s.Updates != nil {
		mux.HandleFunc("GET /api/v1/update", s.handleUpdateCheck)
	}

	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes payload before writing the status so an unencodable
// value becomes a 500 instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}` + "\n"))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, store.ErrConcertNotFound), errors.Is(err, media.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.As(err, &tooLarge), errors.Is(err, media.ErrTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, store.ErrInvalidConcert),
		errors.Is(err, settings.ErrInvalidSetting),
		errors.Is(err, transfer.ErrUnsupportedFormat),
		errors.Is(err, transfer.ErrUnreadable),
		errors.Is(err, media.ErrInvalidKey):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, media.ErrUnsupportedType):
		status, msg = http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrDisabled):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, context.Canceled):
		status, msg = 499, "request canceled"
	default:
		logging.FromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
