package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"concertjournal/internal/app/settings"
	"concertjournal/internal/app/stats"
	"concertjournal/internal/auth"
	"concertjournal/internal/media"
	"concertjournal/internal/models"
	"concertjournal/internal/store"
	"concertjournal/internal/transfer"
	"concertjournal/internal/update"
)

type stubConcertService struct {
	concerts map[int64]models.Concert
	nextID   int64

	lastQuery   models.PageQuery
	deletedMany []int64
	listErr     error
}

func newStubConcerts(items ...models.Concert) *stubConcertService {
	s := &stubConcertService{concerts: map[int64]models.Concert{}}
	for _, c := range items {
		s.concerts[c.ID] = c
		if c.ID > s.nextID {
			s.nextID = c.ID
		}
	}
	return s
}

func (s *stubConcertService) Save(_ context.Context, c models.Concert) (*models.Concert, error) {
	if strings.TrimSpace(c.EventTitle) == "" {
		return nil, fmt.Errorf("%w: event title is required", store.ErrInvalidConcert)
	}
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	} else if _, ok := s.concerts[c.ID]; !ok {
		return nil, store.ErrConcertNotFound
	}
	s.concerts[c.ID] = c
	return &c, nil
}

func (s *stubConcertService) Get(_ context.Context, id int64) (*models.Concert, error) {
	c, ok := s.concerts[id]
	if !ok {
		return nil, store.ErrConcertNotFound
	}
	return &c, nil
}

func (s *stubConcertService) List(_ context.Context, q models.PageQuery) ([]models.Concert, error) {
	s.lastQuery = q
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []models.Concert{}
	for _, c := range s.concerts {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubConcertService) Count(context.Context, string) (int, error) {
	return len(s.concerts), nil
}

func (s *stubConcertService) Delete(_ context.Context, id int64) error {
	if _, ok := s.concerts[id]; !ok {
		return store.ErrConcertNotFound
	}
	delete(s.concerts, id)
	return nil
}

func (s *stubConcertService) DeleteMany(ctx context.Context, ids []int64) error {
	s.deletedMany = ids
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

type stubStats struct {
	lastQuery stats.PerformerQuery
}

func (stubStats) Dashboard(context.Context) (stats.Dashboard, error) {
	return stats.Dashboard{TotalConcerts: 3}, nil
}

func (stubStats) CountryChart(context.Context) (stats.CountryChart, error) {
	return stats.NewCountryChart([]stats.CountryStat{{Country: "Estonia", Concerts: 2}}), nil
}

func (s *stubStats) Performers(_ context.Context, q stats.PerformerQuery) (stats.PerformerPage, error) {
	s.lastQuery = q
	return stats.PerformerPage{Performers: []stats.PerformerCount{{Name: "Band", Count: 2}}, Total: 1}, nil
}

func (stubStats) PerformerDetails(_ context.Context, name string) (stats.PerformerDetails, error) {
	if name != "Band" {
		return stats.PerformerDetails{Name: name, Concerts: []models.Concert{}}, nil
	}
	return stats.PerformerDetails{Name: name, TimesSeen: 2}, nil
}

type stubSettings struct {
	current settings.Settings
}

func (s *stubSettings) Get(context.Context) (settings.Settings, error) {
	return s.current, nil
}

func (s *stubSettings) Apply(_ context.Context, u settings.Update) (settings.Settings, error) {
	if u.Theme != nil {
		if *u.Theme != "angel" && *u.Theme != "devil" {
			return settings.Settings{}, settings.ErrInvalidSetting
		}
		s.current.Theme = settings.Theme(*u.Theme)
	}
	return s.current, nil
}

type stubImporter struct {
	format transfer.Format
	body   string
}

func (s *stubImporter) Import(_ context.Context, f transfer.Format, r io.Reader) (transfer.Result, error) {
	b, _ := io.ReadAll(r)
	s.format, s.body = f, string(b)
	if s.body == "garbage" {
		return transfer.Result{}, fmt.Errorf("%w: bad", transfer.ErrUnreadable)
	}
	return transfer.Result{Imported: 2, Skipped: 1}, nil
}

type stubExporter struct{}

func (stubExporter) Export(_ context.Context, f transfer.Format, w io.Writer) (int, error) {
	_, _ = io.WriteString(w, `"EventTitle"`+"\r\n")
	return 0, nil
}

type stubMedia struct {
	filename string
	body     string
}

func (s *stubMedia) Attach(_ context.Context, id int64, filename string, body io.Reader) (*models.Concert, string, error) {
	if !media.IsImage(filename) {
		return nil, "", media.ErrUnsupportedType
	}
	b, _ := io.ReadAll(body)
	s.filename, s.body = filename, string(b)
	key := fmt.Sprintf("concerts/%d/x.png", id)
	return &models.Concert{ID: id, EventTitle: "Gig", MediaPaths: []string{key}}, key, nil
}

func (s *stubMedia) Open(_ context.Context, key string) (*media.Object, error) {
	if key != "concerts/1/x.png" {
		return nil, media.ErrNotFound
	}
	return &media.Object{Body: io.NopCloser(strings.NewReader("png")), ContentType: "image/png", ContentLength: 3}, nil
}

type stubUpdates struct{}

func (stubUpdates) Check(context.Context) update.Result {
	return update.Result{Status: update.StatusAvailable, Current: "1.0.0", Latest: "1.1.0"}
}

type stubAuth struct{}

func (stubAuth) Enabled() bool { return true }

func (stubAuth) Login(username, password string) (auth.Token, error) {
	if username != "owner" || password != "pw" {
		return auth.Token{}, auth.ErrInvalidCredentials
	}
	return auth.Token{Token: "jwt", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func newTestServer(concerts *stubConcertService) (http.Handler, *stubStats, *stubImporter, *stubMedia) {
	st := &stubStats{}
	imp := &stubImporter{}
	med := &stubMedia{}
	srv := New(Services{
		Concerts: concerts,
		Stats:    st,
		Settings: &stubSettings{current: settings.Settings{Theme: settings.ThemeAngel}},
		Importer: imp,
		Exporter: stubExporter{},
		Media:    med,
		Updates:  stubUpdates{},
		Auth:     stubAuth{},
	})
	return srv.Routes(), st, imp, med
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _, _ := newTestServer(newStubConcerts())
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestListConcerts(t *testing.T) {
	concerts := newStubConcerts(models.Concert{ID: 1, EventTitle: "One"}, models.Concert{ID: 2, EventTitle: "Two"})
	h, _, _, _ := newTestServer(concerts)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/concerts?offset=15&limit=500&sort=title&search=+rock+", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Concerts []models.Concert `json:"concerts"`
		Total    int              `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Concerts) != 2 || resp.Total != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}

	q := concerts.lastQuery
	if q.Offset != 15 || q.Limit != maxPageSize || q.Sort != models.SortTitle || q.Search != "rock" {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestListConcertsBadParams(t *testing.T) {
	h, _, _, _ := newTestServer(newStubConcerts())
	for _, path := range []string{
		"/api/v1/concerts?offset=-1",
		"/api/v1/concerts?limit=abc",
		"/api/v1/concerts?sort=loudest",
	} {
		if rec := doJSON(t, h, http.MethodGet, path, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestListConcertsHidesInternalErrors(t *testing.T) {
	concerts := newStubConcerts()
	concerts.listErr = errors.New("database is locked: /var/lib/secret.db")
	h, _, _, _ := newTestServer(concerts)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/concerts", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestConcertCRUD(t *testing.T) {
	concerts := newStubConcerts()
	h, _, _, _ := newTestServer(concerts)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/concerts", map[string]any{
		"id": 99, "eventTitle": "Fest", "performers": []string{"A"}, "date": "2024-06-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Concert
	_ = json.NewDecoder(rec.Body).Decode(&created)
	if created.ID != 1 || models.FormatDate(created.Date) != "2024-06-01" {
		t.Fatalf("client id must be ignored on create, got %+v", created)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/v1/concerts", map[string]any{"eventTitle": " "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid concert: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/v1/concerts", map[string]any{"eventTitle": "x", "date": "someday"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/v1/concerts/1", map[string]any{"eventTitle": "Fest 2"})
	if rec.Code != http.StatusOK || concerts.concerts[1].EventTitle != "Fest 2" {
		t.Fatalf("update: got %d %+v", rec.Code, concerts.concerts[1])
	}
	if rec := doJSON(t, h, http.MethodPut, "/api/v1/concerts/7", map[string]any{"eventTitle": "x"}); rec.Code != http.StatusNotFound {
		t.Fatalf("update missing: expected 404, got %d", rec.Code)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/v1/concerts/1", nil); rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/concerts/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("get bad id: expected 400, got %d", rec.Code)
	}

	if rec := doJSON(t, h, http.MethodDelete, "/api/v1/concerts/1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/concerts/1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}
}

func TestBulkDelete(t *testing.T) {
	concerts := newStubConcerts(models.Concert{ID: 1, EventTitle: "a"}, models.Concert{ID: 2, EventTitle: "b"})
	h, _, _, _ := newTestServer(concerts)

	if rec := doJSON(t, h, http.MethodPost, "/api/v1/concerts/bulk-delete", map[string]any{"ids": []int64{}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty ids: expected 400, got %d", rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/v1/concerts/bulk-delete", map[string]any{"ids": []int64{1, 2}})
	if rec.Code != http.StatusNoContent || len(concerts.concerts) != 0 {
		t.Fatalf("bulk delete: got %d, remaining %d", rec.Code, len(concerts.concerts))
	}
}

func TestStatsRoutes(t *testing.T) {
	h, st, _, _ := newTestServer(newStubConcerts())

	if rec := doJSON(t, h, http.MethodGet, "/api/v1/stats", nil); rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/stats/countries", nil); rec.Code != http.StatusOK {
		t.Fatalf("countries: expected 200, got %d", rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/performers?search=ba&sort=least&page=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("performers: expected 200, got %d", rec.Code)
	}
	if st.lastQuery != (stats.PerformerQuery{Search: "ba", Sort: "least", Page: 2}) {
		t.Fatalf("unexpected performer query %+v", st.lastQuery)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/performers?sort=loud", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad sort: expected 400, got %d", rec.Code)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/v1/performers/Band", nil); rec.Code != http.StatusOK {
		t.Fatalf("performer: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/performers/Nobody", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown performer: expected 404, got %d", rec.Code)
	}
}

func TestImportExport(t *testing.T) {
	h, _, imp, _ := newTestServer(newStubConcerts())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import?format=xlsx", strings.NewReader("data"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || imp.format != transfer.FormatXLSX || imp.body != "data" {
		t.Fatalf("import: got %d format=%q body=%q", rec.Code, imp.format, imp.body)
	}

	for _, tc := range []struct {
		path, body string
	}{
		{"/api/v1/import?format=pdf", "data"},
		{"/api/v1/import?format=csv", "garbage"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.path, rec.Code)
		}
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".csv") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestSettingsRoutes(t *testing.T) {
	h, _, _, _ := newTestServer(newStubConcerts())

	if rec := doJSON(t, h, http.MethodGet, "/api/v1/settings", nil); rec.Code != http.StatusOK {
		t.Fatalf("get settings: expected 200, got %d", rec.Code)
	}
	rec := doJSON(t, h, http.MethodPut, "/api/v1/settings", map[string]any{"theme": "devil"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"devil"`) {
		t.Fatalf("update settings: got %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodPut, "/api/v1/settings", map[string]any{"theme": "neon"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid theme: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPut, "/api/v1/settings", map[string]any{"volume": 11}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", rec.Code)
	}
}

func TestUploadMedia(t *testing.T) {
	h, _, _, med := newTestServer(newStubConcerts())

	upload := func(filename string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", filename)
		_, _ = fw.Write([]byte("imagebytes"))
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/concerts/1/media", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("stage.png")
	if rec.Code != http.StatusCreated || med.filename != "stage.png" || med.body != "imagebytes" {
		t.Fatalf("upload: got %d %q %q", rec.Code, med.filename, med.body)
	}
	if rec := upload("setlist.txt"); rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("non-image: expected 415, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/media/concerts/1/x.png", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "png" || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("get media: got %d %q", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/media/concerts/2/none.png", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing media: expected 404, got %d", rec.Code)
	}
}

func TestLoginAndUpdate(t *testing.T) {
	h, _, _, _ := newTestServer(newStubConcerts())

	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "owner", "password": "pw"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token":"jwt"`) {
		t.Fatalf("login: got %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "owner", "password": "no"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/update", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"available"`) {
		t.Fatalf("update: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestWriteJSONUnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, models.Concert{EventTitle: "Gig", Rating: math.Inf(1)})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Fatalf("expected JSON error body, got %q", rec.Body.String())
	}
}

func TestUpdateResponseUsesCamelCase(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, update.Result{Status: update.StatusAvailable, Latest: "2.0.0", DownloadURL: "https://example.com/dl"})

	if !strings.Contains(rec.Body.String(), `"downloadUrl":"https://example.com/dl"`) {
		t.Fatalf("unexpected update payload %s", rec.Body.String())
	}
}
