package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	httpadapter "github.com/couchcryptid/efb-avv-checker/internal/adapter/http"
	"github.com/couchcryptid/efb-avv-checker/internal/adapter/sqlite"
	"github.com/couchcryptid/efb-avv-checker/internal/checker"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	"github.com/couchcryptid/efb-avv-checker/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "efb_avv.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seededServer(t *testing.T) *httpadapter.Server {
	t.Helper()
	store := openStore(t)
	lat, lon := 53.14, 8.21
	_, err := store.ReplaceCatalog(context.Background(),
		domain.Meta{domain.MetaSourcePDF: "zertifikat.pdf", domain.MetaGeneratedAt: "2024-03-05T08:30:15Z"},
		[]domain.SiteCatalog{
			{
				Site: domain.Site{Annex: 1, Name: "Biogasanlage Oldenburg", Street: "Am Kompostwerk 1", PostalCode: "26123",
					City: "Oldenburg", State: "NI", Lat: &lat, Lon: &lon},
				Codes: []domain.WasteCode{
					{Code: "020106", Text: "Gülle"},
					{Code: "200108", Text: "Küchenabfälle | Beiblatt: nur Biotonne"},
				},
			},
			{
				Site:  domain.Site{Annex: 3, Name: "Trockenvergärung Nordheide", PostalCode: "21255", City: "Tostedt", State: "NI"},
				Codes: []domain.WasteCode{{Code: "200201", Text: "biologisch abbaubare Abfälle"}},
			},
		})
	require.NoError(t, err)

	svc := checker.NewService(store, nil, discardLogger(), observability.NewMetricsForTesting())
	return httpadapter.NewServer(":0", svc, discardLogger())
}

func get(t *testing.T, srv http.Handler, path string, into any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	if into != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into), rec.Body.String())
	}
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := seededServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenSeeded(t *testing.T) {
	srv := seededServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenEmpty(t *testing.T) {
	svc := checker.NewService(openStore(t), nil, discardLogger(), observability.NewMetricsForTesting())
	srv := httpadapter.NewServer(":0", svc, discardLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := seededServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMeta(t *testing.T) {
	var meta map[string]string
	rec := get(t, seededServer(t), "/api/v1/meta", &meta)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zertifikat.pdf", meta["source_pdf"])
	assert.Equal(t, "2024-03-05T08:30:15Z", meta["generated_at_utc"])
}

func TestSites(t *testing.T) {
	var body struct {
		Sites []domain.SiteSummary `json:"sites"`
	}
	rec := get(t, seededServer(t), "/api/v1/sites", &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body.Sites, 2)
	assert.Equal(t, "Oldenburg (NI) • Anlage 1", body.Sites[0].Label)
	assert.Equal(t, 2, body.Sites[0].CodeCount)
	assert.Equal(t, "Tostedt", body.Sites[1].Site.City)
}

func TestSite(t *testing.T) {
	srv := seededServer(t)

	var summary domain.SiteSummary
	rec := get(t, srv, "/api/v1/sites/2", &summary)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trockenvergärung Nordheide", summary.Site.Name)

	var errBody map[string]string
	rec = get(t, srv, "/api/v1/sites/99", &errBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "site not found", errBody["error"])

	rec = get(t, srv, "/api/v1/sites/abc", &errBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid site id", errBody["error"])

	rec = get(t, srv, "/api/v1/sites/0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCodes(t *testing.T) {
	srv := seededServer(t)

	var body struct {
		SiteID int64              `json:"site_id"`
		Count  int                `json:"count"`
		Codes  []domain.WasteCode `json:"codes"`
	}
	rec := get(t, srv, "/api/v1/sites/1/codes?filter=biotonne", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), body.SiteID)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "200108", body.Codes[0].Code)

	rec = get(t, srv, "/api/v1/sites/1/codes?filter=nichts", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Codes, "empty list, not null")
}

func TestCheck(t *testing.T) {
	srv := seededServer(t)

	type checkBody struct {
		Input       string             `json:"input"`
		Code        string             `json:"code"`
		Valid       bool               `json:"valid"`
		Positive    bool               `json:"positive"`
		Entry       *domain.WasteCode  `json:"entry"`
		Suggestions []domain.WasteCode `json:"suggestions"`
		Message     string             `json:"message"`
		Notice      string             `json:"notice"`
	}

	t.Run("positive", func(t *testing.T) {
		var body checkBody
		rec := get(t, srv, "/api/v1/sites/1/check?avv=20+01+08", &body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, body.Positive)
		assert.Equal(t, "200108", body.Code)
		require.NotNil(t, body.Entry)
		assert.Contains(t, body.Entry.Text, "Biotonne")
		assert.Equal(t, domain.CheckNotice, body.Notice)
	})

	t.Run("negative", func(t *testing.T) {
		var body checkBody
		rec := get(t, srv, "/api/v1/sites/1/check?avv=020102", &body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, body.Valid)
		assert.False(t, body.Positive)
		require.Len(t, body.Suggestions, 1)
		assert.Equal(t, "020106", body.Suggestions[0].Code)
	})

	t.Run("invalid input returns 200", func(t *testing.T) {
		var body checkBody
		rec := get(t, srv, "/api/v1/sites/1/check?avv=abc", &body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, body.Valid)
		assert.NotEmpty(t, body.Message)
	})

	t.Run("unknown site", func(t *testing.T) {
		rec := get(t, srv, "/api/v1/sites/7/check?avv=200108", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLocation(t *testing.T) {
	srv := seededServer(t)

	var stored domain.Location
	rec := get(t, srv, "/api/v1/sites/1/location", &stored)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checker.SourceStored, stored.Source)
	require.NotNil(t, stored.Lat)
	assert.InDelta(t, 53.14, *stored.Lat, 1e-9)

	var unresolved domain.Location
	rec = get(t, srv, "/api/v1/sites/2/location", &unresolved)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checker.SourceUnresolved, unresolved.Source)
	require.NotNil(t, unresolved.Links)
	assert.Contains(t, unresolved.Links.GoogleMaps, "Tostedt")
}

func TestUnknownRouteIs404(t *testing.T) {
	rec := httptest.NewRecorder()
	seededServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
