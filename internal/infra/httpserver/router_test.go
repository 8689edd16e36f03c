package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/argus/internal/application"
	appanalysis "github.com/bryanwahyu/argus/internal/application/analysis"
	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
	"github.com/bryanwahyu/argus/internal/infra/db/memory"
	"github.com/bryanwahyu/argus/internal/middleware"
)

var testNow = time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)

type scripted struct{ draws []int }

func (s scripted) New() domain.Rand { return &replay{draws: append([]int(nil), s.draws...)} }

type replay struct{ draws []int }

func (r *replay) IntN(int) int {
	v := r.draws[0]
	r.draws = r.draws[1:]
	return v
}

type fakeUploads struct {
	mu   sync.Mutex
	keys []string
	body []byte
	err  error
}

func (f *fakeUploads) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	f.body = b
	return "http://minio/" + key, nil
}

type fixture struct {
	handler http.Handler
	repo    *memory.AnalysisRepository
	uploads *fakeUploads
}

func newFixture(t *testing.T, draws []int) fixture {
	t.Helper()
	repo := memory.NewAnalysisRepository()
	svc := &appanalysis.Service{
		Repo:  repo,
		Clock: application.FixedClock{T: testNow},
		Rand:  scripted{draws: draws},
	}
	uploads := &fakeUploads{}
	h := NewRouter(svc, Deps{
		Uploads:        uploads,
		Metrics:        middleware.NewMetrics(prometheus.NewRegistry()),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:          application.FixedClock{T: testNow},
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	return fixture{handler: h, repo: repo, uploads: uploads}
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRecord(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestDetectObject(t *testing.T) {
	f := newFixture(t, []int{1, 1})
	req := multipartRequest(t, "/api/analysis/detect-object", map[string]string{"targetObject": "keys"}, "photo1.jpg", []byte("\xff\xd8jpeg"))

	rec := serve(f.handler, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeRecord(t, rec.Body)
	assert.EqualValues(t, 1, got["id"])
	assert.Equal(t, "photo1.jpg", got["fileName"])
	assert.Equal(t, "OBJECT_DETECTION", got["analysisType"])
	assert.Equal(t, "keys", got["targetObject"])
	assert.Equal(t, "Found 2 instance(s) of 'keys' in the image.", got["result"])
	assert.Equal(t, "2026-10-15T14:00:00Z", got["createdAt"])

	require.Len(t, f.uploads.keys, 1)
	assert.True(t, strings.HasPrefix(f.uploads.keys[0], "uploads/2026/10/15/"))
	assert.Equal(t, []byte("\xff\xd8jpeg"), f.uploads.body)
}

func TestDetectObjectMissingTarget(t *testing.T) {
	f := newFixture(t, nil)
	req := multipartRequest(t, "/api/analysis/detect-object", nil, "photo1.jpg", []byte("x"))

	rec := serve(f.handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"targetObject required for object detection"}`, rec.Body.String())

	n, _ := f.repo.Count(context.Background())
	assert.Zero(t, n)
	assert.Empty(t, f.uploads.keys)
}

func TestDetectObjectOverlongTargetNotArchived(t *testing.T) {
	f := newFixture(t, nil)
	req := multipartRequest(t, "/api/analysis/detect-object", map[string]string{"targetObject": strings.Repeat("k", 129)}, "photo1.jpg", []byte("x"))

	rec := serve(f.handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.uploads.keys)
}

func TestGeneralAnalysis(t *testing.T) {
	f := newFixture(t, []int{1, 0, 2, 3})
	req := multipartRequest(t, "/api/analysis/general-analysis", nil, "room.png", []byte("png"))

	rec := serve(f.handler, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeRecord(t, rec.Body)
	assert.Nil(t, got["targetObject"])
	assert.Equal(t, []string{"phone", "book", "cup"}, domain.Items(got["result"].(string)))
}

func TestGeneralAnalysisRequiresFile(t *testing.T) {
	f := newFixture(t, nil)
	req := multipartRequest(t, "/api/analysis/general-analysis", map[string]string{"x": "y"}, "", nil)

	rec := serve(f.handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestNonMultipartBody(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/general-analysis", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	assert.Equal(t, http.StatusBadRequest, serve(f.handler, req).Code)
}

func TestUploadArchiveFailure(t *testing.T) {
	f := newFixture(t, []int{1, 0, 2, 3})
	f.uploads.err = errors.New("minio unavailable")
	req := multipartRequest(t, "/api/analysis/general-analysis", nil, "room.png", []byte("png"))

	rec := serve(f.handler, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	n, _ := f.repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t, []int{0})
	rec := serve(f.handler, multipartRequest(t, "/api/analysis/detect-object", map[string]string{"targetObject": "pen"}, "desk.jpg", []byte("x")))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/analysis/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeRecord(t, rec.Body)
	assert.Equal(t, "Object 'pen' was not found in the image.", got["result"])

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/analysis/2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/analysis/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/analysis?page=1&page_size=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Data, 1)
	assert.Equal(t, domain.SomeTarget("pen"), page.Data[0].TargetObject)
}

func TestListFarPage(t *testing.T) {
	f := newFixture(t, []int{0})
	rec := serve(f.handler, multipartRequest(t, "/api/analysis/detect-object", map[string]string{"targetObject": "pen"}, "desk.jpg", []byte("x")))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/analysis?page=1152921504606846976&page_size=16", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page domain.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 1152921504606846976, page.Page)
	assert.Equal(t, int64(1), page.Total)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestCatalog(t *testing.T) {
	f := newFixture(t, nil)
	rec := serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/analysis/catalog", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"labels":["phone","laptop","book","cup","glasses","keys","wallet","pen"]}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/analysis/detect-object", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := serve(f.handler, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	rec := serve(f.handler, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "argus_http_requests_total")
}
