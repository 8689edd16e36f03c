package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/argus/internal/application"
	appanalysis "github.com/bryanwahyu/argus/internal/application/analysis"
	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
	"github.com/bryanwahyu/argus/internal/infra/storage"
	"github.com/bryanwahyu/argus/internal/middleware"
)

const defaultMaxUpload = 32 << 20

// Deps are the optional collaborators of the router. Nil fields are skipped.
type Deps struct {
	Uploads        domain.UploadStore
	Metrics        *middleware.Metrics
	Limiter        *middleware.RateLimiter
	Logger         *slog.Logger
	Clock          application.Clock
	APIKeys        map[string]string
	AllowedOrigins []string
	HealthCheckers map[string]middleware.HealthChecker
	MaxUploadBytes int64
}

type Router struct {
	svc  *appanalysis.Service
	deps Deps
}

func NewRouter(svc *appanalysis.Service, deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = application.SystemClock{}
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUpload
	}
	r := &Router{svc: svc, deps: deps}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(deps.Logger))
	if deps.Metrics != nil {
		mux.Use(deps.Metrics.Middleware)
	}
	if len(deps.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         3600,
		}))
	}
	mux.Use(middleware.APIKeyAuth(deps.APIKeys))
	if deps.Limiter != nil {
		mux.Use(middleware.RateLimit(deps.Limiter))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(deps.HealthCheckers))
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	mux.Route("/api/analysis", func(rt chi.Router) {
		rt.Post("/detect-object", r.wrap(r.handleDetectObject))
		rt.Post("/general-analysis", r.wrap(r.handleGeneralAnalysis))
		rt.Get("/", r.wrap(r.handleList))
		rt.Get("/catalog", r.wrap(r.handleCatalog))
		rt.Get("/{id}", r.wrap(r.handleGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries a transport-level status.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var herr *httpError
		switch {
		case errors.As(err, &herr):
			writeJSON(w, herr.status, errorBody(herr.msg))
		case errors.Is(err, domain.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		default:
			r.deps.Logger.ErrorContext(req.Context(), "request failed",
				"path", req.URL.Path,
				"request_id", middleware.GetRequestID(req.Context()),
				"error", err,
			)
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
	}
}

// POST /api/analysis/detect-object
// multipart: file, targetObject
func (r *Router) handleDetectObject(w http.ResponseWriter, req *http.Request) error {
	var target string
	fileName, err := r.receiveUpload(w, req, func() error {
		target = req.FormValue("targetObject")
		if err := middleware.ValidateTargetObject(target); err != nil {
			return badRequest("%v", err)
		}
		if err := domain.Validate(domain.TypeObjectDetection, target); err != nil {
			r.observe(domain.TypeObjectDetection, err)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	rec, err := r.svc.AnalyzeObjectDetection(req.Context(), fileName, target)
	r.observe(domain.TypeObjectDetection, err)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// POST /api/analysis/general-analysis
// multipart: file
func (r *Router) handleGeneralAnalysis(w http.ResponseWriter, req *http.Request) error {
	fileName, err := r.receiveUpload(w, req, nil)
	if err != nil {
		return err
	}

	rec, err := r.svc.AnalyzeGeneral(req.Context(), fileName)
	r.observe(domain.TypeGeneralAnalysis, err)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// receiveUpload reads the "file" part and returns the caller's filename.
// The bytes are only forwarded to the upload archive, if one is configured.
// check, when set, runs on the parsed form before anything is archived.
func (r *Router) receiveUpload(w http.ResponseWriter, req *http.Request, check func() error) (string, error) {
	req.Body = http.MaxBytesReader(w, req.Body, r.deps.MaxUploadBytes)
	if err := req.ParseMultipartForm(r.deps.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", &httpError{status: http.StatusRequestEntityTooLarge, msg: "upload too large"}
		}
		return "", badRequest("invalid multipart form: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return "", badRequest("file is required")
	}
	defer file.Close()

	if err := middleware.ValidateFileName(header.Filename); err != nil {
		return "", badRequest("%v", err)
	}
	if check != nil {
		if err := check(); err != nil {
			return "", err
		}
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveUpload(header.Size)
	}
	if r.deps.Uploads != nil {
		if err := r.archive(req, file, header); err != nil {
			return "", err
		}
	}
	return header.Filename, nil
}

func (r *Router) archive(req *http.Request, file multipart.File, header *multipart.FileHeader) error {
	key := storage.UploadKey(r.deps.Clock.Now(), header.Filename)
	url, err := r.deps.Uploads.Put(req.Context(), key, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		r.deps.Logger.ErrorContext(req.Context(), "upload archive failed", "key", key, "error", err)
		return &httpError{status: http.StatusBadGateway, msg: "upload archive failed"}
	}
	r.deps.Logger.InfoContext(req.Context(), "upload archived",
		"file_name", header.Filename,
		"url", url,
		"request_id", middleware.GetRequestID(req.Context()),
	)
	return nil
}

// GET /api/analysis?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.List(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/analysis/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil || id <= 0 {
		return badRequest("invalid analysis id")
	}

	rec, err := r.svc.Get(req.Context(), domain.ID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// GET /api/analysis/catalog
func (r *Router) handleCatalog(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{"labels": domain.Catalog()})
}

func (r *Router) observe(t domain.Type, err error) {
	if r.deps.Metrics == nil {
		return
	}
	outcome := "saved"
	switch {
	case err == nil:
	case appanalysis.IsClientError(err):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	r.deps.Metrics.ObserveAnalysis(string(t), outcome)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
