package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/nog/internal/domain/analysis"
	"github.com/bryanwahyu/nog/internal/domain/checks"
	"github.com/bryanwahyu/nog/internal/middleware"
)

const tooManyRequests = "Too many requests. Please wait a moment and try again."

// Analyzer runs one analysis; userID is empty for anonymous callers
type Analyzer interface {
	Analyze(ctx context.Context, req domain.Request, userID string) (domain.Result, error)
}

// History serves the signed-in user's checks and favorites
type History interface {
	History(ctx context.Context, userID string) ([]*checks.Record, error)
	Favorites(ctx context.Context, userID string) ([]*checks.Record, error)
	SetFavorite(ctx context.Context, userID, id string, favorite bool) error
	ToggleFavorite(ctx context.Context, userID, id string) (bool, error)
	Delete(ctx context.Context, userID, id string) error
}

type Deps struct {
	Analyzer       Analyzer
	History        History
	Logger         *zap.Logger
	Tokens         map[string]string
	AllowedOrigins []string
	Health         map[string]middleware.HealthChecker
	// Gatherer backs /metrics, defaults to the global registry
	Gatherer prometheus.Gatherer
}

type Router struct {
	analyzer Analyzer
	history  History
	logger   *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := &Router{analyzer: d.Analyzer, history: d.History, logger: logger}
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(logger))
	mux.Use(middleware.Metrics)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(d.Health))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.UserIdentity(d.Tokens))

		rt.Get("/allergens", r.wrap(r.handleAllergens))
		rt.Post("/analyze/text", r.wrap(r.handleAnalyzeText))
		rt.Post("/analyze/image", r.wrap(r.handleAnalyzeImage))

		rt.Route("/checks", func(rt chi.Router) {
			rt.Use(middleware.RequireUser)
			rt.Get("/", r.wrap(r.handleHistory))
			rt.Get("/favorites", r.wrap(r.handleFavorites))
			rt.Put("/{id}/favorite", r.wrap(r.handleSetFavorite))
			rt.Post("/{id}/favorite/toggle", r.wrap(r.handleToggleFavorite))
			rt.Delete("/{id}", r.wrap(r.handleDelete))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks input errors raised by the handlers themselves
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		code, msg := r.status(req, err)
		if code >= http.StatusInternalServerError {
			r.logger.Error("request failed",
				zap.String("path", req.URL.Path),
				zap.Int("status", code),
				zap.Error(err),
			)
		}
		writeJSON(w, code, map[string]string{"error": msg})
	}
}

func (r *Router) status(req *http.Request, err error) (int, string) {
	var bad badRequest
	var ae *domain.AnalysisError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, bad.msg
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "image is larger than 5 MB"
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnknownAllergen):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &ae):
		if ae.Kind == domain.ErrorRateLimited {
			return http.StatusTooManyRequests, tooManyRequests
		}
		if strings.HasSuffix(req.URL.Path, "/image") {
			return http.StatusBadGateway, "Failed to analyze image. Please try again."
		}
		return http.StatusBadGateway, "Failed to analyze ingredients. Please try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis was cancelled"
	case errors.Is(err, checks.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, checks.ErrStorage):
		return http.StatusInternalServerError, "could not reach check storage"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /v1/allergens
func (r *Router) handleAllergens(w http.ResponseWriter, req *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":   domain.DefaultAllergen,
		"allergens": domain.Catalog(),
	})
	return nil
}

// POST /v1/analyze/text
// Body: {"ingredients": "...", "allergens": ["gluten", "caffeine"]}
func (r *Router) handleAnalyzeText(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Ingredients string   `json:"ingredients"`
		Allergens   []string `json:"allergens"`
	}
	dec := json.NewDecoder(io.LimitReader(req.Body, 1<<20))
	if err := dec.Decode(&body); err != nil {
		return invalid("invalid JSON body: %v", err)
	}
	text := middleware.SanitizeString(body.Ingredients)
	if err := middleware.ValidateIngredients(text); err != nil {
		return invalid("%s", err.Error())
	}
	if err := domain.ValidateAllergens(body.Allergens); err != nil {
		return err
	}

	res, err := r.analyzer.Analyze(req.Context(), domain.NewTextRequest(text, body.Allergens), middleware.UserFromContext(req.Context()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/analyze/image
// Multipart form: image=<file>, allergens=gluten,caffeine
func (r *Router) handleAnalyzeImage(w http.ResponseWriter, req *http.Request) error {
	// multipart overhead on top of the image
	req.Body = http.MaxBytesReader(w, req.Body, middleware.MaxImageBytes+64<<10)
	if err := req.ParseMultipartForm(middleware.MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return invalid("invalid multipart form: %v", err)
	}
	defer func() { _ = req.MultipartForm.RemoveAll() }()

	file, header, err := req.FormFile("image")
	if err != nil {
		return invalid("image file is required")
	}
	defer file.Close()
	if header.Size > middleware.MaxImageBytes {
		return &http.MaxBytesError{Limit: middleware.MaxImageBytes}
	}
	data, err := io.ReadAll(io.LimitReader(file, middleware.MaxImageBytes+1))
	if err != nil {
		return invalid("could not read image: %v", err)
	}
	if len(data) > middleware.MaxImageBytes {
		return &http.MaxBytesError{Limit: middleware.MaxImageBytes}
	}
	if len(data) == 0 {
		return invalid("image file is empty")
	}

	mimeType := middleware.DetectImageType(data, header.Header.Get("Content-Type"))
	if err := middleware.ValidateImageType(mimeType); err != nil {
		return invalid("%s", err.Error())
	}
	allergens, err := middleware.ParseAllergens(req.FormValue("allergens"))
	if err != nil {
		return err
	}

	res, err := r.analyzer.Analyze(req.Context(), domain.NewImageRequest(data, mimeType, allergens), middleware.UserFromContext(req.Context()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/checks
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	list, err := r.history.History(req.Context(), middleware.UserFromContext(req.Context()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/checks/favorites
func (r *Router) handleFavorites(w http.ResponseWriter, req *http.Request) error {
	list, err := r.history.Favorites(req.Context(), middleware.UserFromContext(req.Context()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// PUT /v1/checks/{id}/favorite
// Body: {"favorite": true}
func (r *Router) handleSetFavorite(w http.ResponseWriter, req *http.Request) error {
	id, err := checkID(req)
	if err != nil {
		return err
	}
	var body struct {
		Favorite *bool `json:"favorite"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, 4<<10)).Decode(&body); err != nil {
		return invalid("invalid JSON body: %v", err)
	}
	if body.Favorite == nil {
		return invalid("favorite is required")
	}
	if err := r.history.SetFavorite(req.Context(), middleware.UserFromContext(req.Context()), id, *body.Favorite); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "isFavorite": *body.Favorite})
	return nil
}

// POST /v1/checks/{id}/favorite/toggle
func (r *Router) handleToggleFavorite(w http.ResponseWriter, req *http.Request) error {
	id, err := checkID(req)
	if err != nil {
		return err
	}
	fav, err := r.history.ToggleFavorite(req.Context(), middleware.UserFromContext(req.Context()), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "isFavorite": fav})
	return nil
}

// DELETE /v1/checks/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := checkID(req)
	if err != nil {
		return err
	}
	if err := r.history.Delete(req.Context(), middleware.UserFromContext(req.Context()), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func checkID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateCheckID(id); err != nil {
		return "", invalid("%s", err.Error())
	}
	return id, nil
}
