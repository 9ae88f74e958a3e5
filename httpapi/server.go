// Package httpapi exposes lookup, preview, export and template upload over HTTP.
package httpapi

import (
	"context"
	"image"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ByLCY/certify/assets"
	"github.com/ByLCY/certify/async"
	"github.com/ByLCY/certify/export"
	"github.com/ByLCY/certify/layout"
	"github.com/ByLCY/certify/registry"
	"github.com/ByLCY/certify/renderer"
)

// ImageStore loads template images and accepts uploaded replacements.
type ImageStore interface {
	Load(ctx context.Context, src string) (image.Image, error)
	Put(src string, data []byte) (image.Image, error)
	Forget(src string)
}

// DefaultDeliveryTTL bounds how long an unpolled delivery outcome is kept.
const DefaultDeliveryTTL = 15 * time.Minute

// Deps wires a Server.
type Deps struct {
	Templates map[string]layout.Template
	Images    ImageStore
	Registry  registry.Lookuper
	Renderer  renderer.Renderer
	Exporter  *export.Exporter
	Upload    assets.UploadPolicy
	Logger    *slog.Logger

	// DeliveryTTL 之后未被查询的投递结果会被清理，默认 DefaultDeliveryTTL。
	DeliveryTTL time.Duration
}

// Server serves the certificate API. Each request renders from its own inputs.
type Server struct {
	images   ImageStore
	registry registry.Lookuper
	renderer renderer.Renderer
	exporter *export.Exporter
	upload   assets.UploadPolicy
	logger   *slog.Logger

	mu        sync.RWMutex
	templates map[string]layout.Template

	deliveryTTL time.Duration
	deliveries  sync.Map // id -> trackedDelivery
}

type trackedDelivery struct {
	future  *async.Future[export.Delivery]
	created time.Time
}

// New creates a server.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Upload.MaxBytes <= 0 {
		deps.Upload.MaxBytes = assets.DefaultMaxUploadBytes
	}
	if deps.DeliveryTTL <= 0 {
		deps.DeliveryTTL = DefaultDeliveryTTL
	}
	return &Server{
		images:    deps.Images,
		registry:  deps.Registry,
		renderer:  deps.Renderer,
		exporter:  deps.Exporter,
		upload:    deps.Upload,
		logger:    logger,
		templates: maps.Clone(deps.Templates),

		deliveryTTL: deps.DeliveryTTL,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/lookup", s.handleLookup)
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.handleTemplates)
		r.Post("/{template}/image", s.handleUpload)
	})
	r.Route("/certificates/{template}", func(r chi.Router) {
		r.Get("/preview", s.handlePreview)
		r.Post("/", s.handleExport)
	})
	r.Get("/deliveries/{id}", s.handleDelivery)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

func (s *Server) template(name string) (layout.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[name]
	return tpl, ok
}

func (s *Server) templateNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.templates))
}

// setTemplateImage points the template at src and returns the source it replaced.
func (s *Server) setTemplateImage(name, src string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl := s.templates[name]
	prev := tpl.Image
	tpl.Image = src
	s.templates[name] = tpl
	return prev
}

// trackDelivery registers f under id and sweeps outcomes nobody polled in time.
func (s *Server) trackDelivery(id string, f *async.Future[export.Delivery]) {
	now := time.Now()
	s.deliveries.Range(func(key, value any) bool {
		if now.Sub(value.(trackedDelivery).created) > s.deliveryTTL {
			s.deliveries.Delete(key)
		}
		return true
	})
	s.deliveries.Store(id, trackedDelivery{future: f, created: now})
}
