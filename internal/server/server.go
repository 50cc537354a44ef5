// Package server serves the portfolio pages over HTTP from the project
// store, rendering on demand and caching the result.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/manifest"
	"github.com/R-Vicente/signal-and-noise/internal/project"
	"github.com/R-Vicente/signal-and-noise/internal/view"
)

const (
	requestTimeout    = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	compressLevel     = 5

	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	notFoundMessage = "Page not found"
)

type Server struct {
	cfg      *config.Config
	store    *project.Store
	renderer *view.Renderer
	pages    *cache.Cache
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics
	handler  http.Handler

	// generation counts store reloads. Cached pages carry the generation
	// they were rendered under.
	generation atomic.Uint64
}

type cachedPage struct {
	generation uint64
	body       []byte
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets the registry served on /metrics.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// New builds a server for a loaded store.
func New(cfg *config.Config, store *project.Store, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		renderer: view.New(cfg),
		pages:    cache.New(cfg.Server.CacheTTL, cfg.Server.CacheTTL*2),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry, store)
	s.handler = s.routes()

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(middleware.GetHead)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(compressLevel, contentTypeHTML, contentTypeJSON))

	r.NotFound(s.handleNotFound)

	site := func(r chi.Router) {
		r.Get("/", s.handleIndex)
		r.Get("/category/{value}/", s.handleCategory)
		r.Get("/category/{value}", redirectSlash)
		r.Get("/projects/{slug}/", s.handleProject)
		r.Get("/projects/{slug}", redirectSlash)
		r.Get("/"+manifest.ManifestFile, s.handleManifest)
	}

	// Pages link under the base URL path, so the routes live there too.
	if base := strings.TrimSuffix(s.renderer.Link("/"), "/"); base != "" {
		r.Route(base, site)
	} else {
		site(r)
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// Invalidate drops every cached page. It is called after the store reloads.
func (s *Server) Invalidate() {
	s.generation.Add(1)
	s.pages.Flush()
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr)
	if err != nil {
		return oops.
			Code("SERVER_FAILED").
			With("addr", s.cfg.Server.Addr).
			Hint("Pick a free address with --addr").
			Wrapf(err, "listening on %s", s.cfg.Server.Addr)
	}

	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down
// gracefully within the configured timeout. With server.watch set, file
// changes reload the store and flush the page cache.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.logger.Info("serving portfolio", "addr", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.
				Code("SERVER_FAILED").
				Wrapf(err, "serving http")
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return oops.
				Code("SERVER_FAILED").
				Wrapf(err, "shutting down server")
		}
		return nil
	})

	if s.cfg.Server.Watch {
		group.Go(func() error {
			return s.store.Watch(groupCtx, project.DefaultDebounce, func() {
				s.metrics.reloadsTotal.Inc()
				s.Invalidate()
			})
		})
	}

	return group.Wait()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, "index", func(w io.Writer) error {
		return s.renderer.IndexPage(w, s.store.All(), config.FilterAll)
	})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	value := strings.ToLower(chi.URLParam(r, "value"))
	if !s.renderer.HasFilter(value) {
		s.handleNotFound(w, r)
		return
	}

	s.servePage(w, r, "category:"+value, func(w io.Writer) error {
		return s.renderer.IndexPage(w, s.store.Filter(value), value)
	})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(chi.URLParam(r, "slug"))
	if err != nil {
		s.handleNotFound(w, r)
		return
	}

	s.servePage(w, r, "project:"+p.Slug, func(w io.Writer) error {
		return s.renderer.DetailPage(w, p)
	})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	body, err := s.cached("manifest", func(w io.Writer) error {
		m := manifest.Build(s.store.All(), manifest.Options{
			Site:        s.cfg.Site.Title,
			Placeholder: s.cfg.Display.CardPlaceholder,
			Link:        s.renderer.Link,
			Root:        s.cfg.ConfigDir,
		})
		data, err := m.Encode()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	_, _ = w.Write(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeJSON)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"projects": len(s.store.All()),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	body, err := s.cached("notfound", func(w io.Writer) error {
		return s.renderer.NotFoundPage(w, notFoundMessage)
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(body)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, key string, render func(io.Writer) error) {
	body, err := s.cached(key, render)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	_, _ = w.Write(body)
}

// cached returns the rendered bytes for key, rendering on a miss.
// A page rendered across a reload keeps the old generation and is never
// served from the cache.
func (s *Server) cached(key string, render func(io.Writer) error) ([]byte, error) {
	generation := s.generation.Load()

	if entry, ok := s.pages.Get(key); ok {
		if page := entry.(cachedPage); page.generation == generation {
			s.metrics.cacheHits.Inc()
			return page.body, nil
		}
	}
	s.metrics.cacheMisses.Inc()

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, err
	}

	body := buf.Bytes()
	s.pages.Set(key, cachedPage{generation: generation, body: body}, cache.DefaultExpiration)
	return body, nil
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "rendering page failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func redirectSlash(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Path + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}
