package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/service"
	"github.com/digkill/vidcrafter/internal/storage"
)

// Identity resolves the caller of a request.
type Identity interface {
	Resolve(r *http.Request) (*models.User, error)
}

// BlobStore backs the file routes.
type BlobStore interface {
	Put(ctx context.Context, fileType storage.FileType, filename string, body io.Reader, size int64) (*storage.Object, error)
	Get(ctx context.Context, fileType storage.FileType, filename string) (*storage.Object, io.ReadCloser, error)
	List(ctx context.Context, fileType storage.FileType) ([]storage.Object, error)
}

type Deps struct {
	Identity    Identity
	Coupons     *service.CouponService
	Gate        *service.UsageGate
	Generations *service.GenerationService
	Stats       *service.StatsService
	// Store is optional; file routes are not mounted without it.
	Store    BlobStore
	Gatherer prometheus.Gatherer
}

type Options struct {
	Addr           string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type Server struct {
	opts   Options
	log    *slog.Logger
	deps   Deps
	router *chi.Mux
}

func New(opts Options, log *slog.Logger, deps Deps) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	s := &Server{
		opts:   opts,
		log:    log,
		deps:   deps,
		router: r,
	}

	r.Get("/healthz", s.handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		api.Group(func(user chi.Router) {
			user.Use(middleware.Timeout(opts.RequestTimeout))
			user.Use(s.requireUser)
			user.Get("/auth/me", s.handleAccount)
			user.Get("/generation/check-limit", s.handleCheckLimit)
			user.Post("/generation/log", s.handleLogGeneration)
			user.Get("/generation/log", s.handleListGenerations)
			user.Post("/coupon/redeem", s.handleRedeem)

			user.Route("/admin", func(admin chi.Router) {
				admin.Use(s.requireAdmin)
				admin.Get("/coupons", s.handleListCoupons)
				admin.Post("/coupons", s.handleCreateCoupon)
				admin.Get("/coupons/{id}", s.handleGetCoupon)
				admin.Delete("/coupons/{id}", s.handleDeleteCoupon)
				admin.Get("/stats", s.handleStats)
				admin.Get("/logs", s.handleRecentLogs)
			})
		})

		if deps.Store != nil {
			api.With(s.requireUser).Post("/upload", s.handleUpload)
			api.Get("/files/{type}/{filename}", s.handleServeFile)
			api.Get("/download", s.handleListFiles)
			api.Get("/download/file", s.handleDownloadFile)
		}
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.opts.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
