package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/vuxmai/catalog-admin/internal/auth"
	"github.com/vuxmai/catalog-admin/internal/config"
	"github.com/vuxmai/catalog-admin/internal/http/metric"
	"github.com/vuxmai/catalog-admin/internal/http/middleware"
	"github.com/vuxmai/catalog-admin/internal/http/swagger"
	"github.com/vuxmai/catalog-admin/internal/service"
	"github.com/vuxmai/catalog-admin/internal/storage/db"
	"github.com/vuxmai/catalog-admin/pkg/validator"
)

var tracer = otel.Tracer("internal/http")

// Service represents the HTTP service.
type Service struct {
	cfg       config.HTTP
	logger    *slog.Logger
	metrics   *metric.Metrics
	validator validator.Validator

	jwtManager *auth.JWTManager
	denylist   service.TokenDenylist
	health     db.HealthChecker

	productSvc service.ProductService
	authSvc    service.AuthService
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	jwtManager *auth.JWTManager,
	denylist service.TokenDenylist,
	health db.HealthChecker,
	productSvc service.ProductService,
	authSvc service.AuthService,
) *Service {
	return &Service{
		cfg:        cfg,
		logger:     log.With(slog.String("service", "http")),
		metrics:    metric.New(),
		validator:  validator.NewDefaultValidator(),
		jwtManager: jwtManager,
		denylist:   denylist,
		health:     health,
		productSvc: productSvc,
		authSvc:    authSvc,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return s.RunWithServer(ctx, r)
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	products := newProductHandler(s, s.productSvc)
	accounts := newAuthHandler(s, s.authSvc)
	requireAuth := middleware.Auth(s.logger, s.jwtManager, s.denylist)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.list)
			r.Get("/{id}", products.getByID)
			r.Get("/slug/{slug}", products.getBySlug)
			r.Get("/group/{groupID}", products.listByGroup)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Post("/", products.create)
				r.Put("/{id}", products.update)
				r.Patch("/{id}", products.update)
				r.Delete("/{id}", products.delete)
				r.Patch("/{id}/price", products.updatePrice)
				r.Patch("/{id}/stock", products.updateStock)
				r.Patch("/{id}/group", products.updateGroup)
				r.Patch("/{id}/status", products.updateStatus)
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", accounts.register)
			r.Post("/login", accounts.login)
			r.Post("/logout", accounts.logout)
			r.Post("/forgot-password", accounts.forgotPassword)
			r.Post("/reset-password", accounts.resetPassword)
		})
	})

	r.Get("/healthz", s.handleHealthz)

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	healthy, err := s.health.IsHealthy(r.Context())
	if err != nil || !healthy {
		s.logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
		s.respond(w, r, http.StatusServiceUnavailable, "unhealthy", nil)
		return
	}

	s.respond(w, r, http.StatusOK, "ok", nil)
}
