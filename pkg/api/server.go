package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-community/pkg/auth"
	"github.com/dd0wney/cluso-community/pkg/export"
	"github.com/dd0wney/cluso-community/pkg/health"
	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/metrics"
	"github.com/dd0wney/cluso-community/pkg/optimiser"
	"github.com/dd0wney/cluso-community/pkg/resultstore"
	"github.com/dd0wney/cluso-community/pkg/server"

	apimw "github.com/dd0wney/cluso-community/pkg/api/middleware"
)

const serverVersion = "1.0.0"

// Server is the community detection HTTP API
type Server struct {
	cfg       Config
	opt       *optimiser.Optimiser
	store     resultstore.Store
	exporter  *export.Exporter
	authMW    *auth.Middleware
	limiter   *apimw.RateLimiter
	checker   *health.Checker
	logger    logging.Logger
	registry  *metrics.Registry
	graceful  *server.GracefulServer
	startTime time.Time
}

// NewServer wires the API around a result store. The exporter is optional;
// a nil exporter disables uploads.
func NewServer(cfg Config, store resultstore.Store, exporter *export.Exporter) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("result store is required")
	}

	logger := logging.DefaultLogger().With(logging.Component("api"))
	registry := metrics.DefaultRegistry()

	opt, err := optimiser.New(cfg.Optimiser)
	if err != nil {
		return nil, fmt.Errorf("failed to build optimiser: %w", err)
	}
	opt.SetLogger(logger)
	opt.SetMetrics(registry)

	s := &Server{
		cfg:       cfg,
		opt:       opt,
		store:     store,
		exporter:  exporter,
		logger:    logger,
		registry:  registry,
		startTime: time.Now(),
	}

	checker := health.NewChecker()
	checker.RegisterReadiness("result_store", health.StoreCheck(store.Ping))
	checker.RegisterReadiness("snapshot_dir", health.SnapshotDirCheck(cfg.SnapshotDir))
	checker.RegisterLiveness("process", health.AlwaysHealthy("process"))
	checker.Register("result_store", health.StoreCheck(store.Ping))
	checker.Register("snapshot_dir", health.SnapshotDirCheck(cfg.SnapshotDir))
	checker.Register("memory", health.MemoryCheck())
	s.checker = checker

	if cfg.Auth.Enabled {
		jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to build token manager: %w", err)
		}
		s.authMW = auth.NewMiddleware(jwtManager, auth.NewAPIKeyStore(), logger, registry)
	}

	if cfg.RateLimit.Enabled {
		rlConfig := apimw.DefaultRateLimitConfig()
		rlConfig.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rlConfig.BurstSize = cfg.RateLimit.Burst
		s.limiter = apimw.NewRateLimiter(rlConfig, logger.With(logging.Component("ratelimit")))
	}

	return s, nil
}

// Handler builds the full middleware and routing stack
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.checker.ReadinessHandler())
	mux.HandleFunc("/health/live", s.checker.LivenessHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry.GetPrometheusRegistry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/v1/detect", s.protect(s.handleDetect))
	mux.HandleFunc("/api/v1/multiplex", s.protect(s.handleMultiplex))
	mux.HandleFunc("/api/v1/profile", s.protect(s.handleProfile))
	mux.HandleFunc("/api/v1/jobs", s.protect(s.handleJobs))
	mux.HandleFunc("/api/v1/jobs/", s.protect(s.handleJob)) // /api/v1/jobs/{id}

	handler := s.metricsMiddleware(s.bodySizeLimitMiddleware(s.corsMiddleware(mux)))
	if s.limiter != nil {
		handler = apimw.RateLimit(s.limiter, clientIP, nil)(handler)
	}
	handler = s.panicRecoveryMiddleware(s.loggingMiddleware(handler))
	return handler
}

// protect applies authentication when it is enabled
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	if s.authMW == nil {
		return next
	}
	return s.authMW.Require(next)
}

// Start blocks serving requests until shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	gs := server.NewGracefulServer(addr, s.Handler())
	gs.SetLogger(s.logger)
	s.graceful = gs

	go s.updateSystemMetrics(gs.ShutdownChannel())

	s.logger.Info("community detection API listening",
		logging.String("addr", addr),
		logging.Bool("auth", s.cfg.Auth.Enabled),
		logging.Bool("rate_limit", s.cfg.RateLimit.Enabled))

	return gs.Start()
}

// Shutdown drains in-flight requests and closes the result store
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	var err error
	if s.graceful != nil {
		err = s.graceful.Shutdown(timeout)
	}
	s.store.Close()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Version:   serverVersion,
		Timestamp: time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		s.respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Store = "ok"

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
