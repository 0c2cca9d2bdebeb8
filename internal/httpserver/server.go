package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/radiusdt/vector-attribution/internal/attribution"
	"github.com/radiusdt/vector-attribution/internal/config"
	"github.com/radiusdt/vector-attribution/internal/metrics"
	"github.com/radiusdt/vector-attribution/internal/middleware"
	"github.com/radiusdt/vector-attribution/internal/models"
	"go.uber.org/zap"
)

// Attributor computes attribution reports.
type Attributor interface {
	Compute(ctx context.Context, req attribution.Request) (*attribution.Result, error)
}

// ReportCache stores computed reports between requests.
type ReportCache interface {
	Key(req attribution.Request) string
	Get(ctx context.Context, key string) (*attribution.Result, bool, error)
	Set(ctx context.Context, key string, res *attribution.Result) error
	InvalidateShop(ctx context.Context, shopID string) (int64, error)
}

// HealthCheck pings one backend.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Engine  Attributor
	Cache   ReportCache // nil disables caching
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Gatherer backs the metrics endpoint; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck

	// Done stops background upkeep such as limiter cleanup; nil runs none.
	Done <-chan struct{}
}

// limiterCleanupInterval bounds how long idle client limiters are kept.
const limiterCleanupInterval = 10 * time.Minute

// Server wraps HTTP handlers around the attribution engine.
type Server struct {
	engine  Attributor
	cache   ReportCache
	health  map[string]HealthCheck
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine:  deps.Engine,
		cache:   deps.Cache,
		health:  deps.Health,
		logger:  logger,
		config:  deps.Config,
		metrics: deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler(gatherer))
	}

	// Attribution reports
	mux.HandleFunc("/v1/attribution/channels", s.reportHandler(models.LevelChannel))
	mux.HandleFunc("/v1/attribution/campaigns", s.reportHandler(models.LevelCampaign))
	mux.HandleFunc("/v1/attribution/ads", s.reportHandler(models.LevelAd))
	mux.HandleFunc("/v1/attribution/models", s.handleModels)

	// Report cache
	mux.HandleFunc("/v1/cache", s.handleCacheInvalidate)

	limiter := middleware.NewRateLimitMiddleware(deps.Config.RateLimit, logger, deps.Metrics)
	if deps.Done != nil && deps.Config.RateLimit.Enabled {
		go func() {
			ticker := time.NewTicker(limiterCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					limiter.CleanupLimiters()
				case <-deps.Done:
					return
				}
			}
		}()
	}

	var handler http.Handler = mux
	handler = limiter.Handler(handler)
	handler = middleware.NewAuthMiddleware(deps.Config.Auth, logger).Handler(handler)
	handler = middleware.NewLoggingMiddleware(logger, deps.Metrics).Handler(handler)
	handler = middleware.NewRecoveryMiddleware(logger).Handler(handler)
	handler = middleware.NewRequestIDMiddleware().Handler(handler)
	return handler
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.health))
	healthy := true
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

// ---- Attribution ----

type modelsResponse struct {
	Models       []models.AttributionModel `json:"models"`
	Levels       []models.AggregationLevel `json:"levels"`
	DefaultModel string                    `json:"default_model"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.jsonResponse(w, modelsResponse{
		Models:       models.AttributionModels,
		Levels:       models.AggregationLevels,
		DefaultModel: s.config.Engine.DefaultModel,
	})
}

func (s *Server) reportHandler(level models.AggregationLevel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := s.parseRequest(r, level)
		if err == nil {
			err = req.Validate()
		}
		if err != nil {
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, cached, err := s.compute(r.Context(), req, r.URL.Query().Get("refresh") == "true")
		if err != nil {
			if attribution.IsConfigError(err) {
				s.errorResponse(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.logger.Error("attribution failed",
				zap.String("request_id", middleware.RequestID(r.Context())),
				zap.String("shop_id", req.ShopID),
				zap.String("model", string(req.Model)),
				zap.String("level", string(req.Level)),
				zap.Error(err),
			)
			s.errorResponse(w, "failed to compute attribution", http.StatusInternalServerError)
			return
		}

		if cached {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		s.jsonResponse(w, res)
	}
}

// parseRequest reads the query into an engine request carrying the configured
// window limit.
func (s *Server) parseRequest(r *http.Request, level models.AggregationLevel) (attribution.Request, error) {
	q := r.URL.Query()

	model := strings.TrimSpace(q.Get("model"))
	if model == "" {
		model = s.config.Engine.DefaultModel
	}

	req := attribution.Request{
		Model:         models.AttributionModel(model),
		Level:         level,
		ShopID:        strings.TrimSpace(q.Get("shop_id")),
		Channel:       strings.TrimSpace(q.Get("channel")),
		MaxWindowDays: s.config.Engine.MaxWindowDays,
	}

	var err error
	if req.StartDate, err = parseDate(q.Get("start_date"), "start_date"); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDate(q.Get("end_date"), "end_date"); err != nil {
		return req, err
	}

	return req, nil
}

func parseDate(v, name string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := time.Parse(attribution.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return t, nil
}

// compute answers from the cache when possible. Cache failures are logged and
// never fail the request.
func (s *Server) compute(ctx context.Context, req attribution.Request, refresh bool) (*attribution.Result, bool, error) {
	var key string
	if s.cache != nil {
		key = s.cache.Key(req)
		if !refresh {
			res, ok, err := s.cache.Get(ctx, key)
			switch {
			case err != nil:
				s.recordCache("error")
				s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
			case ok:
				s.recordCache("hit")
				return res, true, nil
			default:
				s.recordCache("miss")
			}
		}
	}

	computeCtx := ctx
	if timeout := s.config.Engine.ComputeTimeout; timeout > 0 {
		var cancel context.CancelFunc
		computeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := s.engine.Compute(computeCtx, req)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, false, nil
}

func (s *Server) recordCache(result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheResult(result)
	}
}

// handleCacheInvalidate drops every cached report of a shop, used after a
// backfill rewrites its touchpoints or spend.
func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	shopID := strings.TrimSpace(r.URL.Query().Get("shop_id"))
	if shopID == "" {
		s.errorResponse(w, attribution.ErrShopRequired.Error(), http.StatusBadRequest)
		return
	}
	if s.cache == nil {
		s.jsonResponse(w, map[string]any{"shop_id": shopID, "removed": 0})
		return
	}

	removed, err := s.cache.InvalidateShop(r.Context(), shopID)
	if err != nil {
		s.logger.Error("cache invalidation failed", zap.String("shop_id", shopID), zap.Error(err))
		s.errorResponse(w, "failed to invalidate cache", http.StatusInternalServerError)
		return
	}
	s.logger.Info("report cache invalidated", zap.String("shop_id", shopID), zap.Int64("removed", removed))
	s.jsonResponse(w, map[string]any{"shop_id": shopID, "removed": removed})
}

// ---- Helpers ----

func (s *Server) jsonResponse(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, map[string]string{"error": message})
}
