package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

// Handler is implemented by every domain handler.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	MetricsPath      string
	CORSConfig       middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	h        *handler.Handler
	health   *health.Handler
	metrics  *prometheus.Handler
	handlers []Handler
	config   RouterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	h *handler.Handler,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	log *logger.Logger,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}

	r := &Router{
		engine:   engine,
		auth:     auth,
		h:        h,
		health:   healthH,
		metrics:  metricsH,
		handlers: handlers,
		config:   config,
	}

	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		metricsH.Middleware(),
		middleware.ErrorHandler(log),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(config.MaxBodyBytes),
		middleware.Timeout(config.RequestTimeout),
	)
	engine.NoRoute(h.NoRoute)

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/ping", r.h.Ping)
	r.engine.GET(r.config.MetricsPath, r.metrics.Handler())

	api := r.engine.Group("/api/v1")
	r.health.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	if r.config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		protected.Use(limiter.RateLimit())
	}
	for _, h := range r.handlers {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
