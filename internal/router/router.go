package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/appointment"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/auth"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/booking"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/chatbot"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/dashboard"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/doctor"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/emergency"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/health"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/rewards"
	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

const APIVersion = "1.0"

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health      *health.Handler
	Auth        *auth.Handler
	Doctor      *doctor.Handler
	Booking     *booking.Handler
	Appointment *appointment.Handler
	Dashboard   *dashboard.Handler
	Rewards     *rewards.Handler
	Emergency   *emergency.Handler
	Chatbot     *chatbot.Handler
}

type RouterConfig struct {
	Mode         string
	MaxBodyBytes int64
	RateLimit    config.RateLimitConfig
	CORS         config.CORSConfig
}

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware
	h      Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics, cfg RouterConfig) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	engine := gin.New()

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if cfg.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = cfg.MaxBodyBytes
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.SizeLimit(sizeLimit),
		middleware.CORS(cfg.CORS),
	)

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		engine.Use(limiter.RateLimit())
	}

	return &Router{engine: engine, auth: auth, h: h}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", APIVersion)
		c.Next()
	})

	r.h.Health.RegisterRoutes(api)
	r.setupPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	r.h.Auth.RegisterPublicRoutes(rg)
	r.h.Doctor.RegisterRoutes(rg)
	r.h.Chatbot.RegisterRoutes(rg)
	r.h.Emergency.RegisterPublicRoutes(rg)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.h.Auth.RegisterRoutes(rg)
	r.h.Emergency.RegisterRoutes(rg)
	r.h.Appointment.RegisterRoutes(rg, r.auth)
	r.h.Dashboard.RegisterRoutes(rg, r.auth)
	r.h.Booking.RegisterRoutes(rg)
	r.h.Rewards.RegisterRoutes(rg)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
