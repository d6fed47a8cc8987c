package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/demotours/tour-builder/internal/api/handler"
	"github.com/demotours/tour-builder/internal/api/middleware"
	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
	"github.com/demotours/tour-builder/pkg/logger"

	_ "github.com/demotours/tour-builder/docs"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Log           zerolog.Logger
	AuthService   ports.AuthService
	TourService   ports.TourService
	UploadService ports.UploadService
	HealthChecks  map[string]handler.Check

	CORSOrigins   []string
	AuthRateLimit float64
	UploadMaxSize int64
	// UploadDir, when set, is served read-only under /uploads.
	UploadDir string

	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(logger.EchoRequestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, handler.HeaderViewerID},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "tours",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	tourHandler := handler.NewTourHandler(d.TourService)
	publicHandler := handler.NewPublicHandler(d.TourService)
	uploadHandler := handler.NewUploadHandler(d.UploadService)
	healthHandler := handler.NewHealthHandler(d.HealthChecks)

	authn := middleware.Auth(d.AuthService)
	creatorOnly := middleware.RBAC(domain.RoleCreator)

	// --- Auth routes ---
	auth := e.Group("/api/auth", authRateLimiter(d.AuthRateLimit), echomiddleware.BodyLimit("64K"))
	auth.POST("/register", authHandler.Register)
	auth.POST("/signup", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Tour routes (bearer token required) ---
	tours := e.Group("/api/tours", authn)
	tours.GET("", tourHandler.List)
	tours.GET("/stats", tourHandler.Stats)
	tours.GET("/:id", tourHandler.Get)
	tours.POST("", tourHandler.Create, creatorOnly, echomiddleware.BodyLimit("2M"))
	tours.PUT("/:id", tourHandler.Update, creatorOnly, echomiddleware.BodyLimit("2M"))
	tours.DELETE("/:id", tourHandler.Delete, creatorOnly)
	tours.POST("/upload", uploadHandler.Upload, creatorOnly, echomiddleware.BodyLimit(strconv.FormatInt(d.UploadMaxSize, 10)))

	// --- Public playback ---
	e.GET("/api/public/tours/:id", publicHandler.GetTour)

	if d.UploadDir != "" {
		assets := e.Group("/uploads", echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
			ContentTypeNosniff:    "nosniff",
			XFrameOptions:         "DENY",
			ContentSecurityPolicy: "default-src 'none'; sandbox",
		}))
		assets.Static("/", d.UploadDir)
	}

	// --- Operational endpoints ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// authRateLimiter throttles credential endpoints per client IP. A
// non-positive limit disables it.
func authRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     int(perSecond*2) + 1,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}
