package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/shelfmark/library-api/internal/api/handler"
	"github.com/shelfmark/library-api/internal/api/middleware"
	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// Deps is everything the HTTP layer needs. Readiness maps a dependency
// name to its probe.
type Deps struct {
	Auth      ports.AuthService
	Books     ports.BookService
	Users     ports.UserService
	Settings  ports.SettingsService
	Lending   ports.LendingService
	Readiness map[string]handler.Pinger
	JWTSecret string
	Logger    zerolog.Logger
	// Metrics toggles the Prometheus middleware and /metrics. Off in tests,
	// where repeated routers would register the same collectors twice.
	Metrics bool
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	if d.Metrics {
		e.Use(echoprometheus.NewMiddleware("library"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	// --- Public ---
	health := handler.NewHealthHandler(d.Readiness)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	auth := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/register", auth.Register)
	e.POST("/auth/login", auth.Login)

	// --- Authenticated ---
	authMW := middleware.Auth(d.JWTSecret)
	admin := middleware.RBAC(domain.RoleAdmin)

	books := handler.NewBookHandler(d.Books)
	bg := e.Group("/books", authMW)
	bg.GET("", books.List)
	bg.GET("/categories", books.Categories)
	bg.GET("/:id", books.Get)
	bg.POST("", books.Create, admin)
	bg.PUT("/:id", books.Update, admin)
	bg.DELETE("/:id", books.Delete, admin)

	users := handler.NewUserHandler(d.Users)
	ug := e.Group("/users", authMW, admin)
	ug.GET("", users.List)
	ug.GET("/:id", users.Get)
	ug.POST("", users.Create)
	ug.PUT("/:id", users.Update)
	ug.DELETE("/:id", users.Delete)

	borrows := handler.NewBorrowHandler(d.Lending)
	brg := e.Group("/borrows", authMW)
	brg.GET("", borrows.List)
	brg.POST("", borrows.Create)
	brg.PUT("/:id/return", borrows.Return)

	settings := handler.NewSettingsHandler(d.Settings)
	sg := e.Group("/settings", authMW)
	sg.GET("", settings.Get)
	sg.PUT("", settings.Update, admin)

	analytics := handler.NewAnalyticsHandler(d.Lending)
	ag := e.Group("/analytics", authMW)
	ag.GET("/stats", analytics.Stats)
	ag.GET("/overdue", analytics.Overdue, admin)
	ag.GET("/low-stock", analytics.LowStock, admin)
	ag.GET("/popular", analytics.Popular, admin)

	return e
}

// requestLogger writes one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
