package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/handlers"
	"github.com/streamify-app/backend/internal/middleware"
	"github.com/streamify-app/backend/internal/services"
	"golang.org/x/time/rate"
)

// Services are the components the HTTP surface delegates to.
type Services struct {
	Auth    *services.AuthService
	Friends *services.FriendService
	Groups  *services.GroupService
}

// Options tune the HTTP surface.
type Options struct {
	CookieSecure bool
	// AuthRateLimit is requests per second per client IP on credential endpoints.
	AuthRateLimit float64
	AuthRateBurst int
	HealthChecks  map[string]handlers.Pinger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, svc Services, opts Options, log logrus.FieldLogger) {
	e.GET("/health", handlers.HealthCheck(opts.HealthChecks))

	protect := middleware.JWTAuthMiddleware(svc.Auth)
	limit := authRateLimiter(opts.AuthRateLimit, opts.AuthRateBurst)

	api := e.Group("/api/v1")

	// --- Authentication ---
	authHandler := handlers.NewAuthHandler(svc.Auth, opts.CookieSecure)
	authHandler.RegisterAuthRoutes(api.Group("/auth"), protect, limit)
	log.Debug("auth routes configured")

	// --- Protected routes (session required) ---
	userGroup := api.Group("/user", protect)
	handlers.NewUserHandler(svc.Friends).RegisterUserRoutes(userGroup)
	handlers.NewFriendshipHandler(svc.Friends).RegisterFriendshipRoutes(userGroup)
	log.Debug("user routes configured")

	groupGroup := api.Group("/group", protect)
	handlers.NewGroupHandler(svc.Groups).RegisterGroupRoutes(groupGroup)
	log.WithField("policy", svc.Groups.Policy()).Debug("group routes configured")

	chatGroup := api.Group("/chat", protect)
	handlers.NewChatHandler(svc.Auth).RegisterChatRoutes(chatGroup)

	log.Info("all routes configured")
}

func authRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := eMiddleware.NewRateLimiterMemoryStoreWithConfig(eMiddleware.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(perSecond),
		Burst: burst,
	})
	return eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
		},
	})
}
