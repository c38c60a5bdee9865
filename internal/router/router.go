package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/middleware"
	"github.com/jwalitptl/bloodlink-api/pkg/auth"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// StaffAdminHandler splits its routes between staff and administrators.
type StaffAdminHandler interface {
	RegisterStaffRoutes(*gin.RouterGroup)
	RegisterAdminRoutes(*gin.RouterGroup)
}

type ConfirmationHandler interface {
	RegisterStaffRoutes(*gin.RouterGroup)
	RegisterAdminRoutes(*gin.RouterGroup)
	RegisterDonorRoutes(*gin.RouterGroup)
}

type Handlers struct {
	Health        Handler
	Requests      StaffAdminHandler
	Donors        Handler
	Confirmations ConfirmationHandler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(
	cfg *config.Config,
	auth *middleware.AuthMiddleware,
	handlers Handlers,
	log *logger.Logger,
	m *metrics.Metrics,
) *Router {
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.ErrorHandler(log),
		middleware.Metrics(m),
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.BodyLimit(cfg.Server.MaxBodyBytes),
	)

	if cfg.RateLimit.Enabled {
		engine.Use(middleware.NewRateLimiter(cfg.RateLimit).RateLimit())
	}

	return &Router{engine: engine, auth: auth, handlers: handlers}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)

	authenticated := api.Group("")
	authenticated.Use(r.auth.Authenticate())

	staff := authenticated.Group("")
	staff.Use(r.auth.RequireRole(auth.RoleAdmin, auth.RoleHospital))
	r.handlers.Requests.RegisterStaffRoutes(staff)
	r.handlers.Donors.RegisterRoutes(staff)
	r.handlers.Confirmations.RegisterStaffRoutes(staff)

	admin := authenticated.Group("")
	admin.Use(r.auth.RequireRole(auth.RoleAdmin))
	r.handlers.Requests.RegisterAdminRoutes(admin)
	r.handlers.Confirmations.RegisterAdminRoutes(admin)

	donor := authenticated.Group("")
	donor.Use(r.auth.RequireRole(auth.RoleDonor))
	r.handlers.Confirmations.RegisterDonorRoutes(donor)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
