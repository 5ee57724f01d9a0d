package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-centre-api/internal/handler"
	"github.com/noah-isme/edu-centre-api/internal/middleware"
	"github.com/noah-isme/edu-centre-api/internal/models"
	"github.com/noah-isme/edu-centre-api/internal/service"
	"github.com/noah-isme/edu-centre-api/pkg/config"
	"github.com/noah-isme/edu-centre-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edu-centre-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edu-centre-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Scheduler *handler.SchedulerHandler
	Session   *handler.SessionHandler
	Metrics   *handler.MetricsHandler
}

// Setup builds the gin engine with global middleware and every route.
func Setup(cfg *config.Config, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.UserRole{models.RoleHQ, models.RoleAdmin, models.RoleTeacher}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokens))
	{
		scheduler := api.Group("/scheduler", middleware.RequireRoles(models.RoleHQ, models.RoleAdmin))
		{
			scheduler.POST("/run", h.Scheduler.Run)
			scheduler.POST("/ensure-upcoming", h.Scheduler.EnsureUpcoming)
			scheduler.DELETE("/sessions", h.Scheduler.DeleteMonth)
			scheduler.DELETE("/sessions/range", h.Scheduler.DeleteRange)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", h.Session.List)
			sessions.POST("/special", middleware.RequireRoles(staff...), h.Session.CreateSpecial)
			sessions.POST("/:id/reschedule", middleware.RequireRoles(staff...), h.Session.Reschedule)
			sessions.PATCH("/:id/status", middleware.RequireRoles(staff...), h.Session.UpdateStatus)
		}
	}

	return r
}
