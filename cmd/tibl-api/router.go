package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/Likith-04/Tibl.ai/internal/handler"
	"github.com/Likith-04/Tibl.ai/internal/middleware"
	"github.com/Likith-04/Tibl.ai/internal/models"
	"github.com/Likith-04/Tibl.ai/pkg/config"
	"github.com/Likith-04/Tibl.ai/pkg/logger"
	corsmiddleware "github.com/Likith-04/Tibl.ai/pkg/middleware/cors"
	reqidmiddleware "github.com/Likith-04/Tibl.ai/pkg/middleware/requestid"
)

type routerDeps struct {
	timetables *handler.TimetableHandler
	ops        *handler.MetricsHandler
	tokens     middleware.TokenValidator
	metrics    middleware.HTTPObserver
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	timetables := api.Group("/timetables")
	timetables.POST("/generate",
		middleware.JWT(deps.tokens),
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
		deps.timetables.Generate,
	)
	timetables.GET("", deps.timetables.List)
	timetables.GET("/latest", deps.timetables.Latest)
	timetables.GET("/files/:name", deps.timetables.File)
	timetables.GET("/:id", deps.timetables.Get)
	timetables.GET("/:id/summary", deps.timetables.Summary)
	timetables.GET("/:id/teachers/:teacherId", deps.timetables.Teacher)
	timetables.GET("/:id/export", deps.timetables.Export)
	timetables.GET("/:id/artifacts", deps.timetables.Artifacts)

	return r
}
