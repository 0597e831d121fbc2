package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/handler"
	"github.com/attendly/attendly-api/internal/middleware"
	"github.com/attendly/attendly-api/internal/service"
	"github.com/attendly/attendly-api/pkg/config"
	"github.com/attendly/attendly-api/pkg/logger"
	corsmiddleware "github.com/attendly/attendly-api/pkg/middleware/cors"
	reqidmiddleware "github.com/attendly/attendly-api/pkg/middleware/requestid"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Auth      *service.AuthService
	Metrics   *service.MetricsService
	AuthH     *handler.AuthHandler
	UserH     *handler.UserHandler
	RequestH  *handler.RequestHandler
	AttendH   *handler.AttendanceHandler
	NoticeH   *handler.NoticeHandler
	PaperH    *handler.PaperHandler
	SettingsH *handler.SettingsHandler
}

// New assembles the gin engine with all routes mounted under the API prefix.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	api.POST("/login", deps.AuthH.Login)
	api.POST("/forgot-password", deps.AuthH.ForgotPassword)
	api.POST("/auth/login", deps.AuthH.Login)
	api.POST("/auth/forgot-password", deps.AuthH.ForgotPassword)

	// Signed tokens authorise paper downloads on their own.
	api.GET("/papers/download", deps.PaperH.Download)

	authed := api.Group("")
	authed.Use(middleware.Authenticate(deps.Auth))

	users := authed.Group("/users")
	{
		users.GET("", middleware.RequireRoles("ADMIN"), deps.UserH.List)
		users.POST("", middleware.RequireRoles("ADMIN"), deps.UserH.Create)
		users.GET("/teachers", deps.UserH.ListTeachers)
		users.POST("/bulk-assign", middleware.RequireRoles("ADMIN"), deps.UserH.BulkAssign)
		users.GET("/:id", middleware.RequireRoles("ADMIN", "SELF"), deps.UserH.Get)
		users.PUT("/:id", middleware.RequireRoles("ADMIN", "SELF"), deps.UserH.Update)
		users.DELETE("/:id", middleware.RequireRoles("ADMIN"), deps.UserH.Delete)
		users.GET("/:id/teachers", middleware.RequireRoles("ADMIN", "SELF"), deps.UserH.Roster)
	}

	requests := authed.Group("/requests")
	{
		requests.POST("", middleware.RequireRoles("STUDENT"), deps.RequestH.Submit)
		requests.GET("", middleware.RequireRoles("TEACHER"), deps.RequestH.ListPending)
		requests.POST("/respond", middleware.RequireRoles("TEACHER"), deps.RequestH.Respond)
		requests.PUT("/:id", middleware.RequireRoles("TEACHER"), deps.RequestH.Respond)
	}

	attendance := authed.Group("/attendance")
	{
		attendance.POST("", middleware.RequireRoles("TEACHER"), deps.AttendH.Record)
		attendance.GET("", deps.AttendH.List)
		attendance.GET("/export", deps.AttendH.Export)
	}

	notices := authed.Group("/notices")
	{
		notices.GET("", deps.NoticeH.List)
		notices.POST("", middleware.RequireRoles("TEACHER"), deps.NoticeH.Create)
		notices.PUT("/:id", middleware.RequireRoles("TEACHER"), deps.NoticeH.Update)
		notices.DELETE("/:id", middleware.RequireRoles("ADMIN", "TEACHER"), deps.NoticeH.Delete)
	}

	papers := authed.Group("/papers")
	{
		papers.GET("", deps.PaperH.List)
		papers.POST("", middleware.RequireRoles("TEACHER"), deps.PaperH.Upload)
		papers.DELETE("/:id", middleware.RequireRoles("ADMIN", "TEACHER"), deps.PaperH.Delete)
	}

	settings := authed.Group("/settings")
	{
		settings.GET("", deps.SettingsH.Get)
		settings.POST("", middleware.RequireRoles("ADMIN"), deps.SettingsH.Update)
		settings.PUT("", middleware.RequireRoles("ADMIN"), deps.SettingsH.Update)
	}

	return r
}
