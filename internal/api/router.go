package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/api/handler"
	"github.com/qs3c/datafair_server/internal/api/middleware"
	"github.com/qs3c/datafair_server/internal/pkg/metrics"
)

// 限流器空闲条目的保留时间
const limiterTTL = 10 * time.Minute

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	surveyHandler    *handler.SurveyHandler
	responseHandler  *handler.ResponseHandler
	earningHandler   *handler.EarningHandler
	dataHandler      *handler.DataHandler
	activityHandler  *handler.ActivityHandler
	adminHandler     *handler.AdminHandler
	websocketHandler *handler.WebSocketHandler
	healthHandler    *handler.HealthHandler
	users            middleware.UserLookup
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	surveyHandler *handler.SurveyHandler,
	responseHandler *handler.ResponseHandler,
	earningHandler *handler.EarningHandler,
	dataHandler *handler.DataHandler,
	activityHandler *handler.ActivityHandler,
	adminHandler *handler.AdminHandler,
	websocketHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
	users middleware.UserLookup,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		surveyHandler:    surveyHandler,
		responseHandler:  responseHandler,
		earningHandler:   earningHandler,
		dataHandler:      dataHandler,
		activityHandler:  activityHandler,
		adminHandler:     adminHandler,
		websocketHandler: websocketHandler,
		healthHandler:    healthHandler,
		users:            users,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Metrics())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", r.healthHandler.Check)
	if r.cfg.Metrics.Enabled {
		engine.GET(r.cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	// 认证与提现共用一个限流器，按用户或 IP 区分
	limiter := middleware.NewRateLimiter(r.cfg.RateLimit.ReqPerMin, r.cfg.RateLimit.Burst, limiterTTL)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(limiter))
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.PUT("/password", r.userHandler.ChangePassword)
				user.DELETE("/profile", r.userHandler.DeleteAccount)
			}

			// 问卷
			surveys := authenticated.Group("/surveys")
			{
				surveys.GET("", r.surveyHandler.List)
				surveys.GET("/categories", r.surveyHandler.Categories)
				surveys.GET("/in-progress", r.surveyHandler.InProgress)
				surveys.GET("/history", r.surveyHandler.History)
				surveys.GET("/stats", r.surveyHandler.Stats)
				surveys.GET("/:id", r.surveyHandler.Get)
				surveys.POST("/:id/qualify", r.surveyHandler.Qualify)
				surveys.POST("/:id/start", r.surveyHandler.Start)
			}

			// 答卷
			responses := authenticated.Group("/responses")
			{
				responses.GET("/:id", r.responseHandler.Get)
				responses.PUT("/:id/progress", r.responseHandler.SaveProgress)
				responses.POST("/:id/submit", r.responseHandler.Submit)
				responses.POST("/:id/abandon", r.responseHandler.Abandon)
			}

			// 收益
			authenticated.GET("/earnings", r.earningHandler.Overview)
			authenticated.GET("/earnings/history", r.earningHandler.History)
			authenticated.GET("/payouts", r.earningHandler.ListPayouts)
			authenticated.POST("/payouts", middleware.RateLimit(limiter), r.earningHandler.RequestPayout)

			// 数据授权
			authenticated.GET("/data-types", r.dataHandler.ListDataTypes)
			authenticated.GET("/data-permissions", r.dataHandler.ListPermissions)
			authenticated.POST("/data-permissions", r.dataHandler.SetPermission)
			authenticated.DELETE("/data-permissions/:id", r.dataHandler.DeletePermission)
			authenticated.GET("/data-usage", r.dataHandler.Usage)

			// 动态
			activities := authenticated.Group("/activities")
			{
				activities.GET("", r.activityHandler.List)
				activities.GET("/stats", r.activityHandler.Stats)
				activities.GET("/:id", r.activityHandler.Get)
			}

			// 管理端
			admin := authenticated.Group("/admin")
			admin.Use(middleware.AdminOnly(r.users))
			{
				admin.POST("/surveys", r.adminHandler.CreateSurvey)
				admin.PUT("/surveys/:id/status", r.adminHandler.UpdateSurveyStatus)
				admin.PUT("/payouts/:id/status", r.adminHandler.UpdatePayoutStatus)
				admin.POST("/earnings/bonus", r.adminHandler.AddBonus)
			}
		}
	}

	return engine
}
