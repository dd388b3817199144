package app

import (
	"mindscreen_backend/docs"
	"mindscreen_backend/internal/config"
	"mindscreen_backend/internal/middleware"
	"mindscreen_backend/internal/model"
	"mindscreen_backend/pkg/monitoring"
	"mindscreen_backend/pkg/security"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	// 1. 答题端(无需登录，按 IP 限流)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 临床人员管理接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	public := router.Group("/api")
	public.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, window))
	{
		public.GET("/questionnaires/:id", c.questionnaire.GetPublic)
		public.POST("/questionnaires/:id/responses", c.response.Start)

		public.GET("/responses/:id", c.response.Get)
		public.PUT("/responses/:id/answers", c.response.SaveAnswers)
		public.POST("/responses/:id/complete", c.response.Complete)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleClinician))
	{
		questionnaires := admin.Group("/questionnaires")
		{
			questionnaires.GET("", c.questionnaire.List)
			questionnaires.POST("", c.questionnaire.Create)
			questionnaires.GET("/:id", c.questionnaire.Get)
			questionnaires.PUT("/:id", c.questionnaire.Update)
			questionnaires.DELETE("/:id", c.questionnaire.Delete)

			questionnaires.POST("/:id/questions", c.questionnaire.AddQuestion)
			questionnaires.PUT("/:id/questions/:questionId", c.questionnaire.UpdateQuestion)
			questionnaires.DELETE("/:id/questions/:questionId", c.questionnaire.DeleteQuestion)

			questionnaires.PUT("/:id/scoring", c.questionnaire.SaveScoring)
			questionnaires.POST("/:id/scoring/preview", c.questionnaire.PreviewScoring)
			questionnaires.POST("/:id/export", c.questionnaire.ExportResponses)
		}

		responses := admin.Group("/responses")
		{
			responses.GET("/flagged", c.review.ListFlagged)
			responses.GET("/:id", c.review.Get)
			responses.POST("/:id/review", c.review.Review)
			responses.POST("/:id/rescore", c.review.Rescore)
		}

		admin.GET("/reviews/queue", c.review.Queue)
	}
}
