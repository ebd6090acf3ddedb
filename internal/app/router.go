package app

import (
	"roadmap_edu_backend/docs"
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/internal/middleware"
	"roadmap_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 路线
		authGroup.POST("/roadmaps/enroll", c.roadmap.EnrollRoadmap)
		authGroup.GET("/roadmaps/enrolled", c.roadmap.ListEnrolledRoadmaps)
		authGroup.GET("/roadmaps/:id/courses", c.roadmap.ListRoadmapCourses)

		// 课程报名与解锁
		authGroup.POST("/courses/enroll", c.course.EnrollCourse)
		authGroup.POST("/courses/unlock-module", c.course.UnlockModule)
		authGroup.POST("/courses/unlock-section", c.course.UnlockSection)
		authGroup.POST("/courses/unlock-chapter", c.course.UnlockChapter)

		// 进度读写
		authGroup.POST("/chapters/watch-progress", c.progress.UpdateWatchProgress)
		authGroup.POST("/chapters/complete", c.progress.CompleteChapter)
		authGroup.GET("/courses/summary", c.progress.GetCourseSummary)
		authGroup.GET("/courses/modules", c.progress.GetModuleDetails)
		authGroup.GET("/learning/current", c.progress.GetCurrentLearning)
	}
}
