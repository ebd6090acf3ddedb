package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/internal/controller"
	"roadmap_edu_backend/internal/repository"
	"roadmap_edu_backend/internal/service"
	"roadmap_edu_backend/pkg/configwatcher"
	"roadmap_edu_backend/pkg/database"
	"roadmap_edu_backend/pkg/logger"
	"roadmap_edu_backend/pkg/monitoring"
	"roadmap_edu_backend/pkg/security"
	"roadmap_edu_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	catalog  *repository.CatalogRepository
	progress *repository.ProgressRepository
	roadmap  *repository.RoadmapRepository
}

type services struct {
	notification *service.NotificationService
	enrollment   *service.EnrollmentService
	unlock       *service.UnlockService
	completion   *service.CompletionService
	status       *service.CourseStatusService
	progress     *service.ProgressService
	roadmap      *service.RoadmapService
}

type controllers struct {
	roadmap  *controller.RoadmapController
	course   *controller.CourseController
	progress *controller.ProgressController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		catalog:  repository.NewCatalogRepository(db, rdb),
		progress: repository.NewProgressRepository(db),
		roadmap:  repository.NewRoadmapRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}

	s.notification = service.NewNotificationService(cfg)
	s.enrollment = service.NewEnrollmentService(repos.catalog, repos.progress, repos.roadmap, s.notification, cfg, db)
	s.unlock = service.NewUnlockService(repos.catalog, repos.progress, s.notification, cfg, db)
	s.completion = service.NewCompletionService(repos.catalog, repos.progress, s.notification, cfg, db)
	s.status = service.NewCourseStatusService(repos.catalog, repos.progress, repos.roadmap)
	s.progress = service.NewProgressService(repos.catalog, repos.progress, repos.roadmap, s.status)
	s.roadmap = service.NewRoadmapService(repos.catalog, repos.roadmap)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		roadmap:  controller.NewRoadmapController(s.enrollment, s.status, s.roadmap),
		course:   controller.NewCourseController(s.enrollment, s.unlock),
		progress: controller.NewProgressController(s.completion, s.progress),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, db)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("roadmap-progression", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	// 配置热更新：收到新配置后依次通知已注册的回调
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		updated, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		app.Config = updated
		for _, callback := range app.configCallbacks {
			callback(updated)
		}
		logger.Log.Info("Config reloaded")
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
