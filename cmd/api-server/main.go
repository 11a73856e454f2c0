package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/saral-edu/institute-api/api/swagger"
	"github.com/saral-edu/institute-api/internal/handler"
	"github.com/saral-edu/institute-api/internal/middleware"
	"github.com/saral-edu/institute-api/internal/models"
	"github.com/saral-edu/institute-api/internal/repository"
	"github.com/saral-edu/institute-api/internal/service"
	"github.com/saral-edu/institute-api/pkg/cache"
	"github.com/saral-edu/institute-api/pkg/config"
	"github.com/saral-edu/institute-api/pkg/database"
	"github.com/saral-edu/institute-api/pkg/logger"
	corsmiddleware "github.com/saral-edu/institute-api/pkg/middleware/cors"
	reqidmiddleware "github.com/saral-edu/institute-api/pkg/middleware/requestid"
)

// @title Institute Results API
// @version 1.0.0
// @description Result computation and verification service for the training institute platform
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// The service degrades to uncached verification when Redis is down.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, verification cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	resultRepo := repository.NewResultRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	resultSvc := service.NewResultService(resultRepo, studentRepo, courseRepo, subjectRepo, cacheRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, courseRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, courseRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	verifySvc := service.NewVerificationService(resultSvc, cacheRepo, metricsSvc, logr, cfg.Verification.CacheTTL)

	authHandler := handler.NewAuthHandler(authSvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	verifyHandler := handler.NewVerificationHandler(verifySvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/verify/results/:rollNumber", verifyHandler.VerifyByRoll)

	admin := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/results", resultHandler.List)
		admin.POST("/results", resultHandler.Create)
		admin.GET("/results/:id", resultHandler.Get)
		admin.PUT("/results/:id", resultHandler.Update)
		admin.DELETE("/results/:id", resultHandler.Delete)

		admin.GET("/subjects", subjectHandler.List)
		admin.POST("/subjects", subjectHandler.Create)
		admin.GET("/subjects/:id", subjectHandler.Get)
		admin.PUT("/subjects/:id", subjectHandler.Update)
		admin.DELETE("/subjects/:id", subjectHandler.Delete)

		admin.GET("/students", studentHandler.List)
		admin.POST("/students", studentHandler.Create)
		admin.GET("/students/:id", studentHandler.Get)
		admin.PUT("/students/:id", studentHandler.Update)
		admin.DELETE("/students/:id", studentHandler.Delete)

		admin.GET("/courses", courseHandler.List)
		admin.POST("/courses", courseHandler.Create)
		admin.GET("/courses/:id", courseHandler.Get)
		admin.PUT("/courses/:id", courseHandler.Update)
		admin.DELETE("/courses/:id", courseHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
