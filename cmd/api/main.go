package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/samuelcamilocosta/orion-tutoring-api/api/swagger"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/handler"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/middleware"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/repository"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/service"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/cache"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/config"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/database"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/logger"
	corsmiddleware "github.com/samuelcamilocosta/orion-tutoring-api/pkg/middleware/cors"
	reqidmiddleware "github.com/samuelcamilocosta/orion-tutoring-api/pkg/middleware/requestid"
)

// @title Orion Tutoring API
// @version 1.0.0
// @description Lesson request and tutor assignment service
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and refresh tokens disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	lessonRequestRepo := repository.NewLessonRequestRepository(db)
	assignmentRepo := repository.NewTutorAssignmentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	tokenRepo := repository.NewTokenRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(studentRepo, tutorRepo, tokenRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	lessonSvc := service.NewLessonRequestService(
		lessonRequestRepo, assignmentRepo, subjectRepo, studentRepo, tutorRepo, nil, logr,
		service.WithLessonCache(cacheRepo, cfg.Lessons.DetailCacheTTL),
		service.WithTransitionRecorder(metricsSvc),
	)
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	tutorSvc := service.NewTutorService(tutorRepo, nil, logr)
	exportSvc := service.NewExportService(lessonRequestRepo, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	lessonHandler := handler.NewLessonRequestHandler(lessonSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	tutorHandler := handler.NewTutorHandler(tutorSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	auth := api.Group("/auth")
	{
		auth.POST("/student/login", authHandler.LoginStudent)
		auth.POST("/tutor/login", authHandler.LoginTutor)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	subjects := api.Group("/subjects")
	{
		subjects.GET("", subjectHandler.List)
		subjects.GET("/:id", subjectHandler.Get)
		subjects.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), subjectHandler.Create)
		subjects.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), subjectHandler.Update)
		subjects.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), subjectHandler.Delete)
	}

	students := api.Group("/students")
	{
		students.POST("", studentHandler.Register)
		students.GET("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleTutor), studentHandler.List)
		students.GET("/:id", middleware.JWT(authSvc), middleware.RBAC("ADMIN", "TUTOR", "SELF"), studentHandler.Get)
		students.PUT("/:id", middleware.JWT(authSvc), middleware.RBAC("ADMIN", "SELF"), studentHandler.Update)
		students.DELETE("/:id", middleware.JWT(authSvc), middleware.RBAC("ADMIN", "SELF"), studentHandler.Deactivate)
	}

	tutors := api.Group("/tutors")
	{
		tutors.POST("", tutorHandler.Register)
		tutors.GET("", tutorHandler.List)
		tutors.GET("/:id", tutorHandler.Get)
		tutors.PUT("/:id", middleware.JWT(authSvc), middleware.RBAC("ADMIN", "SELF"), tutorHandler.Update)
		tutors.DELETE("/:id", middleware.JWT(authSvc), middleware.RBAC("ADMIN", "SELF"), tutorHandler.Deactivate)
	}

	lessons := api.Group("/lesson-requests", middleware.JWT(authSvc))
	{
		lessons.POST("", middleware.RequireRoles(models.RoleStudent), lessonHandler.Create)
		lessons.GET("", lessonHandler.List)
		lessons.GET("/mine", middleware.RequireRoles(models.RoleTutor), lessonHandler.ListMine)
		lessons.GET("/:id", lessonHandler.Get)
		lessons.PUT("/:id", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), lessonHandler.UpdateDetails)
		lessons.PATCH("/:id/status", middleware.RequireRoles(models.RoleStudent, models.RoleTutor, models.RoleAdmin), lessonHandler.UpdateStatus)
		lessons.POST("/:id/accept", middleware.RequireRoles(models.RoleTutor), lessonHandler.Accept)
		lessons.DELETE("/:id/assignment", middleware.RequireRoles(models.RoleTutor), lessonHandler.CancelAssignment)
		lessons.DELETE("/:id", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), lessonHandler.Delete)
	}

	if cfg.Lessons.ExportEnabled {
		exports := api.Group("/exports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		exports.GET("/lesson-history", exportHandler.LessonHistory)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
