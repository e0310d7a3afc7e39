package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-core/uni-records-api/api/swagger"
	"github.com/campus-core/uni-records-api/internal/handler"
	"github.com/campus-core/uni-records-api/internal/middleware"
	"github.com/campus-core/uni-records-api/internal/repository"
	"github.com/campus-core/uni-records-api/internal/service"
	"github.com/campus-core/uni-records-api/pkg/cache"
	"github.com/campus-core/uni-records-api/pkg/config"
	"github.com/campus-core/uni-records-api/pkg/database"
	"github.com/campus-core/uni-records-api/pkg/jobs"
	"github.com/campus-core/uni-records-api/pkg/logger"
	corsmiddleware "github.com/campus-core/uni-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-core/uni-records-api/pkg/middleware/requestid"
	"github.com/campus-core/uni-records-api/pkg/storage"
)

// @title University Records API
// @version 1.0.0
// @description Association registries, enrollment admission, and record locking
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close()
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	assignmentRepo := repository.NewTeachingAssignmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	prerequisiteRepo := repository.NewPrerequisiteRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, cacheSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, cacheSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	offeringSvc := service.NewOfferingService(offeringRepo, subjectRepo, courseRepo, cacheSvc, validate, logr)
	assignmentSvc := service.NewTeachingAssignmentService(assignmentRepo, subjectRepo, teacherRepo, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, courseRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, subjectRepo, cacheSvc, validate, logr)
	prerequisiteSvc := service.NewPrerequisiteService(prerequisiteRepo, subjectRepo, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, studentRepo, courseRepo, cacheSvc, validate, logr)
	lockSvc := service.NewLockService(db, studentRepo, teacherRepo, subjectRepo, courseRepo, cfg.Lock.HoldDuration, metrics, logr)

	exportStore, err := storage.NewExportStore(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	exportSigner := storage.NewTokenSigner(cfg.JWT.Secret, cfg.Export.URLTTL)
	exportSvc := service.NewExportService(studentRepo, enrollmentRepo, exportStore, exportSigner, jobs.PoolConfig{
		Workers: cfg.Export.Workers,
		Logger:  logr,
	}, logr)
	exportSvc.Start(context.Background())
	defer exportSvc.Stop()

	handlers := handler.Handlers{
		Students:            handler.NewStudentHandler(studentSvc),
		Teachers:            handler.NewTeacherHandler(teacherSvc),
		Subjects:            handler.NewSubjectHandler(subjectSvc),
		Courses:             handler.NewCourseHandler(courseSvc),
		Offerings:           handler.NewOfferingHandler(offeringSvc),
		TeachingAssignments: handler.NewTeachingAssignmentHandler(assignmentSvc),
		Prerequisites:       handler.NewPrerequisiteHandler(prerequisiteSvc),
		Attendance:          handler.NewAttendanceHandler(attendanceSvc),
		Enrollments:         handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:              handler.NewGradeHandler(gradeSvc),
		Locks:               handler.NewLockHandler(lockSvc),
		Exports:             handler.NewExportHandler(exportSvc),
	}
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, cfg.JWT.Secret, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
