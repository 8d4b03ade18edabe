package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// @title School Timetable API
// @version 1.0.0
// @description Builds, edits, imports and exports weekly class timetables.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationsDir, logr)
		if err != nil {
			logr.Fatal("failed to prepare migrations", zap.Error(err))
		}
		if err := migrator.Up(context.Background()); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var refCache interface {
		Get(ctx context.Context, key string, dest interface{}) (bool, error)
		Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
		Invalidate(ctx context.Context, pattern string) error
	}
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, reference cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			refCache = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.TTL, logr, true)
		}
	}

	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	periodRepo := repository.NewAcademicPeriodRepository(db)
	syllabusRepo := repository.NewSyllabusRepository(db)
	mappingRepo := repository.NewSubjectTeacherRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)

	loader := service.NewReferenceLoader(service.ReferenceSources{
		Lessons:         lessonRepo,
		Rooms:           roomRepo,
		Teachers:        teacherRepo,
		Subjects:        subjectRepo,
		Classes:         classRepo,
		Syllabus:        syllabusRepo,
		SubjectTeachers: mappingRepo,
		Periods:         periodRepo,
		Slots:           slotRepo,
	}, refCache, metrics, service.RetryConfig{
		Attempts:  cfg.Fetch.Attempts,
		BaseDelay: cfg.Fetch.BaseDelay,
	}, logr)

	classSvc := service.NewClassService(classRepo, slotRepo, loader, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, slotRepo, loader, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, slotRepo, loader, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, slotRepo, loader, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, slotRepo, loader, validate, logr)
	periodSvc := service.NewAcademicPeriodService(periodRepo, db, validate, logr)
	obligationSvc := service.NewObligationService(syllabusRepo, mappingRepo, classRepo, subjectRepo, teacherRepo, validate, logr)

	timetableSvc := service.NewTimetableService(loader, classRepo, slotRepo, db, metrics, validate, logr, service.TimetableConfig{
		Weekdays:           weekdays(cfg.Timetable.Weekdays, logr),
		RespectWeeklyHours: cfg.Timetable.RespectWeeklyHours,
		RandomSeed:         cfg.Timetable.RandomSeed,
	})
	cellSvc := service.NewCellService(loader, classRepo, slotRepo, db, validate, logr)
	importSvc := service.NewImportService(loader, slotRepo, db, metrics, logr, service.ImportConfig{
		SubgroupFallback: cfg.Timetable.SubgroupFallback,
	})
	timeSlotSvc := service.NewTimeSlotService(slotRepo, loader, validate, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(slotRepo, loader, classRepo, teacherRepo, exportStore, signer, validate, logr, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue("timetable-generation", timetableSvc.HandleJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: -1,
		Logger:     logr,
	})
	timetableSvc.UseQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	cleaner, err := jobs.NewPeriodic("exports-cleanup", cfg.Exports.CleanupCron, func() {
		if _, err := exportSvc.Cleanup(0); err != nil {
			logr.Warn("export cleanup failed", zap.Error(err))
		}
	}, logr)
	if err != nil {
		logr.Fatal("invalid export cleanup schedule", zap.Error(err))
	}
	cleaner.Start()
	defer cleaner.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", readiness(db))
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Summary)

	registerReference(api, "/classes", handler.NewClassHandler(classSvc))
	registerReference(api, "/subjects", handler.NewSubjectHandler(subjectSvc))
	registerReference(api, "/teachers", handler.NewTeacherHandler(teacherSvc))
	registerReference(api, "/rooms", handler.NewRoomHandler(roomSvc))
	registerReference(api, "/lessons", handler.NewLessonHandler(lessonSvc))

	periodHandler := handler.NewAcademicPeriodHandler(periodSvc)
	periods := api.Group("/academic-periods")
	periods.GET("/active", periodHandler.Active)
	registerReference(api, "/academic-periods", periodHandler)

	obligationHandler := handler.NewObligationHandler(obligationSvc)
	syllabus := api.Group("/syllabus")
	syllabus.GET("", obligationHandler.ListSyllabus)
	syllabus.GET("/:id", obligationHandler.GetSyllabus)
	syllabus.POST("", obligationHandler.CreateSyllabus)
	syllabus.PUT("/:id", obligationHandler.UpdateSyllabus)
	syllabus.DELETE("/:id", obligationHandler.DeleteSyllabus)
	mapping := api.Group("/subject-teachers")
	mapping.GET("", obligationHandler.ListSubjectTeachers)
	mapping.GET("/:id", obligationHandler.GetSubjectTeacher)
	mapping.POST("", obligationHandler.CreateSubjectTeacher)
	mapping.PUT("/:id", obligationHandler.UpdateSubjectTeacher)
	mapping.DELETE("/:id", obligationHandler.DeleteSubjectTeacher)

	timetableHandler := handler.NewTimetableHandler(timetableSvc, cellSvc, importSvc, exportSvc, cfg.Imports.MaxFileSizeBytes)
	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotSvc)
	timetable := api.Group("/timetable")
	timetable.POST("/generate", timetableHandler.Generate)
	timetable.POST("/generate/period", timetableHandler.GeneratePeriod)
	timetable.GET("/runs/:id", timetableHandler.GetRun)
	timetable.GET("/cells", timetableHandler.GetCell)
	timetable.PUT("/cells", timetableHandler.SaveCell)
	timetable.DELETE("/cells", timetableHandler.ClearCell)
	timetable.POST("/cells/preview", timetableHandler.PreviewCell)
	timetable.POST("/import/json", timetableHandler.ImportJSON)
	timetable.POST("/import/spreadsheet", timetableHandler.ImportSpreadsheet)
	timetable.POST("/exports", timetableHandler.Export)
	timetable.GET("/exports/download", timetableHandler.Download)

	slots := api.Group("/time-slots")
	slots.GET("", timeSlotHandler.List)
	slots.PUT("/:id", timeSlotHandler.Update)
	slots.DELETE("", timeSlotHandler.Delete)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type referenceRoutes interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

func registerReference(api *gin.RouterGroup, path string, h referenceRoutes) {
	group := api.Group(path)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

func readiness(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func weekdays(names []string, logr *zap.Logger) []models.Weekday {
	days := make([]models.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := models.ParseWeekday(name)
		if !ok {
			logr.Warn("ignoring unknown weekday in TIMETABLE_WEEKDAYS", zap.String("value", name))
			continue
		}
		days = append(days, day)
	}
	return timetable.UniqueWeekdays(days)
}
