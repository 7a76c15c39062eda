package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arka-edu/arka-api/internal/config"
	"github.com/arka-edu/arka-api/internal/database"
	"github.com/arka-edu/arka-api/internal/handler"
	"github.com/arka-edu/arka-api/internal/middleware"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/repository"
	"github.com/arka-edu/arka-api/internal/router"
	"github.com/arka-edu/arka-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Class{},
		&models.Unit{},
		&models.Chapter{},
		&models.Student{},
		&models.Teacher{},
		&models.ChapterProgress{},
		&models.Attendance{},
		&models.Assignment{},
		&models.Submission{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	classRepo := repository.NewClassRepository(db)
	chapterRepo := repository.NewChapterRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	resolver := service.NewSequenceResolver(chapterRepo, progressRepo, logger)
	progressService := service.NewProgressService(chapterRepo, studentRepo, progressRepo, resolver, validate, logger)
	quizService := service.NewQuizService(chapterRepo, validate, logger)
	analyticsService := service.NewAnalyticsService(chapterRepo, classRepo, studentRepo, teacherRepo, progressRepo, attendanceRepo, assignmentRepo, cfg.Analytics, logger)
	dashboardService := service.NewDashboardService(studentRepo, chapterRepo, progressRepo, classRepo, analyticsService, redisClient, cfg.DashboardCacheTTL, logger)
	reminderService := service.NewReminderService(analyticsService, natsConn, cfg.ReminderSubject, logger)
	rosterService := service.NewRosterService(studentRepo, chapterRepo, logger)

	progressHandler := handler.NewProgressHandler(progressService, validate, logger)
	quizHandler := handler.NewQuizHandler(quizService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, reminderService, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)
	rosterHandler := handler.NewRosterHandler(rosterService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProgressHandler:  progressHandler,
		QuizHandler:      quizHandler,
		AnalyticsHandler: analyticsHandler,
		DashboardHandler: dashboardHandler,
		RosterHandler:    rosterHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
