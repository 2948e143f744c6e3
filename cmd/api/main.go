package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"campusattend/config"
	_ "campusattend/docs"
	"campusattend/internal/adapters/auth"
	"campusattend/internal/adapters/email"
	"campusattend/internal/adapters/qr"
	"campusattend/internal/adapters/report"
	deliveryhttp "campusattend/internal/delivery/http"
	"campusattend/internal/delivery/http/controllers"
	"campusattend/internal/delivery/http/middleware"
	"campusattend/internal/repository/postgres"
	"campusattend/internal/services"
)

const serviceTimeout = 5 * time.Second

// @title CampusAttend API
// @version 1.0
// @description Geofenced campus event attendance tracking API.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("database not reachable", "error", err)
		os.Exit(1)
	}

	if err := postgres.Migrate(cfg.DBUrl); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)

	// Adapters
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret)
	qrGenerator := qr.NewGenerator()
	excelWriter := report.NewExcelWriter()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.SESRegion,
			AccessKeyID:     cfg.Email.SESAccessKeyID,
			SecretAccessKey: cfg.Email.SESSecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "error", err)
		os.Exit(1)
	}

	// Services
	authService := services.NewAuthService(userRepo, hasher, jwtManager, cfg.JWTExpiry, serviceTimeout)
	userService := services.NewUserService(userRepo, serviceTimeout)
	eventService := services.NewEventService(eventRepo, attendanceRepo, userRepo, qrGenerator, serviceTimeout)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	attendanceService := services.NewAttendanceService(eventRepo, attendanceRepo, userRepo, emailService, logger, serviceTimeout)
	reportService := services.NewReportService(eventRepo, attendanceRepo, excelWriter, serviceTimeout)

	// Controllers
	authController := controllers.NewAuthController(logger, authService)
	userController := controllers.NewUserController(logger, userService)
	eventController := controllers.NewEventController(logger, eventService)
	attendanceController := controllers.NewAttendanceController(logger, attendanceService)
	reportController := controllers.NewReportController(logger, reportService)

	mux := deliveryhttp.NewRouter(
		jwtManager,
		authController,
		userController,
		eventController,
		attendanceController,
		reportController,
	)

	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
