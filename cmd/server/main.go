package main

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "civicwatch/docs"
	"civicwatch/internal/auth"
	"civicwatch/internal/cache"
	"civicwatch/internal/config"
	"civicwatch/internal/db"
	"civicwatch/internal/handler"
	"civicwatch/internal/model"
	"civicwatch/internal/queue"
	"civicwatch/internal/repository"
	"civicwatch/internal/router"
	"civicwatch/internal/service"
	"civicwatch/internal/storage"
)

// @title CivicWatch API
// @version 1.0
// @description Civic-issue reporting API with JWT authentication, report triage and image uploads.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Report{},
		&model.Notification{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	objectStore, err := storage.NewS3Store(context.Background(), storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBase,
	})
	if err != nil {
		log.Fatalf("object storage init: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	reportRepo := repository.NewReportRepository(gormDB)
	notificationRepo := repository.NewNotificationRepository(gormDB)

	// Token service with independent access/refresh secrets
	tokenService := auth.NewTokenService(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry,
		cfg.RefreshTokenExpiry,
	)

	// Services
	publisher := queue.NewPublisher(cfg.AMQPURL)
	authService := service.NewAuthService(userRepo, tokenService)
	uploadService := service.NewUploadService(objectStore)
	notificationService := service.NewNotificationService(notificationRepo, publisher)
	reportService := service.NewReportService(reportRepo, uploadService, notificationService, cacheClient)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cfg)
	reportHandler := handler.NewReportHandler(reportService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	router.Register(e, tokenService, authHandler, reportHandler, notificationHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
