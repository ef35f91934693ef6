package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ertargyn/realty-backend/internal/config"
	"github.com/ertargyn/realty-backend/internal/db"
	"github.com/ertargyn/realty-backend/internal/goroutine"
	httpHandlers "github.com/ertargyn/realty-backend/internal/http/handlers"
	httpRouter "github.com/ertargyn/realty-backend/internal/http/router"
	"github.com/ertargyn/realty-backend/internal/logger"
	"github.com/ertargyn/realty-backend/internal/repository"
	"github.com/ertargyn/realty-backend/internal/service"
	"github.com/ertargyn/realty-backend/internal/storage"
	"github.com/ertargyn/realty-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	fileStorage, err := storage.NewFileStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	propertyRepo := repository.NewPropertyRepository(dbConn)
	visitRepo := repository.NewVisitRepository(dbConn)
	contractRepo := repository.NewContractRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	notificationService := service.NewNotificationService(notificationRepo)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	propertyService := service.NewPropertyService(propertyRepo, fileStorage)
	visitService := service.NewVisitService(visitRepo, propertyRepo, hub)
	contractService := service.NewContractService(contractRepo, propertyRepo, userRepo, fileStorage, hub, cfg.PhoneCountryPrefix)

	// Опциональная фоновая зачистка просроченных просмотров.
	if cfg.VisitSweepInterval > 0 {
		goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
			ticker := time.NewTicker(cfg.VisitSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n, err := visitService.Sweep(ctx); err != nil {
						logger.Log.WithError(err).Warn("main: ошибка фоновой зачистки просмотров")
					} else if n > 0 {
						logger.Log.WithField("completed", n).Info("main: закрыты просроченные просмотры")
					}
				}
			}
		})
	}

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(userRepo)
	propertyHandler := httpHandlers.NewPropertyHandler(propertyService)
	visitHandler := httpHandlers.NewVisitHandler(visitService)
	contractHandler := httpHandlers.NewContractHandler(contractService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, profileHandler, propertyHandler, visitHandler, contractHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
