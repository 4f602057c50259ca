package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/goalline/matchday/config"
	"github.com/goalline/matchday/db"
	"github.com/goalline/matchday/handlers"
	"github.com/goalline/matchday/live"
	"github.com/goalline/matchday/repositories"
	"github.com/goalline/matchday/routes"
	"github.com/goalline/matchday/services"
	"github.com/goalline/matchday/storage"
)

// Как часто фоновый планировщик пересчитывает турнирную таблицу.
const standingsInterval = 5 * time.Minute

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	crestUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// WebSocket-хаб: комнаты матчей для MATCH_SYNC и LIVE_ALERT кадров.
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(teamRepo, playerRepo, crestUploader, logger)
	matchService := services.NewMatchService(matchRepo, eventRepo, teamRepo)
	standingService := services.NewStandingService(standingRepo, matchRepo, eventRepo, teamRepo, logger)
	liveGateway := services.NewLiveGateway(matchRepo, eventRepo)
	logger.Info("Services initialized")

	// Live-ядро: брокер синхронизирует вьюхи внутри процесса, хаб доносит
	// анонсы до браузеров, alert-кадры предупреждают о несохранённых событиях.
	broker := live.NewBroker(time.Now)
	liveManager := live.NewManager(live.SessionConfig{
		Gateway:   liveGateway,
		Broker:    broker,
		Announcer: live.MultiAnnouncer{broker, &live.HubAnnouncer{Hub: wsHub}},
		Logger:    logger,
		Alert: func(matchID int, message string) {
			wsHub.BroadcastToRoom(live.MatchRoom(matchID), live.SyncMessage{
				Type:    live.MessageTypeLiveAlert,
				Payload: message,
				MatchID: matchID,
			})
		},
	})
	defer liveManager.Close()
	logger.Info("Live session manager initialized")

	// Планировщик пересчёта турнирной таблицы
	go func() {
		ticker := time.NewTicker(standingsInterval)
		defer ticker.Stop()
		logger.Info("Standings recompute scheduler started", slog.Duration("interval", standingsInterval))

		// Один прогон сразу на старте, дальше по тикеру.
		if err := standingService.Recompute(context.Background()); err != nil {
			logger.Error("Scheduler: initial standings recompute failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := standingService.Recompute(context.Background()); err != nil {
				logger.Error("Scheduler: periodic standings recompute failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	router := routes.SetupRoutes(routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Match:     handlers.NewMatchHandler(matchService),
		Team:      handlers.NewTeamHandler(teamService),
		Standing:  handlers.NewStandingHandler(standingService),
		Live:      handlers.NewLiveHandler(liveManager),
		WebSocket: handlers.NewWebSocketHandler(wsHub),
	}, cfg.JWTSecretKey, cfg.AllowedOrigins)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
