package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"timed_quiz/internal/config"
	"timed_quiz/internal/database"
	"timed_quiz/internal/fixtures"
	"timed_quiz/internal/logger"
	"timed_quiz/internal/metrics"
	"timed_quiz/internal/models"
	"timed_quiz/internal/server"
	"timed_quiz/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn, err := cfg.DB.DSN()
	if err != nil {
		zlog.Fatal("database not configured", zap.Error(err))
	}
	db, err := database.NewDB(dsn)
	if err != nil {
		zlog.Fatal("connecting to database failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := db.Migrate(ctx); err != nil {
			zlog.Fatal("migrating database failed", zap.Error(err))
		}
	}
	if cfg.DB.SeedDefault {
		quiz := models.Quiz{ID: fixtures.DefaultQuizID, Title: fixtures.DefaultQuizTitle}
		if err := db.SeedQuestions(ctx, quiz, fixtures.DefaultQuestions()); err != nil {
			zlog.Fatal("seeding default quiz failed", zap.Error(err))
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis unreachable, caching will fail until it recovers", zap.Error(err))
	}

	metrics.Init()

	quizService := services.NewQuizService(db, redisClient, zlog, services.Options{
		QuestionSeconds: cfg.Quiz.QuestionSeconds,
		TickInterval:    cfg.Quiz.TickInterval,
		QuestionTTL:     cfg.Redis.QuestionTTL,
		PageSize:        cfg.Leaderboard.PageSize,
	})
	ser := server.NewServer(quizService, zlog, server.Options{
		ActionRate:  cfg.Server.ActionRate,
		ActionBurst: cfg.Server.ActionBurst,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: ser.Router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zlog.Error("shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.Env))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("server failed", zap.Error(err))
	}
	zlog.Info("server stopped")
}
