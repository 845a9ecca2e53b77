package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	ginprometheus "github.com/zsais/go-gin-prometheus"

	"storyboard-server/internal/ai"
	"storyboard-server/internal/config"
	"storyboard-server/internal/handler"
	"storyboard-server/internal/middleware"
	"storyboard-server/internal/service"
	"storyboard-server/pkg/logger"
	"storyboard-server/pkg/storage"
)

func main() {
	// .env опционален: в production переменные приходят из окружения.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := buildStorage(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer cleanup()

	storyGen, imageGen, renderer, err := buildAIClients(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize AI clients", zap.Error(err))
	}

	projects := service.NewProjectService(store, zapLogger)
	history := service.NewStoryHistoryService(store, zapLogger)
	stories := service.NewStoryService(store, storyGen, zapLogger)
	scenes := service.NewSceneService(store, storyGen, imageGen, zapLogger)
	videos := service.NewVideoService(store, renderer, zapLogger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.ZapLoggingMiddleware(zapLogger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := handler.NewHandler(projects, history, stories, scenes, videos, zapLogger)
	h.RegisterRoutes(router)

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("Storyboard server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited")
}

// buildStorage выбирает бэкенд хранилища по конфигурации.
func buildStorage(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (storage.KeyValueStore, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemoryStore(), noop, nil
	case "file":
		store, err := storage.NewFileStore(cfg.FileStorageDir)
		return store, noop, err
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, noop, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return storage.NewRedisStore(client, cfg.RedisNamespace, zapLogger), func() { _ = client.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.GetDSN())
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("failed to ping postgres: %w", err)
		}
		store, err := storage.NewPostgresStore(ctx, pool, zapLogger)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil
	case "mongo":
		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, noop, fmt.Errorf("failed to ping mongo: %w", err)
		}
		collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		return storage.NewMongoStore(collection, zapLogger), cleanup, nil
	default:
		return nil, noop, fmt.Errorf("unknown STORAGE_BACKEND: %q", cfg.StorageBackend)
	}
}

// buildAIClients собирает текстовый генератор, генератор изображений и
// клиент рендер-сервера.
func buildAIClients(cfg *config.Config, zapLogger *zap.Logger) (ai.StoryGenerator, ai.ImageGenerator, ai.VideoRenderer, error) {
	var storyGen ai.StoryGenerator
	if cfg.AIClientType == "stub" {
		storyGen = ai.NewStubStoryGenerator()
	} else {
		textGen, err := ai.NewTextGenerator(cfg, zapLogger)
		if err != nil {
			return nil, nil, nil, err
		}
		storyGen = ai.NewStoryGenerator(textGen, zapLogger)
	}

	imageGen, err := ai.NewImageGenerator(cfg, zapLogger)
	if err != nil {
		return nil, nil, nil, err
	}

	return storyGen, imageGen, ai.NewVideoRenderer(cfg, zapLogger), nil
}
