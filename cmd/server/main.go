package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/api"
	"github.com/maheshrc27/tupae-api/internal/cache"
	job "github.com/maheshrc27/tupae-api/internal/jobs"
	applog "github.com/maheshrc27/tupae-api/internal/log"
	"github.com/maheshrc27/tupae-api/internal/metrics"
	"github.com/maheshrc27/tupae-api/internal/queue"
	"github.com/maheshrc27/tupae-api/internal/repository"
	"github.com/maheshrc27/tupae-api/internal/service"
	"github.com/maheshrc27/tupae-api/migrations"
	"github.com/robfig/cron"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.LoadConfig()

	logger, flush, err := applog.Install(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()
	if envErr != nil {
		logger.Info("no .env file found, reading configuration from the environment")
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("database is unreachable", zap.Error(err))
	}
	if cfg.AutoMigrate {
		if err := migrations.Up(db); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	postRepo, mongoClient := openPostStore(ctx, cfg, db)

	media, err := service.NewR2Storage(ctx, cfg.R2)
	if err != nil {
		logger.Fatal("failed to configure media storage", zap.Error(err))
	}

	m, metricsHandler, err := metrics.Setup("tupae-api")
	if err != nil {
		logger.Fatal("failed to set up metrics", zap.Error(err))
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()
	tasks := queue.NewClient(asynqClient, inspector)

	opts := []service.PostServiceOption{
		service.WithScheduler(tasks),
		service.WithCleanupQueue(tasks),
		service.WithMetrics(m),
		service.WithPostingHistory(repository.NewPostingHistoryRepository(db)),
		service.WithMediaLimits(cfg.MediaMaxFiles, cfg.MediaMaxBytes),
	}
	redisClient, err := cache.Connect(ctx, cfg.RedisURI)
	if err != nil {
		logger.Warn("stats cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		opts = append(opts, service.WithStatsCache(cache.NewStatsCache(redisClient, cfg.StatsCacheTTL)))
	}

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(*cfg, userRepo)
	postService := service.NewPostService(postRepo, media, service.NewMockDispatcher(), opts...)

	app := api.NewApp(*cfg, api.Services{
		Auth:           authService,
		Users:          service.NewUserService(userRepo, postService),
		Keys:           service.NewApiKeyService(repository.NewApiKeyRepository(db)),
		Posts:          postService,
		Metrics:        m,
		MetricsHandler: metricsHandler,
	})

	worker := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger.Sugar().Named("asynq"),
	})
	mux := asynq.NewServeMux()
	queue.NewQueue(postService).Register(mux)
	if err := worker.Start(mux); err != nil {
		logger.Fatal("could not start task worker", zap.Error(err))
	}

	c := cron.New()
	if err := job.NewDuePostJob(postService, 0).Schedule(c, cfg.DueSweepSpec); err != nil {
		logger.Fatal("could not schedule due post sweep", zap.Error(err))
	}
	c.Start()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))

	gracefulShutdown(app, worker, c, db, mongoClient)
}

// openPostStore picks the post backend named by STORE_DRIVER. Users, keys and
// posting history always live in Postgres.
func openPostStore(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.PostRepository, *mongo.Client) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			zap.L().Fatal("mongo is unreachable", zap.Error(err))
		}
		mdb := client.Database(cfg.MongoDatabase)
		if err := repository.EnsurePostIndexes(ctx, mdb); err != nil {
			zap.L().Fatal("failed to create post indexes", zap.Error(err))
		}
		return repository.NewMongoPostRepository(mdb), client
	case config.StoreMemory:
		zap.L().Warn("posts are kept in memory and are lost on restart")
		return repository.NewMemoryPostRepository(), nil
	default:
		return repository.NewPostRepository(db), nil
	}
}

func gracefulShutdown(app *fiber.App, worker *asynq.Server, c *cron.Cron, db *sql.DB, mongoClient *mongo.Client) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger := zap.L()
	logger.Info("shutting down server")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logger.Error("failed to shut down server", zap.Error(err))
	}
	c.Stop()
	worker.Shutdown()

	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error("failed to close mongo connection", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}
	logger.Info("server shutdown complete")
}
