package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hikarin/chatcore/config"
	"github.com/hikarin/chatcore/internal/chat"
	"github.com/hikarin/chatcore/internal/dispatch"
	"github.com/hikarin/chatcore/internal/metrics"
	"github.com/hikarin/chatcore/internal/pkg/redis"
	"github.com/hikarin/chatcore/internal/presence"
	"github.com/hikarin/chatcore/internal/ratelimit"
	"github.com/hikarin/chatcore/internal/storage"
	"github.com/hikarin/chatcore/internal/utils"
	"github.com/hikarin/chatcore/internal/ws"
	"github.com/hikarin/chatcore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Close()

	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	db, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		log.Fatalf("Failed to init postgres: %v", err)
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to init redis: %v", err)
	}
	defer redisClient.Close()

	pool := utils.NewWorkerPool(cfg.Chat.WorkerPool.Size, cfg.Chat.WorkerPool.QueueSize, zlog.Logger)
	pool.Start()
	defer pool.Stop()

	var dispatcher chat.NotificationDispatcher = dispatch.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaDispatcher, err := dispatch.NewKafkaDispatcher(&cfg.Kafka, pool, zlog.Logger)
		if err != nil {
			log.Fatalf("Failed to init kafka dispatcher: %v", err)
		}
		defer kafkaDispatcher.Close()
		dispatcher = kafkaDispatcher
	}

	hub := ws.NewHub()
	go hub.Run()

	limiter := ratelimit.NewLimiter(redisClient.GetClient(), zlog.Logger,
		ratelimit.Config{Limit: cfg.Chat.PMRateLimit, Window: cfg.Chat.PMRateWindow()},
		ratelimit.Config{Limit: cfg.Chat.PublicRateLimit, Window: cfg.Chat.PublicRateWindow()},
	)

	service := chat.NewService(
		db,
		cfg.Chat,
		limiter,
		chat.NewContentFilter(cfg.Chat.Filters),
		presence.NewStore(redisClient.GetClient()),
		dispatcher,
		ws.NewBroadcaster(hub),
		chat.NewRelationChecker(db),
		metrics.NewZapRecorder(zlog.Logger),
		zlog.Logger,
	)
	_ = service // handed to the transport layer, which lives outside this module

	zlog.Info("chatcore started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("chatcore shutting down")
}
