package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chat-push/internal/config"
	"chat-push/internal/database"
	"chat-push/internal/handler"
	"chat-push/internal/hooks"
	"chat-push/internal/interfaces"
	applog "chat-push/internal/logger"
	"chat-push/internal/messaging"
	"chat-push/internal/provider/fcm"
	"chat-push/internal/repository"
	"chat-push/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to config file")
	flag.Parse()

	// --- Загрузка конфигурации ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// --- Инициализация логгера ---
	logger, err := applog.New(cfg.Log)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Сервис завершился с ошибкой", zap.Error(err))
	}
	logger.Info("Сервис рассылки успешно остановлен")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	pool, err := database.NewPool(ctx, cfg.Postgres, logger.Named("postgres"))
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.Postgres.RunMigrations {
		if err := database.ApplyMigrations(pool, logger.Named("migrations")); err != nil {
			return err
		}
	}

	// --- RabbitMQ ---
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQ.URI, logger)
	if err != nil {
		return err
	}
	defer rabbitConn.Close()

	// --- Redis (опционально) ---
	var (
		redisClient *redis.Client
		dedup       interfaces.JobDeduplicator
		redisPing   func(ctx context.Context) error
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Дедупликация работает в режиме fail-open, сервис стартует без Redis
			logger.Warn("Redis недоступен при старте", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		dedup = messaging.NewRedisJobDeduplicator(redisClient, cfg.Queue.DedupTTL, logger)
		redisPing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Info("REDIS_ADDR не задан, дедупликация заданий отключена")
	}

	// --- Учетные данные провайдера и движок рассылки ---
	creds := config.LoadCredentials(cfg.Firebase.CredentialSources(), logger)

	tokenRegistry := repository.NewPgTokenRegistry(pool, logger)
	chatRepo := repository.NewPgChatRepository(pool, logger)

	resolver := service.NewTargetResolver(tokenRegistry, chatRepo, logger)
	classifier := service.NewFailureClassifier(tokenRegistry, logger)
	engine := service.NewDispatchEngine(
		service.EngineConfig{
			BaseURL:          cfg.Site.NormalizedBaseURL(),
			SiteName:         cfg.Site.SiteName,
			IconPath:         cfg.Firebase.IconPath,
			BatchSize:        cfg.Firebase.BatchSize,
			MulticastTimeout: cfg.Firebase.MulticastTimeout,
			SendTimeout:      cfg.Firebase.SendTimeout,
		},
		creds,
		func(ctx context.Context, creds config.ProviderCredentials) (service.Transport, error) {
			return fcm.NewTransport(ctx, creds, cfg.Firebase.DryRun, logger)
		},
		resolver,
		classifier,
		logger,
	)
	if !engine.Initialize(ctx) {
		logger.Warn("Push-провайдер не инициализирован, уведомления будут пропускаться")
	}
	notifier := service.NewMessageNotifier(chatRepo, chatRepo, engine, cfg.Site.NormalizedBaseURL(), logger)

	// --- Очередь ---
	topology := messaging.Topology{Queue: cfg.Queue.Name, DeadLetterExchange: cfg.Queue.DeadLetterExchange}
	publisher, err := messaging.NewRabbitDispatchJobPublisher(rabbitConn, topology, logger)
	if err != nil {
		return fmt.Errorf("не удалось создать паблишер заданий: %w", err)
	}
	processor := messaging.NewProcessor(logger, notifier, dedup, messaging.ProcessorConfig{
		ProcessingDelay: cfg.Queue.ProcessingDelay,
		JobTimeout:      cfg.Queue.JobTimeout,
	})
	consumer, err := messaging.NewConsumer(rabbitConn, logger, topology, cfg.Queue.Concurrency, processor)
	if err != nil {
		return fmt.Errorf("не удалось создать консьюмера RabbitMQ: %w", err)
	}

	// --- Хуки ---
	hookRegistry := hooks.NewRegistry(logger)
	hookRegistry.Register(hooks.NewDispatchHook(publisher, logger))

	// --- HTTP ---
	pushHandler := handler.NewPushHandler(handler.Deps{
		Registry:    tokenRegistry,
		Engine:      engine,
		Events:      hookRegistry,
		Credentials: creds,
		Queue:       consumer,
		Jobs:        processor,
		RedisPing:   redisPing,
	}, cfg.Auth, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      handler.NewRouter(cfg.HTTP, pushHandler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Запуск консьюмера RabbitMQ...")
		return consumer.Start()
	})
	g.Go(func() error {
		logger.Info("Запуск HTTP сервера", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Начинаем остановку...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP Server forced to shutdown", zap.Error(err))
		}
		consumer.Stop()
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(uri string, logger *zap.Logger) (*amqp.Connection, error) {
	var (
		connection *amqp.Connection
		err        error
	)
	maxRetries := 50
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		connection, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Подключение к RabbitMQ успешно установлено")
			notifyClose := connection.NotifyClose(make(chan *amqp.Error, 1))
			go func() {
				if closeErr := <-notifyClose; closeErr != nil {
					logger.Error("Соединение с RabbitMQ разорвано", zap.Error(closeErr))
				}
			}()
			return connection, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ, попытка переподключения...",
			zap.Error(err),
			zap.Int("retry", i+1),
			zap.Duration("delay", retryDelay),
		)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ после %d попыток: %w", maxRetries, err)
}
