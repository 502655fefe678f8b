package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"Quantra/internal/domain/repository"
	"Quantra/internal/handler/api"
	mid "Quantra/internal/middleware"
	internalrepo "Quantra/internal/repository"
	"Quantra/internal/service/binance"
	icache "Quantra/internal/service/cache"
	"Quantra/internal/usecase"
	pkgcache "Quantra/pkg/cache"
	pkgch "Quantra/pkg/clickhouse"
	"Quantra/pkg/config"
	pkgkafka "Quantra/pkg/kafka"
	applogger "Quantra/pkg/logger"
	"Quantra/pkg/metrics"
	pkgqueue "Quantra/pkg/queue"
	"Quantra/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{
		Level:  "info",
		Format: format,
		Output: "stdout",
	})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS quantra",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCandleStore creates the ClickHouse candle store and its tables.
func ProvideCandleStore(chClient *pkgch.Client, l *applogger.Logger) (repository.CandleStore, error) {
	store := internalrepo.NewCHCandleStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("candle store init: %w", err)
	}
	return store, nil
}

// ProvidePublisher creates the Kafka tick/trade publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.TickTopic, cfg.Kafka.TradeTopic)
}

// ProvidePriceSource creates the exchange REST klines client.
func ProvidePriceSource(cfg *config.Config, l *applogger.Logger) repository.PriceSource {
	return internalrepo.NewBinanceKlines(cfg.Binance.RESTBaseURL, cfg.Binance.HTTPTimeout, l)
}

// ProvideModelStore creates the on-disk model store and warms its cache.
func ProvideModelStore(cfg *config.Config, l *applogger.Logger) (repository.ModelStore, error) {
	store, err := internalrepo.NewFileModelStore(cfg.Strategy.ModelDir, l)
	if err != nil {
		return nil, fmt.Errorf("model store: %w", err)
	}
	n, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("model store load: %w", err)
	}
	l.Info("models loaded", applogger.Int("count", n))
	return store, nil
}

// ProvideMarketStream creates the exchange WebSocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return binance.New(
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbols,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
		l,
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTicksHandler consumes the ticks topic into daily candles.
func ProvideKafkaTicksHandler(store repository.CandleStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	agg := usecase.NewCandleAggregator(repository.DefaultTimeframe())
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TickTopic, store, agg, m)
}

// ProvideTickProcessor routes live ticks to the configured backend.
func ProvideTickProcessor(
	pub repository.Publisher,
	store repository.CandleStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	agg := usecase.NewCandleAggregator(repository.DefaultTimeframe())
	return usecase.NewTickProcessor(pub, store, agg, m, cfg.Ingest.Backend)
}

// ProvideTickCollector bridges the WebSocket stream into the processor.
func ProvideTickCollector(
	stream repository.MarketStream,
	processor *usecase.TickProcessor,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TickCollector {
	maxRPS := cfg.Ingest.MaxRPS
	if maxRPS <= 0 {
		maxRPS = 50
	}
	bufSize := cfg.Ingest.BufferSize
	if bufSize <= 0 {
		bufSize = 2000
	}
	pipe := mid.NewRealtimePipeline(processor, m,
		mid.WithMaxRPS(int(maxRPS)),
		mid.WithBufferSize(bufSize),
	)
	return usecase.NewTickCollector(stream, processor, m, pipe)
}

// ProvideHistoryProvider serves candle history from store and exchange.
func ProvideHistoryProvider(store repository.CandleStore, source repository.PriceSource, l *applogger.Logger) *usecase.HistoryProvider {
	return usecase.NewHistoryProvider(store, source, l)
}

// ProvideTrainLock picks the lock backend guarding concurrent fits.
func ProvideTrainLock(cfg *config.Config) pkgcache.Service {
	if cfg.Strategy.Redis.Enabled {
		host, portStr, err := net.SplitHostPort(cfg.Strategy.Redis.Addr)
		if err == nil {
			port, _ := strconv.Atoi(portStr)
			rc, rerr := pkgcache.NewRedisCache(
				pkgcache.WithRedisHost(host),
				pkgcache.WithRedisPort(port),
				pkgcache.WithRedisPassword(cfg.Strategy.Redis.Password),
				pkgcache.WithRedisDB(cfg.Strategy.Redis.DB),
			)
			if rerr == nil {
				return pkgcache.NewLayeredCache(rc)
			}
		}
	}
	return pkgcache.NewMemoryCache()
}

// ProvideTrainUseCase creates the model training use case.
func ProvideTrainUseCase(history *usecase.HistoryProvider, store repository.ModelStore, m repository.Metrics, l *applogger.Logger, lock pkgcache.Service) *usecase.TrainUseCase {
	uc := usecase.NewTrainUseCase(history, store, m, l)
	uc.SetLocker(lock)
	return uc
}

// ProvideRetrainWorker schedules periodic model refreshes through the
// Redis-backed job queue. Returns nil when retraining is disabled.
func ProvideRetrainWorker(
	cfg *config.Config,
	trainer *usecase.TrainUseCase,
	store repository.ModelStore,
	l *applogger.Logger,
) *usecase.RetrainWorker {
	if !cfg.Strategy.Retrain.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Strategy.Redis.Addr,
		Password: cfg.Strategy.Redis.Password,
		DB:       cfg.Strategy.Redis.DB,
	})
	workers := cfg.Strategy.Retrain.Workers
	if workers <= 0 {
		workers = 1
	}
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    workers,
		QueueSize:  64,
		RetryLimit: 3,
		RetryDelay: time.Minute,
	}, client, pkgqueue.ModeProducerConsumer, pkgqueue.WithKeyPrefix("quantra:retrain"))
	q.RegisterJob(usecase.NewRetrainJob(trainer, l))
	return usecase.NewRetrainWorker(q, store, cfg.Strategy.Retrain.Interval, cfg.Strategy.TrainDays, l)
}

// ProvideSignalUseCase creates the signal evaluation use case.
func ProvideSignalUseCase(history *usecase.HistoryProvider, store repository.ModelStore, m repository.Metrics) *usecase.SignalUseCase {
	return usecase.NewSignalUseCase(history, store, m)
}

// ProvideBacktestUseCase creates the walk-forward backtest use case.
func ProvideBacktestUseCase(history *usecase.HistoryProvider, m repository.Metrics, l *applogger.Logger) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(history, m, l)
}

// ProvideSessionRegistry creates the paper-trading session registry.
func ProvideSessionRegistry(
	cfg *config.Config,
	trainer *usecase.TrainUseCase,
	signals *usecase.SignalUseCase,
	history *usecase.HistoryProvider,
	store repository.ModelStore,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SessionRegistry {
	reg := usecase.NewSessionRegistry(trainer, signals, history, store, pub, m, l)
	reg.SetMaxActive(cfg.Session.MaxActive)
	return reg
}

// ProvideResponseCache picks Redis or in-process TTL caching.
func ProvideResponseCache(cfg *config.Config) icache.BytesCache {
	if cfg.Strategy.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Strategy.Redis.Addr,
			Password: cfg.Strategy.Redis.Password,
			DB:       cfg.Strategy.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideStrategyHandler creates the HTTP handler with all routes.
func ProvideStrategyHandler(
	l *applogger.Logger,
	trainer *usecase.TrainUseCase,
	signals *usecase.SignalUseCase,
	backtest *usecase.BacktestUseCase,
	sessions *usecase.SessionRegistry,
	cache icache.BytesCache,
	store repository.CandleStore,
) *api.StrategyHandler {
	h := api.NewStrategyHandler(l, trainer, signals, backtest, sessions)
	h.SetCache(cache)
	h.SetHealthCheck(store.Health)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	pub repository.Publisher,
	sessions *usecase.SessionRegistry,
	retrain *usecase.RetrainWorker,
	handler *api.StrategyHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, collector, consumer, kh, chClient, pub, sessions, retrain, handler)
}
