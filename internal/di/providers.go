package di

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"
	"DemandCast/internal/handler/api"
	mid "DemandCast/internal/middleware"
	internalrepo "DemandCast/internal/repository"
	svcmetrics "DemandCast/internal/service/metrics"
	"DemandCast/internal/service/ratelimit"
	"DemandCast/internal/services/webhook"
	"DemandCast/internal/usecase"
	"DemandCast/pkg/cache"
	pkgch "DemandCast/pkg/clickhouse"
	"DemandCast/pkg/config"
	xhttp "DemandCast/pkg/http"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"
	"DemandCast/pkg/postgres"
	"DemandCast/pkg/queue"
	"DemandCast/pkg/server"

	"github.com/redis/go-redis/v9"
)

const (
	schemaTimeout    = 10 * time.Second
	rateLimitMaxKeys = 10000
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder for engine events.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideAPIMetrics returns the HTTP API collectors.
func ProvideAPIMetrics() *svcmetrics.API {
	return svcmetrics.Default()
}

// ProvideClickHouseClient connects to ClickHouse and ensures the records and
// factors tables.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
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
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.RecordSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", cfg.ClickHouse.Database))

	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvidePostgresClient opens the model cache pool and ensures its tables.
func ProvidePostgresClient(cfg *config.Config, l *applogger.Logger) (*postgres.Client, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	client, err := postgres.NewClient(ctx, cfg.PostgresDSN(), postgres.WithMaxConns(cfg.Postgres.MaxConns))
	if err != nil {
		return nil, nil, fmt.Errorf("postgres client: %w", err)
	}
	stmts := append(internalrepo.ModelSchema(), internalrepo.ConfigurationSchema()...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("postgres schema: %w", err)
	}
	l.Info("postgres ready", applogger.String("database", cfg.Postgres.Database))

	return client, client.Close, nil
}

// ProvideRedisClient returns nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config, l *applogger.Logger) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		l.Info("redis disabled: async jobs off, in-process model cache only")
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc.Client(), func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideKafkaProducer returns nil when Kafka is disabled. With a logs topic
// configured, error logs are aggregated and shipped through the producer.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
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
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Kafka.LogsTopic,
			Publisher: producer,
		})
	}

	return producer, func() {
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideRecordStore creates the ClickHouse record store.
func ProvideRecordStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.RecordStore {
	return internalrepo.NewClickHouseRecordStore(ch.DB(), cfg.ClickHouse.Database, l.With("record_store"))
}

// ProvideFactorStore creates the ClickHouse factor store.
func ProvideFactorStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.FactorStore {
	return internalrepo.NewClickHouseFactorStore(ch.DB(), cfg.ClickHouse.Database, l.With("factor_store"))
}

// ProvideModelStore stacks the model cache: PostgreSQL behind a circuit
// breaker, fronted by Redis plus an in-process LRU, or the LRU alone when
// Redis is off.
func ProvideModelStore(pg *postgres.Client, rdb *redis.Client, cfg *config.Config, l *applogger.Logger) repository.ModelStore {
	ml := l.With("model_store")
	var store repository.ModelStore = internalrepo.NewPostgresModelStore(pg.Pool(), ml)
	store = internalrepo.NewBreakerModelStore(store, cfg.Forecast.Breaker.MaxFailures, cfg.Forecast.Breaker.OpenTimeout, ml)

	var front cache.Service
	if rdb != nil {
		front = cache.NewLayeredCache(
			cache.NewRedisCacheWithClient(rdb, cfg.Redis.Prefix),
			cache.WithLayeredMemorySize(cfg.Forecast.MemoryEntries),
			cache.WithLayeredMemoryTTL(cfg.Forecast.MemoryTTL),
		)
	} else {
		front = cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Forecast.MemoryEntries))
	}
	return internalrepo.NewCachedModelStore(store, front, cfg.Forecast.CacheTTL, ml)
}

// ProvideConfigurationStore creates the saved configuration store.
func ProvideConfigurationStore(pg *postgres.Client, l *applogger.Logger) repository.ConfigurationStore {
	return internalrepo.NewPostgresConfigurationStore(pg.Pool(), l.With("configuration_store"))
}

// ProvideResultPublisher returns nil when Kafka is disabled.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil || cfg.Kafka.ResultsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideForecastService assembles the forecasting pipeline.
func ProvideForecastService(
	records repository.RecordStore,
	factors repository.FactorStore,
	store repository.ModelStore,
	pub repository.ResultPublisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ForecastService {
	fl := l.With("forecast")
	runner := usecase.NewForecastRunner(fl, usecase.WithModelCache(store), usecase.WithRunnerMetrics(m))
	engine := usecase.NewEngine(runner, usecase.NewBestFitSelector(runner, fl))
	loader := usecase.NewSeriesLoader(records, factors, fl)
	multi := usecase.NewMultiForecaster(engine, loader, fl, usecase.WithWorkers(cfg.Forecast.Workers))

	opts := []usecase.ServiceOption{usecase.WithServiceMetrics(m)}
	if pub != nil {
		opts = append(opts, usecase.WithResultPublisher(pub))
	}
	return usecase.NewForecastService(engine, multi, loader, fl, opts...)
}

// ProvideNotifier creates the job completion webhook. It is inert without a
// URL.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger) *webhook.Notifier {
	return webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Timeout, l.With("webhook"), webhook.WithAttempts(cfg.Webhook.Retries))
}

// ProvideForecastJob creates the queued forecast job.
func ProvideForecastJob(svc *usecase.ForecastService, n *webhook.Notifier, l *applogger.Logger) *usecase.ForecastJob {
	return usecase.NewForecastJob(svc, n, l.With("forecast_job"))
}

// ProvideCleanupJob creates the model cache cleanup job.
// ProvideCleanupJob guards cleanup passes with a Redis lease when Redis is
// enabled so the CLI and the service never prune concurrently.
func ProvideCleanupJob(store repository.ModelStore, rdb *redis.Client, cfg *config.Config, l *applogger.Logger) *usecase.CleanupJob {
	var opts []usecase.CleanupOption
	if rdb != nil {
		opts = append(opts, usecase.WithCleanupLock(cache.NewRedisCacheWithClient(rdb, cfg.Redis.Prefix), 10*time.Minute))
	}
	return usecase.NewCleanupJob(store, cfg.Forecast.CleanupMaxAge, cfg.Forecast.CleanupMaxKeep, l.With("cleanup_job"), opts...)
}

// ProvideJobQueue returns nil when Redis is disabled.
func ProvideJobQueue(rdb *redis.Client, fj *usecase.ForecastJob, cj *usecase.CleanupJob, cfg *config.Config, l *applogger.Logger) *queue.RedisQueue {
	if rdb == nil {
		return nil
	}
	q := queue.NewRedisQueue(l.With("queue"), &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rdb, queue.ModeProducerConsumer, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	q.RegisterJobs(fj, cj)
	return q
}

// ProvideCleanupScheduler enqueues cleanup jobs when a queue exists so only
// one replica runs each pass, and runs them in process otherwise.
func ProvideCleanupScheduler(q *queue.RedisQueue, cj *usecase.CleanupJob, cfg *config.Config, l *applogger.Logger) *queue.Scheduler {
	task := cj.CleanupTask()
	if q != nil {
		task = queue.EnqueueTask(q, models.JobTypeCleanup, models.CleanupRequest{})
	}
	return queue.NewScheduler(l.With("scheduler"), "model_cleanup", cfg.Forecast.CleanupEvery, task)
}

// ProvideIngest returns nil when Kafka is disabled.
func ProvideIngest(
	records repository.RecordStore,
	factors repository.FactorStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) (*usecase.IngestCollector, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	il := l.With("ingest")
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(il),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook)

	processor := usecase.NewRecordProcessor(records, factors, m, "kafka", il)
	pipe := mid.NewIngestPipeline(processor, m,
		mid.WithBatchSize(cfg.Ingest.BatchSize),
		mid.WithFlushInterval(cfg.Ingest.BatchTimeout),
		mid.WithBufferSize(cfg.Ingest.BufferSize),
		mid.WithPipelineLogger(il),
	)
	return usecase.NewIngestCollector(consumer, pipe, il,
		usecase.NewKafkaRecordsHandler(cfg.Kafka.RecordsTopic, pipe, m, il),
		usecase.NewKafkaFactorsHandler(cfg.Kafka.FactorsTopic, processor, m, il),
	), nil
}

// ProvideHTTPHandlers builds every API route group.
func ProvideHTTPHandlers(
	svc *usecase.ForecastService,
	records repository.RecordStore,
	factors repository.FactorStore,
	store repository.ModelStore,
	configs repository.ConfigurationStore,
	cj *usecase.CleanupJob,
	q *queue.RedisQueue,
	pg *postgres.Client,
	am *svcmetrics.API,
	cfg *config.Config,
	l *applogger.Logger,
) []xhttp.Handler {
	hl := l.With("http")
	browser := usecase.NewDataBrowser(records, factors)

	opts := []api.ForecastOption{
		api.WithHealthCheck("clickhouse", browser.Health),
		api.WithHealthCheck("postgres", pg.Health),
	}
	if q != nil {
		opts = append(opts, api.WithJobQueue(q))
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, rateLimitMaxKeys)
		opts = append(opts, api.WithRateLimit(limiter.Middleware(am.RateLimited)))
	}

	return []xhttp.Handler{
		api.NewForecastEchoHandler(hl, svc, am, opts...),
		api.NewDataEchoHandler(hl, browser),
		api.NewModelCacheEchoHandler(hl, usecase.NewModelCacheService(store, cj, hl)),
		api.NewConfigurationsEchoHandler(hl, usecase.NewConfigurationService(configs)),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(handlers []xhttp.Handler, cfg *config.Config, l *applogger.Logger) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(path),
		xhttp.WithLogger(l.With("http_server")),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	ingest *usecase.IngestCollector,
	q *queue.RedisQueue,
	sched *queue.Scheduler,
) *server.App {
	return server.New(cfg, l, srv, ingest, q, sched)
}
