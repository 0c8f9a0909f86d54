package di

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"DipWatch/internal/detector"
	"DipWatch/internal/domain/models"
	"DipWatch/internal/domain/repository"
	"DipWatch/internal/handler/api"
	"DipWatch/internal/scheduler"
	"DipWatch/internal/service/alertsink"
	"DipWatch/internal/service/coingecko"
	"DipWatch/internal/service/mockfeed"
	"DipWatch/internal/usecase"
	"DipWatch/pkg/cache"
	"DipWatch/pkg/config"
	xhttp "DipWatch/pkg/http"
	pkgkafka "DipWatch/pkg/kafka"
	applogger "DipWatch/pkg/logger"
	"DipWatch/pkg/metrics"
	"DipWatch/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Log.Format
	if format == "" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func configuredUnderlyings(cfg *config.Config) []models.Underlying {
	out := make([]models.Underlying, 0, len(cfg.Feed.Underlyings))
	for _, s := range cfg.Feed.Underlyings {
		u := models.Underlying(s)
		if u.Known() {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		out = models.Underlyings
	}
	return out
}

// ProvideMarketStream creates the price push channel, mock or live.
func ProvideMarketStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	underlyings := configuredUnderlyings(cfg)
	if cfg.Feed.UseMock {
		return mockfeed.New(mockfeed.Config{Underlyings: underlyings}, log)
	}
	return coingecko.NewStream(coingecko.StreamConfig{
		URL:            cfg.Feed.WebSocketURL,
		APIKey:         cfg.Feed.APIKey,
		Underlyings:    underlyings,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		PingInterval:   cfg.Feed.PingInterval,
	}, log)
}

// ProvideSnapshotSource creates the REST snapshot source.
func ProvideSnapshotSource(cfg *config.Config, log *applogger.Logger) repository.SnapshotSource {
	if cfg.Feed.UseMock {
		return mockfeed.Snapshot{}
	}
	return coingecko.NewSnapshotClient(coingecko.SnapshotConfig{
		BaseURL: cfg.Feed.SnapshotURL,
		APIKey:  cfg.Feed.APIKey,
	}, log)
}

// ProvideCache creates the snapshot cache: layered over Redis when
// configured, plain memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("cache.redis.addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("cache.redis.addr port: %w", err)
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideAlertPublisher creates the Kafka alert fan-out, or nil when
// disabled.
func ProvideAlertPublisher(cfg *config.Config, log *applogger.Logger) (repository.AlertPublisher, error) {
	if !cfg.Alerts.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Alerts.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Alerts.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Alerts.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Alerts.Kafka.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Alerts.Kafka.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Alerts.Kafka.Linger),
		pkgkafka.WithTimeouts(cfg.Alerts.Kafka.WriteTimeout, cfg.Alerts.Kafka.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Alerts.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Alerts.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	sink := alertsink.NewKafkaSink(producer, cfg.Alerts.Kafka.Topic, log)

	// ship deduplicated error logs over the same producer
	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   time.Minute,
		CountThreshold: 64,
		Topic:          cfg.Alerts.Kafka.Topic + ".logs",
		Publisher:      sink,
	})
	return sink, nil
}

// ProvideEngine creates the dip detection engine.
func ProvideEngine(cfg *config.Config, log *applogger.Logger, m repository.Metrics, pub repository.AlertPublisher) *detector.Engine {
	return detector.NewEngine(detector.Config{
		Threshold:        cfg.Detector.Threshold,
		HysteresisWindow: cfg.Detector.HysteresisWindow,
		ThrottleInterval: cfg.Detector.ThrottleInterval,
		QueueCapacity:    cfg.Detector.QueueCapacity,
		AlertTTL:         cfg.Detector.AlertTTL,
		CooldownDelay:    cfg.Detector.CooldownDelay,
	}, log, m, pub)
}

// ProvideScheduler creates the notification slot scheduler.
func ProvideScheduler(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		Capacity:   cfg.Scheduler.Capacity,
		Stagger:    cfg.Scheduler.Stagger,
		DefaultTTL: cfg.Scheduler.DefaultTTL,
	}, log, m)
}

// ProvideCollector creates the tick collector use case.
func ProvideCollector(
	cfg *config.Config,
	stream repository.MarketStream,
	snapshot repository.SnapshotSource,
	engine *detector.Engine,
	cacheSvc cache.Service,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.TickCollector {
	return usecase.NewTickCollector(usecase.CollectorConfig{
		Underlyings:    configuredUnderlyings(cfg),
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		SnapshotPoll:   cfg.Feed.SnapshotPoll,
		SnapshotTTL:    cfg.Feed.SnapshotTTL,
	}, stream, snapshot, engine, cacheSvc, m, log)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(log *applogger.Logger, engine *detector.Engine, sched *scheduler.Scheduler, collector *usecase.TickCollector) xhttp.Handler {
	return api.NewStatusEchoHandler(log, engine, sched, collector)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	engine *detector.Engine,
	sched *scheduler.Scheduler,
	collector *usecase.TickCollector,
	pub repository.AlertPublisher,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, engine, sched, collector, pub, handler)
}
