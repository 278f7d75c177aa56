package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/handler/api"
	internalrepo "TradePulse/internal/repository"
	icache "TradePulse/internal/service/cache"
	svcmetrics "TradePulse/internal/service/metrics"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/services/analytics"
	"TradePulse/internal/services/ensemble"
	"TradePulse/internal/services/features"
	"TradePulse/internal/services/regime"
	"TradePulse/internal/services/risk"
	"TradePulse/internal/services/signal"
	"TradePulse/internal/services/window"
	"TradePulse/internal/usecase"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	"TradePulse/pkg/server"
)

// ProvideLogger builds the process logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "tradepulse"), applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register(prometheus.DefaultRegisterer)
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(pkgch.Config{
		Host:         cfg.ClickHouse.Host,
		Port:         cfg.ClickHouse.Port,
		Database:     cfg.ClickHouse.Database,
		User:         cfg.ClickHouse.User,
		Password:     cfg.ClickHouse.Password,
		DialTimeout:  cfg.ClickHouse.DialTimeout,
		ReadTimeout:  cfg.ClickHouse.ReadTimeout,
		UseHTTP:      cfg.ClickHouse.UseHTTP,
		AsyncInsert:  cfg.ClickHouse.AsyncInsert,
		WaitForAsync: cfg.ClickHouse.WaitForAsync,
		MaxExecTime:  cfg.ClickHouse.MaxExecutionTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCHStore wraps the client in the bar/decision archive.
func ProvideCHStore(ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHStore {
	if ch == nil {
		return nil
	}
	s := internalrepo.NewCHStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.Config{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		Linger:       cfg.Kafka.Producer.Linger,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		Async:        cfg.Kafka.Producer.Async,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideBytesCache returns Redis when enabled, otherwise an in-process TTL cache.
func ProvideBytesCache(cfg *config.Config, l *applogger.Logger) (icache.BytesCache, func(), error) {
	if !cfg.Redis.Enabled {
		return icache.NewTTLCache(), func() {}, nil
	}
	rc := icache.NewRedisCache(icache.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	l.Info("redis state cache connected", applogger.String("addr", cfg.Redis.Addr))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideStateCache stores the latest report and risk history.
func ProvideStateCache(c icache.BytesCache, cfg *config.Config) repository.StateCache {
	return internalrepo.NewCacheState(c, cfg.Redis.Prefix, cfg.Redis.TTL)
}

// ProvideBarSource creates the price API client.
func ProvideBarSource(cfg *config.Config, l *applogger.Logger) repository.BarSource {
	return internalrepo.NewPriceAPISource(internalrepo.PriceAPIConfig{
		BaseURL:       cfg.Source.BaseURL,
		TokenID:       cfg.Source.TokenID,
		Interval:      cfg.Source.Interval,
		LatestMinutes: cfg.Source.LatestMinutes,
		Timeout:       cfg.Source.Timeout,
		RPS:           cfg.Source.RPS,
	}, l)
}

// ProvideFeatureEngine builds the indicator engine.
func ProvideFeatureEngine(cfg *config.Config) (*features.Engine, error) {
	return features.NewEngine(features.Config{
		Lookback:  cfg.Pipeline.Lookback,
		StepAhead: cfg.Pipeline.StepAhead,
		Features:  cfg.Pipeline.Features,
	})
}

func ProvideWindow(cfg *config.Config) *window.Store {
	return window.NewStore(cfg.Pipeline.WindowCapacity)
}

func ProvideClassifier(cfg *config.Config) *regime.Classifier {
	return regime.NewClassifier(regime.Thresholds{
		HighVolatility: cfg.Regime.HighVolatility,
		LowVolatility:  cfg.Regime.LowVolatility,
		Trend:          cfg.Regime.Trend,
	})
}

// ProvidePredictors creates one breaker-guarded HTTP predictor per model.
func ProvidePredictors(cfg *config.Config) []domsvc.Predictor {
	bs := analytics.BreakerSettings{
		FailureThreshold: cfg.Predictors.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Predictors.Breaker.OpenTimeout,
	}
	out := make([]domsvc.Predictor, 0, len(cfg.Ensemble.Models))
	for _, name := range cfg.Ensemble.Models {
		baseURL := cfg.Predictors.BaseURL
		if u, ok := cfg.Predictors.Endpoints[name]; ok && u != "" {
			baseURL = u
		}
		base := analytics.NewHTTPServiceBase("model_"+name, baseURL, cfg.Predictors.Timeout, bs)
		out = append(out, analytics.NewHTTPPredictor(name, cfg.Predictors.Path, base))
	}
	return out
}

// ProvideScaler loads exported scaler parameters or uses the scaler service.
func ProvideScaler(cfg *config.Config) (domsvc.Scaler, error) {
	if cfg.Scaler.Type == "http" {
		base := analytics.NewHTTPServiceBase("scaler", cfg.Scaler.BaseURL, cfg.Scaler.Timeout, analytics.BreakerSettings{
			FailureThreshold: cfg.Predictors.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Predictors.Breaker.OpenTimeout,
		})
		return analytics.NewHTTPScaler(base), nil
	}
	s, err := analytics.NewFileScaler(cfg.Scaler.FeaturePath, cfg.Scaler.TargetPath)
	if err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	return s, nil
}

func ProvideAggregator(cfg *config.Config, preds []domsvc.Predictor, sc domsvc.Scaler, l *applogger.Logger, m repository.Metrics) (*ensemble.Aggregator, error) {
	wt, err := ensemble.WeightsFromConfig(cfg.Ensemble.Weights, cfg.Ensemble.Models)
	if err != nil {
		return nil, err
	}
	names := cfg.Pipeline.Features
	if len(names) == 0 {
		names = features.DefaultFeatures
	}
	return ensemble.NewAggregator(preds, sc, wt, names, cfg.Pipeline.Lookback, l, m), nil
}

func ProvideGenerator(cfg *config.Config) *signal.Generator {
	return signal.NewGenerator(signal.Params{
		MinMove:            cfg.Signal.MinMove,
		ATRSpikeMultiplier: cfg.Signal.ATRSpikeMultiplier,
		RSIOverbought:      cfg.Signal.RSIOverbought,
		RSIOversold:        cfg.Signal.RSIOversold,
		VolumeRatio:        cfg.Signal.VolumeRatio,
		VolumeWindow:       cfg.Signal.VolumeWindow,
	})
}

func ProvideRiskManager(cfg *config.Config, l *applogger.Logger) *risk.Manager {
	return risk.NewManager(risk.Params{
		StopLoss:      cfg.Risk.StopLoss,
		ATRMultiplier: cfg.Risk.ATRMultiplier,
		HistorySize:   cfg.Risk.HistorySize,
		RecentWindow:  cfg.Risk.RecentWindow,
		RepeatLimit:   cfg.Risk.RepeatLimit,
		RiskPerTrade:  cfg.Risk.RiskPerTrade,
		MinPosition:   cfg.Risk.MinPosition,
		MaxPosition:   cfg.Risk.MaxPosition,
	}, l)
}

func ProvideStreamHub(l *applogger.Logger) *api.StreamHub {
	return api.NewStreamHub(l)
}

// ProvideResultSink fans each published decision out to every enabled sink.
func ProvideResultSink(
	cfg *config.Config,
	hub *api.StreamHub,
	producer *pkgkafka.Producer,
	store *internalrepo.CHStore,
	l *applogger.Logger,
) repository.ResultSink {
	f := internalrepo.NewFanOut(l, cfg.Sinks.Timeout)
	if cfg.Sinks.HTTP {
		f.Add(internalrepo.NewHTTPSink(cfg.Source.BaseURL, cfg.Sinks.HTTPPath, cfg.Sinks.Timeout))
	}
	if producer != nil {
		f.Add(internalrepo.NewKafkaSink(producer, cfg.Kafka.Topic))
	}
	if store != nil {
		f.Add(internalrepo.NewStoreSink(store))
	}
	if cfg.Sinks.Websocket {
		f.Add(hub)
	}
	l.Info("result sinks configured", applogger.Strings("sinks", f.Names()))
	return f
}

func ProvidePipeline(
	w *window.Store,
	e *features.Engine,
	c *regime.Classifier,
	a *ensemble.Aggregator,
	g *signal.Generator,
	r *risk.Manager,
	sink repository.ResultSink,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(w, e, c, a, g, r, sink, m, l)
}

func ProvideRunner(
	cfg *config.Config,
	pipe *usecase.Pipeline,
	src repository.BarSource,
	store *internalrepo.CHStore,
	state repository.StateCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Runner {
	var archive repository.BarArchive
	if store != nil {
		archive = store
	}
	return usecase.NewRunner(usecase.RunnerConfig{
		HistoricalMinutes: cfg.Source.HistoricalMinutes,
		TickSecond:        cfg.Pipeline.TickSecond,
		CycleTimeout:      cfg.Pipeline.CycleTimeout,
	}, pipe, src, archive, state, m, l)
}

// ProvideHTTPHandler registers the decision API.
func ProvideHTTPHandler(l *applogger.Logger, pipe *usecase.Pipeline, store *internalrepo.CHStore, hub *api.StreamHub) xhttp.Handler {
	var decisions repository.DecisionStore
	if store != nil {
		decisions = store
	}
	h := api.NewDecisionsHandler(l, pipe, decisions, hub)
	h.SetCache(icache.NewTTLCache(), 5*time.Second)
	return h
}

// ProvideHTTPServer builds the echo server, or nil when disabled.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithMiddleware(ratelimit.Middleware(ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))),
	)
}

// ProvideApp creates the application.
func ProvideApp(cfg *config.Config, runner *usecase.Runner, srv *xhttp.Server, l *applogger.Logger) *server.App {
	return server.New(cfg, runner, srv, l)
}
