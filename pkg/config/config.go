package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Server      ServerConfig     `yaml:"server"`
	Logger      LoggerConfig     `yaml:"logger"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Source      SourceConfig     `yaml:"source"`
	Pipeline    PipelineConfig   `yaml:"pipeline"`
	Regime      RegimeConfig     `yaml:"regime"`
	Signal      SignalConfig     `yaml:"signal"`
	Risk        RiskConfig       `yaml:"risk"`
	Ensemble    EnsembleConfig   `yaml:"ensemble"`
	Predictors  PredictorsConfig `yaml:"predictors"`
	Scaler      ScalerConfig     `yaml:"scaler"`
	Sinks       SinksConfig      `yaml:"sinks"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
}

type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" default:"20"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" default:"40"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// SourceConfig describes the upstream bar API.
type SourceConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	TokenID           int           `yaml:"token_id" default:"2" validate:"gt=0"`
	Interval          string        `yaml:"interval" default:"1m"`
	HistoricalMinutes int           `yaml:"historical_minutes" default:"180" validate:"gt=0"`
	LatestMinutes     int           `yaml:"latest_minutes" default:"2" validate:"gt=0"`
	Timeout           time.Duration `yaml:"timeout" default:"10s"`
	RPS               float64       `yaml:"rps" default:"2"`
}

type PipelineConfig struct {
	Lookback       int           `yaml:"lookback" default:"60" validate:"gte=2"`
	StepAhead      int           `yaml:"step_ahead" default:"15" validate:"gte=1"`
	WindowCapacity int           `yaml:"window_capacity" default:"180" validate:"gt=0"`
	Features       []string      `yaml:"features"`
	TickSecond     int           `yaml:"tick_second" default:"59" validate:"gte=0,lte=59"`
	CycleTimeout   time.Duration `yaml:"cycle_timeout" default:"45s"`
}

type RegimeConfig struct {
	HighVolatility float64 `yaml:"high_volatility" default:"0.02" validate:"gt=0"`
	LowVolatility  float64 `yaml:"low_volatility" default:"0.005" validate:"gt=0,ltfield=HighVolatility"`
	Trend          float64 `yaml:"trend" default:"0.001" validate:"gte=0"`
}

type SignalConfig struct {
	MinMove            float64 `yaml:"min_move" default:"0.002" validate:"gte=0"`
	ATRSpikeMultiplier float64 `yaml:"atr_spike_multiplier" default:"1.5" validate:"gt=0"`
	RSIOverbought      float64 `yaml:"rsi_overbought" default:"70" validate:"gt=0,lte=100"`
	RSIOversold        float64 `yaml:"rsi_oversold" default:"30" validate:"gte=0,lt=100"`
	VolumeRatio        float64 `yaml:"volume_ratio" default:"0.5" validate:"gte=0"`
	VolumeWindow       int     `yaml:"volume_window" default:"20" validate:"gt=0"`
}

type RiskConfig struct {
	StopLoss      float64 `yaml:"stop_loss" default:"0.02" validate:"gt=0"`
	ATRMultiplier float64 `yaml:"atr_multiplier" default:"2" validate:"gt=0"`
	HistorySize   int     `yaml:"history_size" default:"5" validate:"gt=0"`
	RecentWindow  int     `yaml:"recent_window" default:"4" validate:"gt=0,ltefield=HistorySize"`
	RepeatLimit   int     `yaml:"repeat_limit" default:"3" validate:"gt=0,ltefield=RecentWindow"`
	RiskPerTrade  float64 `yaml:"risk_per_trade" default:"0.02" validate:"gt=0"`
	MinPosition   float64 `yaml:"min_position" default:"10" validate:"gte=0"`
	MaxPosition   float64 `yaml:"max_position" default:"1000" validate:"gtefield=MinPosition"`
}

// EnsembleConfig lists the models and their weights keyed by regime name.
type EnsembleConfig struct {
	Models  []string                      `yaml:"models" default:"[\"lstm\",\"cnn_lstm\",\"transformer_lstm\",\"attention_gru\",\"stacked_lstm\"]" validate:"min=1,dive,required"`
	Weights map[string]map[string]float64 `yaml:"weights"`
}

type PredictorsConfig struct {
	BaseURL   string            `yaml:"base_url" validate:"required,url"`
	Path      string            `yaml:"path" default:"/models/%s/predict"`
	Endpoints map[string]string `yaml:"endpoints"`
	Timeout   time.Duration     `yaml:"timeout" default:"5s"`
	Breaker   BreakerConfig     `yaml:"breaker"`
}

type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold" default:"3"`
	OpenTimeout      time.Duration `yaml:"open_timeout" default:"30s"`
}

type ScalerConfig struct {
	Type        string        `yaml:"type" default:"file" validate:"oneof=file http"`
	FeaturePath string        `yaml:"feature_path" default:"data/scalers/scaler_x.json"`
	TargetPath  string        `yaml:"target_path" default:"data/scalers/scaler_y.json"`
	BaseURL     string        `yaml:"base_url" validate:"required_if=Type http"`
	Timeout     time.Duration `yaml:"timeout" default:"5s"`
}

type SinksConfig struct {
	HTTP      bool          `yaml:"http" default:"true"`
	HTTPPath  string        `yaml:"http_path" default:"/Prices/send"`
	Websocket bool          `yaml:"websocket" default:"true"`
	Timeout   time.Duration `yaml:"timeout" default:"5s"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Enabled      bool     `yaml:"enabled"`
	Topic        string   `yaml:"topic" default:"tradepulse.decisions"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"10ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"5s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"tradepulse"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix" default:"tradepulse:"`
	TTL      time.Duration `yaml:"ttl" default:"24h"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SOURCE_BASE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv("PREDICTORS_BASE_URL"); v != "" {
		c.Predictors.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = strings.ToLower(v)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// Defaults go first so explicit zero values in the file survive.
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Ensemble.Weights) == 0 {
		c.Ensemble.Weights = DefaultWeights()
	}
	return &c, nil
}

// RegimeNames are the accepted keys of ensemble.weights.
var RegimeNames = []string{"trend_following", "sideways", "high_volatility", "low_volatility"}

// DefaultWeights mirrors the tuned model weighting per regime.
func DefaultWeights() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"trend_following": {"lstm": 0.40, "cnn_lstm": 0.35, "transformer_lstm": 0.25},
		"sideways":        {"attention_gru": 0.60},
		"high_volatility": {"cnn_lstm": 0.55, "transformer_lstm": 0.45},
		"low_volatility":  {"lstm": 0.45, "stacked_lstm": 0.30, "attention_gru": 0.25},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	models := make(map[string]bool, len(c.Ensemble.Models))
	for _, m := range c.Ensemble.Models {
		if models[m] {
			return fmt.Errorf("ensemble.models: duplicate model %q", m)
		}
		models[m] = true
	}
	for _, name := range RegimeNames {
		if _, ok := c.Ensemble.Weights[name]; !ok {
			return fmt.Errorf("ensemble.weights: missing regime %q", name)
		}
	}
	if len(c.Ensemble.Weights) != len(RegimeNames) {
		return fmt.Errorf("ensemble.weights: expected %d regimes, got %d", len(RegimeNames), len(c.Ensemble.Weights))
	}
	for regime, weights := range c.Ensemble.Weights {
		for model, w := range weights {
			if !models[model] {
				return fmt.Errorf("ensemble.weights.%s: model %q is not configured", regime, model)
			}
			if w < 0 {
				return fmt.Errorf("ensemble.weights.%s.%s: weight must be >= 0", regime, model)
			}
		}
	}
	if need := max(60, c.Pipeline.Lookback) + c.Pipeline.Lookback; c.Pipeline.WindowCapacity < need {
		return fmt.Errorf("pipeline.window_capacity must be >= %d for lookback %d", need, c.Pipeline.Lookback)
	}
	return nil
}
