package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Evaluation EvaluationConfig `yaml:"evaluation" envconfig:"EVALUATION"`
	Stream     StreamConfig     `yaml:"stream" envconfig:"STREAM"`
	Providers  ProvidersConfig  `yaml:"providers" envconfig:"PROVIDERS"`
	Sheets     SheetsConfig     `yaml:"sheets" envconfig:"SHEETS"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration.
// WriteTimeout stays zero by default because evaluation results are streamed.
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gte=0"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration. Logs are always JSON.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// EvaluationConfig bounds batch execution.
// Concurrency 0 runs every record of a batch at once.
// RecordTimeout 0 leaves per-record deadlines to the providers.
type EvaluationConfig struct {
	MaxRecords    int           `yaml:"max_records" envconfig:"MAX_RECORDS" validate:"min=1"`
	Concurrency   int           `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"gte=0"`
	RecordTimeout time.Duration `yaml:"record_timeout" envconfig:"RECORD_TIMEOUT" validate:"gte=0"`
	MaxBatches    int           `yaml:"max_batches" envconfig:"MAX_BATCHES" validate:"min=1"`
}

// StreamConfig controls the progress event stream
type StreamConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
}

// SheetsConfig configures the Google Sheets importer
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	DefaultRange    string `yaml:"default_range" envconfig:"DEFAULT_RANGE"`
}

// TelemetryConfig configures tracing and metrics export
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceStdout bool   `yaml:"trace_stdout" envconfig:"TRACE_STDOUT"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load() (*Config, error) {
	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := envconfig.Process("", &cfg.Providers.Keys); err != nil {
		return nil, fmt.Errorf("failed to load provider keys: %w", err)
	}
	if cfg.Sheets.CredentialsFile == "" {
		cfg.Sheets.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints and normalizes the logging settings
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/tiervc.log"
	}

	return nil
}

// Address returns the listen address of the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getConfigFilePath returns the path to the config file, or "" if none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			MaxHeaderBytes:  DefaultMaxHeaderBytes,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCORS:     true,
			MaxUploadBytes: DefaultMaxUploadBytes,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Evaluation: EvaluationConfig{
			MaxRecords: DefaultMaxRecords,
			MaxBatches: DefaultMaxBatches,
		},
		Stream: StreamConfig{
			IdleTimeout: DefaultStreamIdleTimeout,
		},
		Providers: DefaultProviders(),
		Sheets: SheetsConfig{
			DefaultRange: "A1:Z",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "tiervc",
		},
	}
}
