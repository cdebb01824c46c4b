package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	AI        AIConfig        `mapstructure:"ai"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadSize  int64         `mapstructure:"max_upload_size"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig selects where uploaded files live
type StorageConfig struct {
	Driver string             `mapstructure:"driver"` // local or gcs
	Local  LocalStorageConfig `mapstructure:"local"`
	GCS    GCSConfig          `mapstructure:"gcs"`
}

// LocalStorageConfig holds filesystem storage settings
type LocalStorageConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// GCSConfig holds Google Cloud Storage settings
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// AIConfig selects and configures the AI provider
type AIConfig struct {
	Provider string         `mapstructure:"provider"` // openai, gigachat or none
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	GigaChat GigaChatConfig `mapstructure:"gigachat"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	VisionModel string `mapstructure:"vision_model"`
	PromptsPath string `mapstructure:"prompts_path"`
}

// GigaChatConfig holds GigaChat API configuration. Extraction still needs
// OpenAI; GigaChat only serves text generation.
type GigaChatConfig struct {
	APIKey             string `mapstructure:"api_key"`
	Scope              string `mapstructure:"scope"`
	Model              string `mapstructure:"model"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RedisConfig is optional; an empty address keeps caching in memory
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	Prefix   string `mapstructure:"prefix"`
}

// AMQPConfig is optional; an empty URL disables event publishing
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// WorkerConfig holds extraction worker configuration
type WorkerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
}

// AnalyticsConfig holds report cache settings
type AnalyticsConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	ForecastSeed int64         `mapstructure:"forecast_seed"`
}

// WorkflowConfig holds state machine settings
type WorkflowConfig struct {
	AutoValidateThreshold int `mapstructure:"auto_validate_threshold"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. A .env
// file next to the working directory is read first if present. An empty
// configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.max_upload_size", 10<<20)

	// Database defaults
	v.SetDefault("database.path", "data/invoices.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Storage defaults
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.dir", "data/uploads")
	v.SetDefault("storage.local.base_url", "/files")

	// AI defaults
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.vision_model", "gpt-4o")
	v.SetDefault("ai.gigachat.scope", "GIGACHAT_API_PERS")
	v.SetDefault("ai.gigachat.model", "GigaChat")

	// Auth defaults
	v.SetDefault("auth.issuer", "invoice-insights")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	// Messaging defaults
	v.SetDefault("redis.prefix", "invoice-insights")
	v.SetDefault("amqp.exchange", "invoice.events")

	// Worker defaults
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.batch_size", 5)
	v.SetDefault("worker.process_timeout", 120*time.Second)
	v.SetDefault("worker.lock_ttl", 3*time.Minute)

	v.SetDefault("analytics.cache_ttl", 5*time.Minute)
	v.SetDefault("workflow.auto_validate_threshold", 90)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	// Sensitive credentials from environment
	bindings := map[string]string{
		"ai.openai.api_key":            "OPENAI_API_KEY",
		"ai.openai.base_url":           "OPENAI_BASE_URL",
		"ai.gigachat.api_key":          "GIGACHAT_API_KEY",
		"auth.jwt_secret":              "JWT_SECRET",
		"redis.address":                "REDIS_ADDRESS",
		"redis.password":               "REDIS_PASSWORD",
		"amqp.url":                     "AMQP_URL",
		"storage.gcs.bucket":           "GCS_BUCKET",
		"storage.gcs.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	// Validate storage
	switch c.Storage.Driver {
	case "local":
		if c.Storage.Local.Dir == "" {
			return fmt.Errorf("storage.local.dir is required")
		}
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	// Validate AI provider credentials
	switch c.AI.Provider {
	case "openai":
		if c.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("ai.openai.api_key is required")
		}
	case "gigachat":
		if c.AI.GigaChat.APIKey == "" {
			return fmt.Errorf("ai.gigachat.api_key is required")
		}
	case "none":
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}

	if t := c.Workflow.AutoValidateThreshold; t < 0 || t > 100 {
		return fmt.Errorf("workflow.auto_validate_threshold %d must be between 0 and 100", t)
	}

	return nil
}
