// Package container provides dependency injection and lifecycle management
// for the invoice insights service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/invoice-insights/internal/application/service"
	"github.com/garyjia/invoice-insights/internal/domain/workflow"
	"github.com/garyjia/invoice-insights/internal/infrastructure/cache"
	"github.com/garyjia/invoice-insights/internal/infrastructure/document"
	"github.com/garyjia/invoice-insights/internal/infrastructure/external/gigachat"
	"github.com/garyjia/invoice-insights/internal/infrastructure/external/openai"
	"github.com/garyjia/invoice-insights/internal/infrastructure/messaging"
	"github.com/garyjia/invoice-insights/internal/infrastructure/worker"
	httpserver "github.com/garyjia/invoice-insights/internal/interfaces/http"
	"github.com/garyjia/invoice-insights/pkg/database"
)

// AI providers
const (
	ProviderOpenAI   = "openai"
	ProviderGigaChat = "gigachat"
	ProviderNone     = "none"
)

// Storage drivers
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database  database.Config
	Storage   StorageConfig
	AI        AIConfig
	Auth      AuthConfig
	Document  document.Config
	Redis     cache.Config
	AMQP      messaging.Config
	Worker    WorkerConfig
	Analytics service.AnalyticsConfig
	Server    httpserver.ServerConfig

	// AutoValidateThreshold is the extraction confidence that skips review
	AutoValidateThreshold int
}

// StorageConfig selects the object storage backend
type StorageConfig struct {
	Driver string

	// LocalDir and LocalBaseURL configure the filesystem backend
	LocalDir     string
	LocalBaseURL string

	// GCSBucket and GCSCredentialsJSON configure Google Cloud Storage
	GCSBucket          string
	GCSCredentialsJSON string
}

// AIConfig selects the extractor and text generator.
// OpenAI serves both; GigaChat serves text generation only and pairs with
// OpenAI extraction when an OpenAI key is also set.
type AIConfig struct {
	Provider    string
	OpenAI      openai.Config
	PromptsPath string
	GigaChat    gigachat.Config
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	Enabled    bool
	Extraction worker.ExtractionWorkerConfig
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: database.Config{
			Path:            "data/invoices.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Driver:       StorageLocal,
			LocalDir:     "data/uploads",
			LocalBaseURL: "/files",
		},
		AI: AIConfig{
			Provider: ProviderOpenAI,
		},
		Auth: AuthConfig{
			Issuer:   "invoice-insights",
			TokenTTL: 24 * time.Hour,
		},
		Document: document.DefaultConfig(),
		Redis: cache.Config{
			Prefix: "invoice-insights",
		},
		AMQP: messaging.Config{
			Exchange: "invoice.events",
		},
		Worker: WorkerConfig{
			Enabled:    true,
			Extraction: worker.DefaultExtractionWorkerConfig(),
		},
		Analytics: service.AnalyticsConfig{
			CacheTTL: service.DefaultCacheTTL,
		},
		Server:                httpserver.DefaultServerConfig(),
		AutoValidateThreshold: workflow.DefaultAutoValidateThreshold,
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	// Validate storage configuration
	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local.dir is required")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	// Validate AI configuration
	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("openai api key is required")
		}
	case ProviderGigaChat:
		if c.AI.GigaChat.APIKey == "" {
			return fmt.Errorf("gigachat api key is required")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}

	return nil
}
