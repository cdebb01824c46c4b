package config

import (
	"fmt"
	"os"

	"github.com/garyjia/invoice-insights/internal/application/service"
	"github.com/garyjia/invoice-insights/internal/container"
	"github.com/garyjia/invoice-insights/internal/infrastructure/cache"
	"github.com/garyjia/invoice-insights/internal/infrastructure/document"
	"github.com/garyjia/invoice-insights/internal/infrastructure/external/gigachat"
	"github.com/garyjia/invoice-insights/internal/infrastructure/external/openai"
	"github.com/garyjia/invoice-insights/internal/infrastructure/messaging"
	"github.com/garyjia/invoice-insights/internal/infrastructure/worker"
	httpserver "github.com/garyjia/invoice-insights/internal/interfaces/http"
	"github.com/garyjia/invoice-insights/pkg/database"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure. The GCS credentials file is
// read here so the container only deals with its contents.
func (c *Config) ToContainerConfig() (*container.Config, error) {
	var credentials string
	if c.Storage.Driver == container.StorageGCS && c.Storage.GCS.CredentialsFile != "" {
		raw, err := os.ReadFile(c.Storage.GCS.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read gcs credentials: %w", err)
		}
		credentials = string(raw)
	}

	return &container.Config{
		Database: database.Config{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Storage: container.StorageConfig{
			Driver:             c.Storage.Driver,
			LocalDir:           c.Storage.Local.Dir,
			LocalBaseURL:       c.Storage.Local.BaseURL,
			GCSBucket:          c.Storage.GCS.Bucket,
			GCSCredentialsJSON: credentials,
		},
		AI: container.AIConfig{
			Provider: c.AI.Provider,
			OpenAI: openai.Config{
				APIKey:      c.AI.OpenAI.APIKey,
				BaseURL:     c.AI.OpenAI.BaseURL,
				Model:       c.AI.OpenAI.Model,
				VisionModel: c.AI.OpenAI.VisionModel,
			},
			PromptsPath: c.AI.OpenAI.PromptsPath,
			GigaChat: gigachat.Config{
				APIKey:             c.AI.GigaChat.APIKey,
				Scope:              c.AI.GigaChat.Scope,
				Model:              c.AI.GigaChat.Model,
				InsecureSkipVerify: c.AI.GigaChat.InsecureSkipVerify,
			},
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		Document: document.DefaultConfig(),
		Redis: cache.Config{
			Address:  c.Redis.Address,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			PoolSize: c.Redis.PoolSize,
			Prefix:   c.Redis.Prefix,
		},
		AMQP: messaging.Config{
			URL:      c.AMQP.URL,
			Exchange: c.AMQP.Exchange,
		},
		Worker: container.WorkerConfig{
			Enabled: c.Worker.Enabled,
			Extraction: worker.ExtractionWorkerConfig{
				PollInterval:   c.Worker.PollInterval,
				BatchSize:      c.Worker.BatchSize,
				ProcessTimeout: c.Worker.ProcessTimeout,
				LockTTL:        c.Worker.LockTTL,
			},
		},
		Analytics: service.AnalyticsConfig{
			CacheTTL:     c.Analytics.CacheTTL,
			ForecastSeed: c.Analytics.ForecastSeed,
		},
		Server: httpserver.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: c.Server.AllowedOrigins,
			MaxUploadSize:  c.Server.MaxUploadSize,
		},
		AutoValidateThreshold: c.Workflow.AutoValidateThreshold,
	}, nil
}
