package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/invoice-insights/internal/container"
)

const testYAML = `
server:
  port: 9000
  read_timeout: 10s
  allowed_origins:
    - https://app.example.com
database:
  path: /tmp/test.db
ai:
  provider: openai
  openai:
    model: gpt-4o
worker:
  batch_size: 2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REDIS_ADDRESS", "")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "sk-test", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.AI.OpenAI.Model)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2, cfg.Worker.BatchSize)

	// defaults
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 90, cfg.Workflow.AutoValidateThreshold)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("JWT_SECRET", "")

	_, err := Load(writeConfig(t, testYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "data/invoices.db"},
		Storage:  StorageConfig{Driver: "local", Local: LocalStorageConfig{Dir: "data/uploads"}},
		AI:       AIConfig{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk"}},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Workflow: WorkflowConfig{AutoValidateThreshold: 90},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "s3" }, "storage.driver"},
		{"gcs without bucket", func(c *Config) { c.Storage.Driver = "gcs" }, "storage.gcs.bucket"},
		{"gigachat without key", func(c *Config) { c.AI.Provider = "gigachat" }, "ai.gigachat.api_key"},
		{"no ai", func(c *Config) { c.AI = AIConfig{Provider: "none"} }, ""},
		{"unknown ai", func(c *Config) { c.AI.Provider = "claude" }, "ai.provider"},
		{"threshold", func(c *Config) { c.Workflow.AutoValidateThreshold = 101 }, "auto_validate_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Redis = RedisConfig{Address: "localhost:6379", Prefix: "ii"}
	cfg.Worker = WorkerConfig{Enabled: true, BatchSize: 3}
	cfg.Server.MaxUploadSize = 1024

	cc, err := cfg.ToContainerConfig()
	require.NoError(t, err)

	assert.NoError(t, cc.Validate())
	assert.Equal(t, container.StorageLocal, cc.Storage.Driver)
	assert.Equal(t, "data/uploads", cc.Storage.LocalDir)
	assert.Equal(t, "sk", cc.AI.OpenAI.APIKey)
	assert.Equal(t, "localhost:6379", cc.Redis.Address)
	assert.Equal(t, 3, cc.Worker.Extraction.BatchSize)
	assert.Equal(t, int64(1024), cc.Server.MaxUploadSize)
	assert.Equal(t, 90, cc.AutoValidateThreshold)
}

func TestToContainerConfig_GCSCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))

	cfg := validConfig()
	cfg.Storage = StorageConfig{Driver: "gcs", GCS: GCSConfig{Bucket: "receipts", CredentialsFile: path}}

	cc, err := cfg.ToContainerConfig()
	require.NoError(t, err)
	assert.Equal(t, "receipts", cc.Storage.GCSBucket)
	assert.JSONEq(t, `{"type":"service_account"}`, cc.Storage.GCSCredentialsJSON)

	cfg.Storage.GCS.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = cfg.ToContainerConfig()
	assert.Error(t, err)
}
