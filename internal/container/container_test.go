package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/dispatcher"
	"github.com/garyjia/invoice-insights/internal/application/service"
	"github.com/garyjia/invoice-insights/internal/domain/event"
	"github.com/garyjia/invoice-insights/internal/infrastructure/messaging"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "invoices.db")
	cfg.Storage.LocalDir = filepath.Join(dir, "uploads")
	cfg.AI.Provider = ProviderNone
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Auth.JWTSecret = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults with secret", func(c *Config) {}, true},
		{"openai without key", func(c *Config) { c.AI.Provider = ProviderOpenAI }, false},
		{"gigachat with key", func(c *Config) {
			c.AI.Provider = ProviderGigaChat
			c.AI.GigaChat.APIKey = "key"
		}, true},
		{"gcs without bucket", func(c *Config) { c.Storage.Driver = StorageGCS }, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "ftp" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start")

	require.NotNil(t, c.Services())
	require.NotNil(t, c.HTTPServer())
	assert.Equal(t, 1, c.Workers().GetWorkerCount())

	version, err := c.Database().SchemaVersion()
	require.NoError(t, err)
	assert.Greater(t, version, uint(0))

	health := c.Health(ctx)
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.False(t, health.Components["extractor"].Healthy)
	_, hasRedis := health.Components["redis"]
	assert.False(t, hasRedis)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
}

func TestContainer_StartFailureReleasesResources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "invoices.db")

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "database")
	assert.False(t, c.Ready())
}

type recordingAnalytics struct {
	service.AnalyticsService
	invalidated []string
	err         error
}

func (r *recordingAnalytics) Invalidate(ctx context.Context, userID string) error {
	r.invalidated = append(r.invalidated, userID)
	return r.err
}

type recordingPublisher struct {
	messaging.NoopPublisher
	published []event.Type
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *event.Event) error {
	p.published = append(p.published, evt.Type)
	return nil
}

func TestRegisterEventHandlers(t *testing.T) {
	analytics := &recordingAnalytics{}
	publisher := &recordingPublisher{}
	disp := dispatcher.NewDispatcher()
	RegisterEventHandlers(disp, analytics, publisher, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, disp.Dispatch(ctx, event.NewEvent(event.TypeInvoiceUploaded, "user-1", "inv-1", nil)))
	require.NoError(t, disp.Dispatch(ctx, event.NewEvent(event.TypeInvoiceUpdated, "user-1", "inv-1", nil)))
	require.NoError(t, disp.Dispatch(ctx, event.NewEvent(event.TypeInvoicesImported, "user-2", "", nil)))

	assert.Equal(t, []string{"user-1", "user-1", "user-2"}, analytics.invalidated)
	assert.Equal(t, []event.Type{
		event.TypeInvoiceUploaded,
		event.TypeInvoiceUpdated,
		event.TypeInvoicesImported,
	}, publisher.published)
}

func TestRegisterEventHandlers_InvalidationFailureStillPublishes(t *testing.T) {
	analytics := &recordingAnalytics{err: errors.New("redis down")}
	publisher := &recordingPublisher{}
	disp := dispatcher.NewDispatcher()
	RegisterEventHandlers(disp, analytics, publisher, zap.NewNop())

	err := disp.Dispatch(context.Background(), event.NewEvent(event.TypeInvoiceAdded, "user-1", "inv-1", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, analytics.invalidated)
	assert.Equal(t, []event.Type{event.TypeInvoiceAdded}, publisher.published)
}

func TestContainer_UploadInvalidatesCachedSummary(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	before, err := c.Services().Analytics.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, before.TotalCount)

	_, err = c.Services().Invoice.Upload(ctx, service.UploadInput{
		UserID:      "user-1",
		FileName:    "receipt.txt",
		ContentType: "text/plain",
		Content:     []byte("Acme Corp total 42.00"),
	})
	require.NoError(t, err)

	after, err := c.Services().Analytics.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, after.TotalCount)
	assert.Equal(t, 1, after.ByStatus["processing"])
}

func TestProvideCache_MemoryFallback(t *testing.T) {
	bundle, err := ProvideCache(context.Background(), nil, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, bundle.Reports)
	assert.Nil(t, bundle.Locker)
	assert.Nil(t, bundle.Redis)
}

func TestProvidePublisher_Noop(t *testing.T) {
	publisher, err := ProvidePublisher(nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, messaging.NoopPublisher{}, publisher)
}
