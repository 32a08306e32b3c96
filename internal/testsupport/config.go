package testsupport

import (
	"path/filepath"
	"testing"

	"pixelmint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Publication delays are zeroed so pipeline tests never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.BlobDir = filepath.Join(base, "blobs")
	cfgVal.Identity.KeyPath = filepath.Join(base, "identity.key")
	cfgVal.Publish.AssetPropagationDelayMS = 0
	cfgVal.Publish.RecordPropagationDelayMS = 0
	cfgVal.Publish.RecordBackoffBaseMS = 0
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithGateway points the storage backend at an HTTP gateway.
func WithGateway(uploadURL, publicURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = config.BackendHTTP
		b.cfg.Storage.GatewayURL = uploadURL
		b.cfg.Storage.PublicBaseURL = publicURL
	}
}

// WithLedgerURL points the ledger backend at an HTTP endpoint.
func WithLedgerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Backend = config.BackendHTTP
		b.cfg.Ledger.URL = url
	}
}

// WithNtfyTopic enables notifications against the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
