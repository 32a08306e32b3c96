package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeLedger()
	if err := c.normalizeIdentity(); err != nil {
		return err
	}
	c.normalizeCanvas()
	c.normalizeMetadata()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	if strings.TrimSpace(c.Storage.BlobDir) == "" {
		c.Storage.BlobDir = defaultBlobDir
	}
	if c.Storage.BlobDir, err = expandPath(c.Storage.BlobDir); err != nil {
		return fmt.Errorf("storage.blob_dir: %w", err)
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	c.Storage.GatewayURL = strings.TrimRight(strings.TrimSpace(c.Storage.GatewayURL), "/")
	c.Storage.GatewayToken = strings.TrimSpace(c.Storage.GatewayToken)
	if c.Storage.GatewayToken == "" {
		if value, ok := os.LookupEnv("PIXELMINT_GATEWAY_TOKEN"); ok {
			c.Storage.GatewayToken = strings.TrimSpace(value)
		}
	}
	if c.Storage.UploadsPerMinute <= 0 {
		c.Storage.UploadsPerMinute = defaultGatewayUploadsPerMin
	}
	if c.Storage.TimeoutSeconds <= 0 {
		c.Storage.TimeoutSeconds = defaultGatewayTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLedger() {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	c.Ledger.URL = strings.TrimRight(strings.TrimSpace(c.Ledger.URL), "/")
	if c.Ledger.TimeoutSeconds <= 0 {
		c.Ledger.TimeoutSeconds = defaultLedgerTimeoutSeconds
	}
}

func (c *Config) normalizeIdentity() error {
	var err error
	if strings.TrimSpace(c.Identity.KeyPath) == "" {
		c.Identity.KeyPath = defaultKeyPath
	}
	if c.Identity.KeyPath, err = expandPath(c.Identity.KeyPath); err != nil {
		return fmt.Errorf("identity.key_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCanvas() {
	c.Canvas.Key = strings.TrimSpace(c.Canvas.Key)
	if c.Canvas.Key == "" {
		c.Canvas.Key = defaultCanvasKey
	}
	if c.Canvas.Scale == 0 {
		c.Canvas.Scale = defaultExportScale
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.Symbol = strings.ToUpper(strings.TrimSpace(c.Metadata.Symbol))
	if c.Metadata.Symbol == "" {
		c.Metadata.Symbol = defaultSymbol
	}
	c.Metadata.Description = strings.TrimSpace(c.Metadata.Description)
	if c.Metadata.Description == "" {
		c.Metadata.Description = defaultDescription
	}
	c.Metadata.Category = strings.ToLower(strings.TrimSpace(c.Metadata.Category))
	if c.Metadata.Category == "" {
		c.Metadata.Category = defaultCategory
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PIXELMINT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
