package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"pixelmint/internal/config"
	"pixelmint/internal/identity"
	"pixelmint/internal/ledger/registry"
	"pixelmint/internal/ledger/rpc"
	"pixelmint/internal/logging"
	"pixelmint/internal/preflight"
	"pixelmint/internal/publish"
	"pixelmint/internal/storage/contentstore"
	"pixelmint/internal/storage/gateway"
	"pixelmint/internal/store"
)

// storageBackend is what the publish pipeline and doctor need from a content store.
type storageBackend interface {
	publish.AssetPublisher
	publish.RecordPublisher
	preflight.HealthChecker
}

// ledgerBackend is what the publish pipeline and doctor need from a ledger.
type ledgerBackend interface {
	publish.Committer
	preflight.HealthChecker
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	store *store.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) openStore() (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.store = st
	return st, nil
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func (c *commandContext) identity(approver identity.Approver) (*identity.KeyFile, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	kf, err := identity.Open(cfg.Identity.KeyPath, approver)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	return kf, nil
}

func (c *commandContext) storage() (storageBackend, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == config.BackendHTTP {
		client, err := gateway.New(gateway.Options{
			UploadURL:        cfg.Storage.GatewayURL,
			PublicURL:        cfg.Storage.PublicBaseURL,
			Token:            cfg.Storage.GatewayToken,
			Timeout:          time.Duration(cfg.Storage.TimeoutSeconds) * time.Second,
			UploadsPerMinute: cfg.Storage.UploadsPerMinute,
			Logger:           c.log(),
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	blobs, err := contentstore.New(cfg.Storage.BlobDir, cfg.Storage.PublicBaseURL, c.log())
	if err != nil {
		return nil, err
	}
	return blobs, nil
}

func (c *commandContext) ledger() (ledgerBackend, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.Backend == config.BackendHTTP {
		client, err := rpc.NewClient(cfg.Ledger.URL, time.Duration(cfg.Ledger.TimeoutSeconds)*time.Second, nil, c.log())
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return registry.New(st, c.log()), nil
}

func (c *commandContext) policy() publish.Policy {
	cfg := c.config
	return publish.Policy{
		AssetPropagationDelay:  cfg.AssetPropagationDelay(),
		RecordPropagationDelay: cfg.RecordPropagationDelay(),
		MaxRecordAttempts:      cfg.Publish.MaxRecordAttempts,
		RecordBackoffBase:      cfg.RecordBackoffBase(),
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
