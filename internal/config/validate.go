package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxExportScale       = 64
	maxSellerFeeBasisPts = 10000
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateCanvas(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Storage.BlobDir) == "" {
			return errors.New("storage.blob_dir must be set when storage.backend is local")
		}
	case BackendHTTP:
		if c.Storage.GatewayURL == "" {
			return errors.New("storage.gateway_url must be set when storage.backend is http")
		}
		if c.Storage.PublicBaseURL == "" {
			return errors.New("storage.public_base_url must be set when storage.backend is http")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (expected %q or %q)", c.Storage.Backend, BackendLocal, BackendHTTP)
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case BackendLocal:
	case BackendHTTP:
		if c.Ledger.URL == "" {
			return errors.New("ledger.url must be set when ledger.backend is http")
		}
	default:
		return fmt.Errorf("ledger.backend: unsupported value %q (expected %q or %q)", c.Ledger.Backend, BackendLocal, BackendHTTP)
	}
	return nil
}

func (c *Config) validateCanvas() error {
	if c.Canvas.Scale < 1 || c.Canvas.Scale > maxExportScale {
		return fmt.Errorf("canvas.scale must be between 1 and %d", maxExportScale)
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.MaxRecordAttempts < 1 {
		return errors.New("publish.max_record_attempts must be at least 1")
	}
	if err := ensureNonNegativeMap(map[string]int{
		"publish.asset_propagation_delay_ms":  c.Publish.AssetPropagationDelayMS,
		"publish.record_propagation_delay_ms": c.Publish.RecordPropagationDelayMS,
		"publish.record_backoff_base_ms":      c.Publish.RecordBackoffBaseMS,
	}); err != nil {
		return err
	}
	if c.Publish.RecordPropagationDelayMS < c.Publish.AssetPropagationDelayMS {
		return errors.New("publish.record_propagation_delay_ms must not be shorter than publish.asset_propagation_delay_ms")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if c.Metadata.SellerFeeBasisPoints < 0 || c.Metadata.SellerFeeBasisPoints > maxSellerFeeBasisPts {
		return fmt.Errorf("metadata.seller_fee_basis_points must be between 0 and %d", maxSellerFeeBasisPts)
	}
	if len(c.Metadata.Symbol) > 10 {
		return errors.New("metadata.symbol must be at most 10 characters")
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
