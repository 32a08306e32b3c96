package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Canvas contains settings for the local editing session.
type Canvas struct {
	Key   string `toml:"key"`
	Scale int    `toml:"scale"`
}

// Storage selects and configures the durable content store.
type Storage struct {
	Backend          string `toml:"backend"`
	BlobDir          string `toml:"blob_dir"`
	PublicBaseURL    string `toml:"public_base_url"`
	GatewayURL       string `toml:"gateway_url"`
	GatewayToken     string `toml:"gateway_token"`
	UploadsPerMinute int    `toml:"uploads_per_minute"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// Ledger selects and configures the registration ledger.
type Ledger struct {
	Backend        string `toml:"backend"`
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Identity locates the signing key.
type Identity struct {
	KeyPath string `toml:"key_path"`
}

// Publish holds the pipeline timing policy. Durations are milliseconds so
// tests and impatient users can set them to zero.
type Publish struct {
	AssetPropagationDelayMS  int `toml:"asset_propagation_delay_ms"`
	RecordPropagationDelayMS int `toml:"record_propagation_delay_ms"`
	MaxRecordAttempts        int `toml:"max_record_attempts"`
	RecordBackoffBaseMS      int `toml:"record_backoff_base_ms"`
}

// Metadata holds the fixed fields of every description record.
type Metadata struct {
	Symbol               string `toml:"symbol"`
	Description          string `toml:"description"`
	Category             string `toml:"category"`
	SellerFeeBasisPoints int    `toml:"seller_fee_basis_points"`
	Mutable              bool   `toml:"mutable"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Published      bool   `toml:"published"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pixelmint.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Canvas: persisted canvas key and export scale
//   - Storage: content store backend (local blobs or HTTP gateway)
//   - Ledger: registration backend (local registry or HTTP)
//   - Identity: signing key location
//   - Publish: propagation delays and record retry policy
//   - Metadata: symbol, description and royalty fields
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Canvas        Canvas        `toml:"canvas"`
	Storage       Storage       `toml:"storage"`
	Ledger        Ledger        `toml:"ledger"`
	Identity      Identity      `toml:"identity"`
	Publish       Publish       `toml:"publish"`
	Metadata      Metadata      `toml:"metadata"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pixelmint/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pixelmint.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and (for the local backend) blob directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Storage.Backend == BackendLocal {
		dirs = append(dirs, c.Storage.BlobDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "pixelmint.db")
}

// LogPath returns the log file written by the CLI.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "pixelmint.log")
}

// CanvasLockPath returns the file used to serialize canvas edits across processes.
func (c *Config) CanvasLockPath() string {
	return filepath.Join(c.Paths.DataDir, "canvas.lock")
}

// AssetPropagationDelay returns the wait inserted after the asset upload.
func (c *Config) AssetPropagationDelay() time.Duration {
	return time.Duration(c.Publish.AssetPropagationDelayMS) * time.Millisecond
}

// RecordPropagationDelay returns the wait inserted after the record upload.
func (c *Config) RecordPropagationDelay() time.Duration {
	return time.Duration(c.Publish.RecordPropagationDelayMS) * time.Millisecond
}

// RecordBackoffBase returns the linear backoff unit between record attempts.
func (c *Config) RecordBackoffBase() time.Duration {
	return time.Duration(c.Publish.RecordBackoffBaseMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
