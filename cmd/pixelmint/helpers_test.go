package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixelmint/internal/config"
	"pixelmint/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("PIXELMINT_NTFY_TOPIC", "")
	t.Setenv("PIXELMINT_GATEWAY_TOKEN", "")

	configPath := filepath.Join(homeDir, ".config", "pixelmint", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[storage]
backend = %q
blob_dir = %q
gateway_url = %q
public_base_url = %q

[ledger]
backend = %q
url = %q

[identity]
key_path = %q

[publish]
asset_propagation_delay_ms = 0
record_propagation_delay_ms = 0
record_backoff_base_ms = 0
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Storage.Backend,
		cfg.Storage.BlobDir,
		cfg.Storage.GatewayURL,
		cfg.Storage.PublicBaseURL,
		cfg.Ledger.Backend,
		cfg.Ledger.URL,
		cfg.Identity.KeyPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, "")
}

func runCLIWithInput(t *testing.T, args []string, configPath, input string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(input))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}
