package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixelmint/internal/identity"
	"pixelmint/internal/services"
	"pixelmint/internal/testsupport"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckIdentity(t *testing.T) {
	missing, err := identity.Open(filepath.Join(t.TempDir(), "absent.key"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if result := CheckIdentity(missing); result.Passed || !strings.Contains(result.Detail, "identity init") {
		t.Fatalf("expected failure pointing at identity init, got %+v", result)
	}

	cfg := testsupport.NewConfig(t)
	kf := testsupport.MustIdentity(t, cfg)
	result := CheckIdentity(kf)
	if !result.Passed || result.Detail == "" {
		t.Fatalf("expected pass with address detail, got %+v", result)
	}
}

func TestCheckService(t *testing.T) {
	if result := CheckService(context.Background(), "Storage", stubChecker{}); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	unauthorized := services.Wrap(services.ErrUnauthorized, "gateway", "health", "storage gateway returned 401", nil)
	result := CheckService(context.Background(), "Storage", stubChecker{err: unauthorized})
	if result.Passed || !strings.HasPrefix(result.Detail, "credentials rejected") {
		t.Fatalf("unexpected result %+v", result)
	}
	result = CheckService(context.Background(), "Ledger", stubChecker{err: context.DeadlineExceeded})
	if result.Passed || !strings.Contains(result.Detail, "timed out") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Targets{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_LocalStack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	kf := testsupport.MustIdentity(t, cfg)

	results := RunAll(context.Background(), cfg, Targets{
		Identity: kf,
		Storage:  stubChecker{},
		Ledger:   stubChecker{err: errors.New("database locked")},
	})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Ledger (local)" {
		t.Fatalf("expected only the ledger check to fail, got %+v", failed)
	}
}
