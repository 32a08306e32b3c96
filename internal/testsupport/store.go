package testsupport

import (
	"testing"

	"pixelmint/internal/config"
	"pixelmint/internal/identity"
	"pixelmint/internal/store"
)

// MustOpenStore opens the database described by cfg and closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustIdentity generates a signing key at the configured path and loads it
// with automatic approval.
func MustIdentity(t testing.TB, cfg *config.Config) *identity.KeyFile {
	t.Helper()

	if _, err := identity.Generate(cfg.Identity.KeyPath, true); err != nil {
		t.Fatalf("identity.Generate: %v", err)
	}
	kf, err := identity.Open(cfg.Identity.KeyPath, identity.AutoApprove)
	if err != nil {
		t.Fatalf("identity.Open: %v", err)
	}
	return kf
}
