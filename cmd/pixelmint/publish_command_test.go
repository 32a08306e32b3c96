package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"pixelmint/internal/identity"
	"pixelmint/internal/publish"
	"pixelmint/internal/store"
	"pixelmint/internal/testsupport"
)

func TestPublishWithLocalBackendsRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"identity", "init"}, env.configPath)
	if err != nil {
		t.Fatalf("identity init: %v", err)
	}
	requireContains(t, out, "Address: ")

	if _, _, err := runCLI(t, []string{"canvas", "paint", "3", "4", "#00ff00"}, env.configPath); err != nil {
		t.Fatalf("canvas paint: %v", err)
	}

	out, _, err = runCLI(t, []string{"publish", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("publish: %v\n%s", err, out)
	}
	requireContains(t, out, "Rendering")
	requireContains(t, out, "Uploading metadata (1/3)...")
	requireContains(t, out, "Succeeded")
	requireContains(t, out, "Published ")
	requireContains(t, out, "file://")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var pubs []store.Publication
	if err := json.Unmarshal([]byte(out), &pubs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected one publication, got %d", len(pubs))
	}
	if pubs[0].AttemptID == "" || pubs[0].RegistrationID == "" || pubs[0].RecordAttempts != 1 {
		t.Fatalf("unexpected publication: %+v", pubs[0])
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, pubs[0].Name)

	out, _, err = runCLI(t, []string{"identity", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("identity show: %v", err)
	}
	requireContains(t, out, "Registrations (local ledger): 1")
}

func TestPublishJSONReportsConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"identity", "init"}, env.configPath); err != nil {
		t.Fatalf("identity init: %v", err)
	}

	out, _, err := runCLI(t, []string{"publish", "--yes", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	var result publishResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if result.Failure != nil || result.Confirmation == nil {
		t.Fatalf("expected confirmation, got %+v", result)
	}
	if result.AttemptID == "" || len(result.Confirmation.Name) != 5 || strings.ToUpper(result.Confirmation.Name) != result.Confirmation.Name {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPublishWithoutIdentityIsAuthorizationError(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"publish", "--yes"}, env.configPath)
	if err == nil {
		t.Fatal("expected publish to fail without an identity")
	}
	if !errors.Is(err, publish.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No publications yet")
}

func TestPublishDeclinedPromptIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"identity", "init"}, env.configPath); err != nil {
		t.Fatalf("identity init: %v", err)
	}

	_, stderr, err := runCLIWithInput(t, []string{"publish"}, env.configPath, "n\n")
	if err == nil {
		t.Fatal("expected declined signature to fail")
	}
	if !errors.Is(err, publish.ErrAuthorization) || !errors.Is(err, identity.ErrRejected) {
		t.Fatalf("expected rejected authorization, got %v", err)
	}
	requireContains(t, stderr, "Approve? [y/N]")
}

func TestPublishApprovedPrompt(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"identity", "init"}, env.configPath); err != nil {
		t.Fatalf("identity init: %v", err)
	}

	out, _, err := runCLIWithInput(t, []string{"publish"}, env.configPath, "yes\n")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	requireContains(t, out, "Succeeded")
}

func TestPublishWithoutIdentityContactsNoBackend(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	env := setupCLITestEnv(t,
		testsupport.WithGateway(srv.URL, srv.URL),
		testsupport.WithLedgerURL(srv.URL),
	)

	_, _, err := runCLI(t, []string{"publish", "--yes"}, env.configPath)
	if err == nil {
		t.Fatal("expected publish to fail without an identity")
	}
	if !errors.Is(err, publish.ErrAuthorization) || !errors.Is(err, identity.ErrNoIdentity) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if exitCode(err) != exitAuthorization {
		t.Fatalf("exit code = %d, want %d", exitCode(err), exitAuthorization)
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("expected no backend requests, got %d", n)
	}
}
