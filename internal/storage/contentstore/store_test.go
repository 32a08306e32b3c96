package contentstore_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixelmint/internal/encoder"
	"pixelmint/internal/raster"
	"pixelmint/internal/record"
	"pixelmint/internal/services"
	"pixelmint/internal/storage/contentstore"
)

func newStore(t *testing.T, publicBase string) (*contentstore.Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "blobs")
	store, err := contentstore.New(dir, publicBase, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, dir
}

func TestPublishAssetRoundTrip(t *testing.T) {
	store, _ := newStore(t, "https://gw.example.test/")
	asset, err := encoder.Encode(raster.Blank(), 2)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	locator, err := store.PublishAsset(context.Background(), asset, "ABCDE")
	if err != nil {
		t.Fatalf("PublishAsset: %v", err)
	}
	if !strings.HasPrefix(locator, "https://gw.example.test/") {
		t.Fatalf("unexpected locator %q", locator)
	}
	id, ok := contentstore.IDFromLocator(locator)
	if !ok {
		t.Fatalf("locator %q does not carry a blob id", locator)
	}

	blob, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(blob.Data, asset.Data) || blob.MediaType != encoder.MediaTypePNG || blob.Kind != contentstore.KindAsset {
		t.Fatalf("round trip mismatch: kind=%s type=%s len=%d", blob.Kind, blob.MediaType, len(blob.Data))
	}

	again, err := store.PublishAsset(context.Background(), asset, "OTHER")
	if err != nil {
		t.Fatalf("PublishAsset again: %v", err)
	}
	if again != locator {
		t.Fatalf("expected stable locator, got %q then %q", locator, again)
	}
}

func TestPublishRecordCompressesJSON(t *testing.T) {
	store, dir := newStore(t, "")
	doc, err := record.Build("ABCDE", "file:///x", "image/png", record.Template{
		Symbol:      "PXCAN",
		Description: strings.Repeat("pixel art ", 50),
		Category:    "image",
	}, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	locator, err := store.PublishRecord(context.Background(), doc)
	if err != nil {
		t.Fatalf("PublishRecord: %v", err)
	}
	if !strings.HasPrefix(locator, "file://") {
		t.Fatalf("expected file locator without public base, got %q", locator)
	}
	id, _ := contentstore.IDFromLocator(locator)

	raw, err := os.ReadFile(filepath.Join(dir, id[:2], id))
	if err != nil {
		t.Fatalf("read raw blob: %v", err)
	}
	if contentstore.CompressionTag(raw[5]) != contentstore.CompressionZstd {
		t.Fatalf("expected zstd tag, got %s", contentstore.CompressionTag(raw[5]))
	}
	if len(raw) >= len(doc.Body) {
		t.Fatalf("expected compressed blob smaller than %d bytes, got %d", len(doc.Body), len(raw))
	}

	blob, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(blob.Data, doc.Body) {
		t.Fatal("record body changed in storage")
	}
}

func TestDomainsSeparateIDs(t *testing.T) {
	data := []byte("same bytes")
	a, err := contentstore.ID(contentstore.KindAsset, data)
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	r, err := contentstore.ID(contentstore.KindRecord, data)
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if a == r {
		t.Fatal("expected asset and record domains to differ")
	}
	if len(a) != 64 {
		t.Fatalf("unexpected id length %d", len(a))
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	store, dir := newStore(t, "")
	id, err := store.Put(context.Background(), contentstore.KindAsset, []byte("payload bytes"), "application/octet-stream")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	path := filepath.Join(dir, id[:2], id)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("rewrite blob: %v", err)
	}
	if _, err := store.Get(id); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for corrupted blob, got %v", err)
	}

	missing := strings.Repeat("ab", 32)
	if _, err := store.Get(missing); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Get("../../etc/passwd"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected invalid id rejection, got %v", err)
	}
}

func TestPutRejectsEmptyPayloadAndCancelledContext(t *testing.T) {
	store, _ := newStore(t, "")
	if _, err := store.Put(context.Background(), contentstore.KindAsset, nil, "image/png"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, contentstore.KindAsset, []byte("x"), "image/png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestSelectCompression(t *testing.T) {
	cases := map[string]contentstore.CompressionTag{
		"image/png":                       contentstore.CompressionNone,
		"application/json":                contentstore.CompressionZstd,
		"application/json; charset=utf-8": contentstore.CompressionZstd,
		"text/plain":                      contentstore.CompressionZstd,
		"application/octet-stream":        contentstore.CompressionLZ4,
	}
	for mediaType, want := range cases {
		if got := contentstore.SelectCompression(mediaType); got != want {
			t.Fatalf("SelectCompression(%q) = %s, want %s", mediaType, got, want)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	store, _ := newStore(t, "")
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if err := store.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}
