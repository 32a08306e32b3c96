// Package contentstore is a content-addressed blob store on local disk. Blob
// ids are domain-separated BLAKE3 hashes of the payload, so publishing the
// same bytes twice yields the same locator.
package contentstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"pixelmint/internal/encoder"
	"pixelmint/internal/logging"
	"pixelmint/internal/record"
	"pixelmint/internal/services"
)

var blobMagic = [4]byte{'P', 'X', 'B', 1}

const headerSize = len(blobMagic) + 1 + 1 + 4 + 1

// Blob is a stored payload read back from disk.
type Blob struct {
	ID        string
	Kind      Kind
	MediaType string
	Data      []byte
}

// Store writes blobs beneath a root directory.
type Store struct {
	root       string
	publicBase string
	logger     *slog.Logger
}

// New opens (creating if needed) a blob store rooted at dir. When publicBase
// is non-empty locators are "<publicBase>/<id>", otherwise file:// URLs.
func New(dir, publicBase string, logger *slog.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "contentstore", "open", "blob directory is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "contentstore", "open", "create blob directory", err)
	}
	return &Store{
		root:       dir,
		publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/"),
		logger:     logging.NewComponentLogger(logger, "contentstore"),
	}, nil
}

// Connect verifies the store is writable before the first upload.
func (s *Store) Connect(ctx context.Context) error {
	return s.HealthCheck(ctx)
}

// HealthCheck writes and removes a probe file under the root.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	probe, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return services.Wrap(services.ErrTransient, "contentstore", "health", "blob directory not writable", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// PublishAsset stores an encoded image and returns its locator.
func (s *Store) PublishAsset(ctx context.Context, asset encoder.Asset, displayName string) (string, error) {
	id, err := s.Put(ctx, KindAsset, asset.Data, asset.MediaType)
	if err != nil {
		return "", err
	}
	s.logger.Debug("asset stored",
		logging.String("blob_id", id),
		logging.String("display_name", displayName),
		logging.Int("bytes", len(asset.Data)),
	)
	return s.Locator(id), nil
}

// PublishRecord stores an encoded description record and returns its locator.
func (s *Store) PublishRecord(ctx context.Context, doc record.Document) (string, error) {
	id, err := s.Put(ctx, KindRecord, doc.Body, doc.ContentType)
	if err != nil {
		return "", err
	}
	s.logger.Debug("record stored", logging.String("blob_id", id), logging.Int("bytes", len(doc.Body)))
	return s.Locator(id), nil
}

// Put writes data under its content id. Existing blobs are left untouched.
func (s *Store) Put(ctx context.Context, kind Kind, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", services.Wrap(services.ErrValidation, "contentstore", "put", "empty payload", nil)
	}
	if len(mediaType) > 255 {
		return "", services.Wrap(services.ErrValidation, "contentstore", "put", "media type too long", nil)
	}
	id, err := ID(kind, data)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "contentstore", "put", "hash payload", err)
	}

	path := s.blobPath(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	stored, tag, err := compress(data, SelectCompression(mediaType))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "contentstore", "put", "compress payload", err)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(mediaType) + len(stored))
	buf.Write(blobMagic[:])
	buf.WriteByte(byte(kind))
	buf.WriteByte(byte(tag))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.WriteByte(byte(len(mediaType)))
	buf.WriteString(mediaType)
	buf.Write(stored)

	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", services.Wrap(services.ErrTransient, "contentstore", "put", "write blob", err)
	}
	return id, nil
}

// Get reads a blob and verifies its content hash.
func (s *Store) Get(id string) (Blob, error) {
	if !validID(id) {
		return Blob{}, services.Wrap(services.ErrValidation, "contentstore", "get", fmt.Sprintf("invalid blob id %q", id), nil)
	}
	raw, err := os.ReadFile(s.blobPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Blob{}, services.Wrap(services.ErrNotFound, "contentstore", "get", id, nil)
	}
	if err != nil {
		return Blob{}, services.Wrap(services.ErrTransient, "contentstore", "get", "read blob", err)
	}
	if len(raw) < headerSize || !bytes.Equal(raw[:len(blobMagic)], blobMagic[:]) {
		return Blob{}, services.Wrap(services.ErrValidation, "contentstore", "get", "corrupt blob header", nil)
	}
	offset := len(blobMagic)
	kind := Kind(raw[offset])
	tag := CompressionTag(raw[offset+1])
	size := int(binary.BigEndian.Uint32(raw[offset+2 : offset+6]))
	mtLen := int(raw[offset+6])
	offset = headerSize
	if len(raw) < offset+mtLen {
		return Blob{}, services.Wrap(services.ErrValidation, "contentstore", "get", "truncated blob header", nil)
	}
	mediaType := string(raw[offset : offset+mtLen])

	data, err := decompress(raw[offset+mtLen:], tag, size)
	if err != nil {
		return Blob{}, services.Wrap(services.ErrValidation, "contentstore", "get", "decompress blob", err)
	}
	sum, err := ID(kind, data)
	if err != nil || sum != id {
		return Blob{}, services.Wrap(services.ErrValidation, "contentstore", "get", "content hash mismatch", err)
	}
	return Blob{ID: id, Kind: kind, MediaType: mediaType, Data: data}, nil
}

// Locator returns the public locator for a blob id.
func (s *Store) Locator(id string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + id
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(s.blobPath(id))}).String()
}

// IDFromLocator extracts the blob id from a locator produced by Locator.
func IDFromLocator(locator string) (string, bool) {
	locator = strings.TrimSpace(locator)
	idx := strings.LastIndexByte(locator, '/')
	id := locator[idx+1:]
	if !validID(id) {
		return "", false
	}
	return id, true
}

func (s *Store) blobPath(id string) string {
	return filepath.Join(s.root, id[:2], id)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
