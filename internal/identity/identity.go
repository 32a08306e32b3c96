package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ed25519"
)

var (
	// ErrNoIdentity means no signing key is available.
	ErrNoIdentity = errors.New("no identity configured")
	// ErrRejected means the user declined to sign.
	ErrRejected = errors.New("signature request rejected")
)

// Intent describes what a signature will authorize.
type Intent struct {
	Name          string
	RecordLocator string
}

// Summary returns the one-line description shown when asking for approval.
func (i Intent) Summary() string {
	return fmt.Sprintf("register %q pointing at %s", i.Name, i.RecordLocator)
}

// Signer is the capability to sign registrations on behalf of an owner.
type Signer interface {
	Address() string
	PublicKey() ed25519.PublicKey
	Sign(ctx context.Context, intent Intent, payload []byte) ([]byte, error)
}

// Provider reports whether an identity is present and hands out its signer.
type Provider interface {
	IsAuthorized() bool
	Signer() (Signer, error)
}

// Approver decides whether the user accepts an intent.
type Approver func(ctx context.Context, intent Intent) (bool, error)

// AutoApprove accepts every intent.
func AutoApprove(context.Context, Intent) (bool, error) { return true, nil }

// KeyFile is a Provider backed by a seed file on disk.
type KeyFile struct {
	path     string
	key      ed25519.PrivateKey
	approver Approver
}

// Generate creates a new key at path. An existing key is kept unless overwrite is set.
func Generate(path string, overwrite bool) (*KeyFile, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("identity key already exists at %s", path)
		}
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create identity directory: %w", err)
	}
	seed := hex.EncodeToString(priv.Seed())
	if err := os.WriteFile(path, []byte(seed+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write identity key: %w", err)
	}
	return &KeyFile{path: path, key: priv}, nil
}

// Open loads the key at path. A missing file yields an unauthorized provider
// rather than an error; a malformed file is an error.
func Open(path string, approver Approver) (*KeyFile, error) {
	kf := &KeyFile{path: path, approver: approver}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return kf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity key: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode identity key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity key has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	kf.key = ed25519.NewKeyFromSeed(seed)
	return kf, nil
}

// Path returns the key file location.
func (k *KeyFile) Path() string { return k.path }

// WithApprover returns a copy of k that consults approver before signing.
func (k *KeyFile) WithApprover(approver Approver) *KeyFile {
	clone := *k
	clone.approver = approver
	return &clone
}

// IsAuthorized reports whether a key was loaded.
func (k *KeyFile) IsAuthorized() bool {
	return k != nil && len(k.key) == ed25519.PrivateKeySize
}

// Signer returns the signing capability or ErrNoIdentity.
func (k *KeyFile) Signer() (Signer, error) {
	if !k.IsAuthorized() {
		return nil, ErrNoIdentity
	}
	return keySigner{key: k.key, approver: k.approver}, nil
}

type keySigner struct {
	key      ed25519.PrivateKey
	approver Approver
}

func (s keySigner) Address() string { return Address(s.PublicKey()) }

func (s keySigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s keySigner) Sign(ctx context.Context, intent Intent, payload []byte) ([]byte, error) {
	approver := s.approver
	if approver == nil {
		approver = AutoApprove
	}
	ok, err := approver(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if !ok {
		return nil, ErrRejected
	}
	return ed25519.Sign(s.key, payload), nil
}
