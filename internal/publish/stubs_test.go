package publish_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/ed25519"

	"pixelmint/internal/encoder"
	"pixelmint/internal/identity"
	"pixelmint/internal/ledger"
	"pixelmint/internal/raster"
	"pixelmint/internal/record"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type stubSigner struct{}

func (stubSigner) Address() string              { return "owner-address" }
func (stubSigner) PublicKey() ed25519.PublicKey { return nil }
func (stubSigner) Sign(context.Context, identity.Intent, []byte) ([]byte, error) {
	return []byte("sig"), nil
}

type stubProvider struct {
	authorized bool
}

func (p stubProvider) IsAuthorized() bool { return p.authorized }

func (p stubProvider) Signer() (identity.Signer, error) {
	if !p.authorized {
		return nil, identity.ErrNoIdentity
	}
	return stubSigner{}, nil
}

type stubEncoder struct {
	asset encoder.Asset
	err   error
	calls int
}

func (e *stubEncoder) Encode(raster.Raster) (encoder.Asset, error) {
	e.calls++
	if e.err != nil {
		return encoder.Asset{}, e.err
	}
	return e.asset, nil
}

func goodEncoder() *stubEncoder {
	return &stubEncoder{asset: encoder.Asset{
		Data:      append(append([]byte(nil), pngMagic...), 1, 2, 3),
		MediaType: encoder.MediaTypePNG,
		Width:     640,
		Height:    640,
	}}
}

type stubAssets struct {
	locator      string
	err          error
	connectErr   error
	calls        int
	connectCalls int
	displayNames []string
	onPublish    func()
}

func (s *stubAssets) Connect(context.Context) error {
	s.connectCalls++
	return s.connectErr
}

func (s *stubAssets) PublishAsset(_ context.Context, _ encoder.Asset, displayName string) (string, error) {
	s.calls++
	s.displayNames = append(s.displayNames, displayName)
	if s.onPublish != nil {
		s.onPublish()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.locator, nil
}

type stubRecords struct {
	locator  string
	failures int
	err      error
	bodies   [][]byte
	docs     []record.Document
}

func (s *stubRecords) PublishRecord(_ context.Context, doc record.Document) (string, error) {
	s.bodies = append(s.bodies, doc.Body)
	s.docs = append(s.docs, doc)
	if len(s.bodies) <= s.failures {
		if s.err != nil {
			return "", s.err
		}
		return "", errors.New("metadata upload timed out")
	}
	return s.locator, nil
}

type stubCommitter struct {
	receipt ledger.Receipt
	err     error
	regs    []ledger.Registration
}

func (c *stubCommitter) Commit(_ context.Context, reg ledger.Registration, _ identity.Signer) (ledger.Receipt, error) {
	c.regs = append(c.regs, reg)
	if c.err != nil {
		return ledger.Receipt{}, c.err
	}
	return c.receipt, nil
}

type recordingSleeper struct {
	mu      sync.Mutex
	delays  []time.Duration
	ctxErrs []error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return nil
}

func (s *recordingSleeper) snapshot() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
