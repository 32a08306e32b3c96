package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"pixelmint/internal/encoder"
	"pixelmint/internal/identity"
	"pixelmint/internal/ledger"
	"pixelmint/internal/logging"
	"pixelmint/internal/raster"
	"pixelmint/internal/record"
)

// Encoder turns a raster into an image asset.
type Encoder interface {
	Encode(raster.Raster) (encoder.Asset, error)
}

// AssetPublisher durably stores an image and returns its locator.
type AssetPublisher interface {
	PublishAsset(ctx context.Context, asset encoder.Asset, displayName string) (string, error)
}

// Connector is implemented by publishers that need a connection step before
// the first upload.
type Connector interface {
	Connect(ctx context.Context) error
}

// RecordPublisher durably stores a description record and returns its locator.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, doc record.Document) (string, error)
}

// Committer registers a record on a ledger.
type Committer interface {
	Commit(ctx context.Context, reg ledger.Registration, signer identity.Signer) (ledger.Receipt, error)
}

// Dependencies are the collaborators of an attempt. All are required.
type Dependencies struct {
	Identity identity.Provider
	Encoder  Encoder
	Assets   AssetPublisher
	Records  RecordPublisher
	Ledger   Committer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSleeper routes every wait through s.
func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sleeper = s
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTemplate sets the fixed record fields.
func WithTemplate(tmpl record.Template, mutable bool) Option {
	return func(p *Pipeline) {
		p.template = tmpl
		p.mutable = mutable
	}
}

// WithNameSource reads asset name entropy from src.
func WithNameSource(src io.Reader) Option {
	return func(p *Pipeline) { p.nameSource = src }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs publication attempts. It holds no per-attempt state, so
// attempts may run concurrently.
type Pipeline struct {
	deps       Dependencies
	policy     Policy
	template   record.Template
	mutable    bool
	sleeper    Sleeper
	logger     *slog.Logger
	nameSource io.Reader
	now        func() time.Time
}

// New validates deps and policy and constructs a Pipeline.
func New(deps Dependencies, policy Policy, opts ...Option) (*Pipeline, error) {
	switch {
	case deps.Identity == nil:
		return nil, errors.New("publish: identity provider is required")
	case deps.Encoder == nil:
		return nil, errors.New("publish: encoder is required")
	case deps.Assets == nil:
		return nil, errors.New("publish: asset publisher is required")
	case deps.Records == nil:
		return nil, errors.New("publish: record publisher is required")
	case deps.Ledger == nil:
		return nil, errors.New("publish: committer is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	p := &Pipeline{
		deps:    deps,
		policy:  policy,
		sleeper: timerSleeper{},
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Policy returns the pipeline's timing policy.
func (p *Pipeline) Policy() Policy { return p.policy }

// Run performs one attempt synchronously. On failure the returned error is
// an *Error.
func (p *Pipeline) Run(ctx context.Context, r raster.Raster, observers ...Observer) (Confirmation, error) {
	a := p.newAttempt(observers)
	conf, perr := a.run(ctx, r)
	if perr != nil {
		return Confirmation{}, perr
	}
	return conf, nil
}

// Start performs one attempt on its own goroutine. The channel delivers every
// event and is closed after the terminal one; it is buffered so an attempt
// never waits on a slow reader.
func (p *Pipeline) Start(ctx context.Context, r raster.Raster) <-chan Event {
	events := make(chan Event, len(Phases())+p.policy.MaxRecordAttempts)
	go func() {
		defer close(events)
		_, _ = p.Run(ctx, r, ObserverFunc(func(e Event) { events <- e }))
	}()
	return events
}
