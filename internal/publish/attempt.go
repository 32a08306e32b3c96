package publish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pixelmint/internal/encoder"
	"pixelmint/internal/identity"
	"pixelmint/internal/ledger"
	"pixelmint/internal/logging"
	"pixelmint/internal/raster"
	"pixelmint/internal/record"
	"pixelmint/internal/services"
)

const journalCapacity = 128

type attempt struct {
	p         *Pipeline
	id        string
	journal   *logging.Journal
	logger    *slog.Logger
	observers []Observer

	phase         Phase
	recordAttempt int
}

func (p *Pipeline) newAttempt(observers []Observer) *attempt {
	id := uuid.NewString()
	journal := logging.NewJournal(journalCapacity)
	logger := logging.TeeLogger(p.logger, journal.Handler(slog.LevelDebug)).With(
		logging.String(logging.FieldComponent, "publish"),
		logging.String(logging.FieldAttemptID, id),
	)
	return &attempt{p: p, id: id, journal: journal, logger: logger, observers: observers}
}

func (a *attempt) run(ctx context.Context, r raster.Raster) (Confirmation, *Error) {
	p := a.p
	ctx = services.WithAttemptID(ctx, a.id)

	a.enter(ctx, PhaseIdle)
	if !p.deps.Identity.IsAuthorized() {
		return Confirmation{}, a.fail(ctx, KindAuthorization, "", 0, identity.ErrNoIdentity)
	}
	signer, err := p.deps.Identity.Signer()
	if err != nil {
		return Confirmation{}, a.fail(ctx, KindAuthorization, "", 0, err)
	}

	a.enter(ctx, PhaseRendering)
	asset, err := p.deps.Encoder.Encode(r)
	if err == nil {
		err = encoder.VerifySignature(asset.Data, asset.MediaType)
	}
	if err != nil {
		return Confirmation{}, a.fail(ctx, KindEncoding, "", 0, err)
	}
	// The name is the asset's upload file name, so without one the asset
	// cannot be published.
	name, err := record.NewName(p.nameSource)
	if err != nil {
		return Confirmation{}, a.fail(ctx, KindPublish, StageAsset, 0, err)
	}
	a.log(ctx).Info("asset rendered",
		logging.String("name", name),
		logging.Int("bytes", len(asset.Data)),
		logging.Int("width", asset.Width),
		logging.Int("height", asset.Height),
	)

	if err := ctx.Err(); err != nil {
		return Confirmation{}, a.fail(ctx, KindPublish, StageAsset, 0, err)
	}
	a.enter(ctx, PhaseConnecting)
	if c, ok := p.deps.Assets.(Connector); ok {
		if err := c.Connect(ctx); err != nil {
			return Confirmation{}, a.fail(ctx, KindPublish, StageAsset, 0, err)
		}
	}

	// Past this point the attempt runs to a terminal phase regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	a.enter(ctx, PhaseUploadingAsset)
	imageLocator, err := p.deps.Assets.PublishAsset(ctx, asset, name+".png")
	if err != nil {
		return Confirmation{}, a.fail(ctx, KindPublish, StageAsset, 0, err)
	}
	a.log(ctx).Info("asset uploaded", logging.String("image", imageLocator))

	a.enter(ctx, PhaseAwaitingAssetPropagation)
	a.wait(ctx, p.policy.AssetPropagationDelay)

	a.enter(ctx, PhasePreparingRecord)
	doc, err := record.Build(name, imageLocator, asset.MediaType, p.template, signer.Address())
	if err != nil {
		return Confirmation{}, a.fail(ctx, KindPublish, StageRecord, 0, err)
	}

	recordLocator, attempts, err := a.uploadRecord(ctx, doc)
	if err != nil {
		return Confirmation{}, a.fail(ctx, KindPublish, StageRecord, attempts, err)
	}

	a.enter(ctx, PhaseAwaitingRecordPropagation)
	a.wait(ctx, p.policy.RecordPropagationDelay)

	a.enter(ctx, PhaseCommitting)
	receipt, err := p.deps.Ledger.Commit(ctx, ledger.Registration{
		RecordLocator:        recordLocator,
		Name:                 name,
		Symbol:               p.template.Symbol,
		SellerFeeBasisPoints: p.template.SellerFeeBasisPoints,
		Creators:             []ledger.Creator{{Address: signer.Address(), Share: record.FullShare}},
		Mutable:              p.mutable,
		Nonce:                a.id,
	}, signer)
	if err != nil {
		if errors.Is(err, identity.ErrNoIdentity) || errors.Is(err, identity.ErrRejected) {
			return Confirmation{}, a.fail(ctx, KindAuthorization, "", 0, err)
		}
		return Confirmation{}, a.fail(ctx, KindCommit, "", 0, err)
	}

	owner := receipt.Owner
	if owner == "" {
		owner = signer.Address()
	}
	conf := Confirmation{
		Name:     name,
		ID:       receipt.ID,
		Image:    imageLocator,
		Record:   recordLocator,
		Owner:    owner,
		Attempts: attempts,
	}
	a.log(ctx).Info("publication registered",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.String("registration_id", conf.ID),
		logging.String("record", conf.Record),
	)
	a.finish(ctx, PhaseSucceeded, &Outcome{Confirmation: &conf})
	return conf, nil
}

// uploadRecord sends doc.Body unchanged on every try, waiting k*base after
// failed try k. It returns the number of tries used.
func (a *attempt) uploadRecord(ctx context.Context, doc record.Document) (string, int, error) {
	maxAttempts := a.p.policy.MaxRecordAttempts
	var lastErr error
	for k := 1; k <= maxAttempts; k++ {
		a.recordAttempt = k
		a.enter(ctx, PhaseUploadingRecord)
		locator, err := a.p.deps.Records.PublishRecord(ctx, doc)
		if err == nil {
			a.log(ctx).Info("record uploaded",
				logging.String("record", locator),
				logging.Int("record_attempt", k),
			)
			return locator, k, nil
		}
		lastErr = err
		logging.WarnWithContext(a.log(ctx), "record upload attempt failed", "record_upload_retry",
			logging.Int("record_attempt", k),
			logging.Int("max_record_attempts", maxAttempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "storage may be slow to accept uploads"),
			logging.String(logging.FieldImpact, "record upload will be retried"),
		)
		if k < maxAttempts {
			a.wait(ctx, a.p.policy.Backoff(k))
		}
	}
	return "", maxAttempts, lastErr
}

func (a *attempt) wait(ctx context.Context, d time.Duration) {
	if err := a.p.sleeper.Sleep(ctx, d); err != nil {
		a.log(ctx).Debug("wait ended early", logging.Duration("delay", d), logging.Error(err))
	}
}

func (a *attempt) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, a.logger)
}

func (a *attempt) enter(ctx context.Context, phase Phase) {
	a.phase = phase
	a.emit(services.WithPhase(ctx, string(phase)), phase, nil)
}

func (a *attempt) finish(ctx context.Context, phase Phase, outcome *Outcome) {
	a.phase = phase
	a.emit(services.WithPhase(ctx, string(phase)), phase, outcome)
}

func (a *attempt) emit(ctx context.Context, phase Phase, outcome *Outcome) {
	event := Event{
		AttemptID:         a.id,
		Phase:             phase,
		Message:           phase.Message(a.recordAttempt, a.p.policy.MaxRecordAttempts),
		RecordAttempt:     a.recordAttempt,
		MaxRecordAttempts: a.p.policy.MaxRecordAttempts,
		Time:              a.p.now(),
		Outcome:           outcome,
	}
	if phase != PhaseUploadingRecord {
		event.RecordAttempt = 0
	}
	a.log(ctx).Debug("phase entered", logging.String("status", event.Message))
	for _, obs := range a.observers {
		if obs != nil {
			obs.Observe(event)
		}
	}
}

func (a *attempt) fail(ctx context.Context, kind Kind, stage string, attempts int, cause error) *Error {
	perr := &Error{
		Kind:     kind,
		Stage:    stage,
		Attempts: attempts,
		Phase:    a.phase,
		Err:      cause,
	}
	if cause != nil {
		perr.Hint = HintFor(cause.Error())
	}
	attrs := []logging.Attr{
		logging.String("error_kind", string(kind)),
		logging.String("failed_phase", string(perr.Phase)),
		logging.Error(cause),
	}
	if perr.Hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, perr.Hint))
	}
	logging.ErrorWithContext(a.log(ctx), "publication failed", "publish_failure", attrs...)
	perr.Diagnostics = a.journal.Entries()
	a.finish(ctx, PhaseFailed, &Outcome{Err: perr})
	return perr
}
