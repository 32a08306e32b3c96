package publish_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"pixelmint/internal/identity"
	"pixelmint/internal/ledger"
	"pixelmint/internal/publish"
	"pixelmint/internal/raster"
	"pixelmint/internal/record"
	"pixelmint/internal/services"
)

type harness struct {
	provider  stubProvider
	encoder   *stubEncoder
	assets    *stubAssets
	records   *stubRecords
	committer *stubCommitter
	sleeper   *recordingSleeper
	policy    publish.Policy
	names     io.Reader
}

func newHarness() *harness {
	return &harness{
		provider:  stubProvider{authorized: true},
		encoder:   goodEncoder(),
		assets:    &stubAssets{locator: "https://gw.example.test/img"},
		records:   &stubRecords{locator: "https://gw.example.test/rec"},
		committer: &stubCommitter{receipt: ledger.Receipt{ID: "reg-1", Owner: "owner-address"}},
		sleeper:   &recordingSleeper{},
		policy:    publish.DefaultPolicy(),
		names:     bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}),
	}
}

func (h *harness) pipeline(t *testing.T) *publish.Pipeline {
	t.Helper()
	p, err := publish.New(publish.Dependencies{
		Identity: h.provider,
		Encoder:  h.encoder,
		Assets:   h.assets,
		Records:  h.records,
		Ledger:   h.committer,
	}, h.policy,
		publish.WithSleeper(h.sleeper),
		publish.WithTemplate(record.Template{Symbol: "PXCAN", Description: "Pixel art"}, true),
		publish.WithNameSource(h.names),
	)
	if err != nil {
		t.Fatalf("publish.New: %v", err)
	}
	return p
}

type eventLog struct {
	events []publish.Event
}

func (l *eventLog) Observe(e publish.Event) { l.events = append(l.events, e) }

func (l *eventLog) phases() []publish.Phase {
	out := make([]publish.Phase, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Phase)
	}
	return out
}

func samePhases(a, b []publish.Phase) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameDelays(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunSucceeds(t *testing.T) {
	h := newHarness()
	log := &eventLog{}

	conf, err := h.pipeline(t).Run(context.Background(), raster.Blank(), log)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := publish.Confirmation{
		Name:     "ABCDE",
		ID:       "reg-1",
		Image:    "https://gw.example.test/img",
		Record:   "https://gw.example.test/rec",
		Owner:    "owner-address",
		Attempts: 1,
	}
	if conf != want {
		t.Fatalf("confirmation = %+v, want %+v", conf, want)
	}

	wantPhases := []publish.Phase{
		publish.PhaseIdle,
		publish.PhaseRendering,
		publish.PhaseConnecting,
		publish.PhaseUploadingAsset,
		publish.PhaseAwaitingAssetPropagation,
		publish.PhasePreparingRecord,
		publish.PhaseUploadingRecord,
		publish.PhaseAwaitingRecordPropagation,
		publish.PhaseCommitting,
		publish.PhaseSucceeded,
	}
	if got := log.phases(); !samePhases(got, wantPhases) {
		t.Fatalf("phases = %v, want %v", got, wantPhases)
	}
	for _, e := range log.events {
		if e.Message != e.Phase.Message(e.RecordAttempt, e.MaxRecordAttempts) {
			t.Fatalf("event %s carried message %q", e.Phase, e.Message)
		}
		if e.AttemptID != log.events[0].AttemptID {
			t.Fatal("expected one attempt id across events")
		}
	}
	last := log.events[len(log.events)-1]
	if last.Outcome == nil || last.Outcome.Confirmation == nil || last.Outcome.Err != nil {
		t.Fatalf("expected success outcome on terminal event, got %+v", last.Outcome)
	}
	for _, e := range log.events[:len(log.events)-1] {
		if e.Outcome != nil {
			t.Fatalf("non-terminal event %s carried an outcome", e.Phase)
		}
	}

	if h.assets.connectCalls != 1 || h.assets.calls != 1 {
		t.Fatalf("expected one connect and one asset upload, got %d/%d", h.assets.connectCalls, h.assets.calls)
	}
	if h.assets.displayNames[0] != "ABCDE.png" {
		t.Fatalf("unexpected display name %q", h.assets.displayNames[0])
	}

	doc := h.records.docs[0]
	if doc.Record.Image != conf.Image {
		t.Fatalf("record image %q, want asset locator %q", doc.Record.Image, conf.Image)
	}
	if doc.Record.Properties.Files[0].Type != "image/png" {
		t.Fatalf("unexpected file type %q", doc.Record.Properties.Files[0].Type)
	}
	if len(doc.Record.Properties.Creators) != 1 || doc.Record.Properties.Creators[0].Address != "owner-address" {
		t.Fatalf("unexpected creators %+v", doc.Record.Properties.Creators)
	}

	if len(h.committer.regs) != 1 {
		t.Fatalf("expected one commit, got %d", len(h.committer.regs))
	}
	reg := h.committer.regs[0]
	if reg.RecordLocator != conf.Record {
		t.Fatalf("registration targets %q, want record locator %q", reg.RecordLocator, conf.Record)
	}
	if reg.Nonce != log.events[0].AttemptID || reg.Name != "ABCDE" || reg.Symbol != "PXCAN" || !reg.Mutable {
		t.Fatalf("unexpected registration %+v", reg)
	}

	wantDelays := []time.Duration{3 * time.Second, 8 * time.Second}
	if got := h.sleeper.snapshot(); !sameDelays(got, wantDelays) {
		t.Fatalf("delays = %v, want %v", got, wantDelays)
	}
}

func TestRecordRetriesWithLinearBackoff(t *testing.T) {
	h := newHarness()
	h.records.failures = 2
	log := &eventLog{}

	conf, err := h.pipeline(t).Run(context.Background(), raster.Blank(), log)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if conf.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", conf.Attempts)
	}

	wantDelays := []time.Duration{3 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if got := h.sleeper.snapshot(); !sameDelays(got, wantDelays) {
		t.Fatalf("delays = %v, want %v", got, wantDelays)
	}

	if len(h.records.bodies) != 3 {
		t.Fatalf("expected 3 record uploads, got %d", len(h.records.bodies))
	}
	for i, body := range h.records.bodies[1:] {
		if !bytes.Equal(body, h.records.bodies[0]) {
			t.Fatalf("retry %d sent a different body", i+2)
		}
	}

	var messages []string
	for _, e := range log.events {
		if e.Phase == publish.PhaseUploadingRecord {
			messages = append(messages, e.Message)
		}
	}
	want := []string{"Uploading metadata (1/3)...", "Uploading metadata (2/3)...", "Uploading metadata (3/3)..."}
	if strings.Join(messages, "|") != strings.Join(want, "|") {
		t.Fatalf("record messages = %v, want %v", messages, want)
	}
}

func TestRecordExhaustionSkipsCommit(t *testing.T) {
	h := newHarness()
	h.records.failures = 10
	log := &eventLog{}

	_, err := h.pipeline(t).Run(context.Background(), raster.Blank(), log)
	perr, ok := publish.AsError(err)
	if !ok {
		t.Fatalf("expected *publish.Error, got %v", err)
	}
	if !errors.Is(err, publish.ErrPublish) || perr.Stage != publish.StageRecord || perr.Attempts != 3 {
		t.Fatalf("unexpected error %+v", perr)
	}
	if perr.Phase != publish.PhaseUploadingRecord {
		t.Fatalf("failed phase = %s", perr.Phase)
	}
	if len(h.committer.regs) != 0 {
		t.Fatal("committer must not run after record exhaustion")
	}
	wantDelays := []time.Duration{3 * time.Second, 2 * time.Second, 4 * time.Second}
	if got := h.sleeper.snapshot(); !sameDelays(got, wantDelays) {
		t.Fatalf("delays = %v, want %v", got, wantDelays)
	}
	if perr.Hint == "" || perr.Hint != publish.HintFor("storage") {
		t.Fatalf("expected storage hint for %q, got %q", perr.Err, perr.Hint)
	}

	retries := 0
	for _, entry := range perr.Diagnostics {
		if entry.Message == "record upload attempt failed" {
			retries++
		}
	}
	if retries != 3 {
		t.Fatalf("expected 3 retry diagnostics, got %d", retries)
	}

	last := log.events[len(log.events)-1]
	if last.Phase != publish.PhaseFailed || last.Outcome == nil || last.Outcome.Err != perr || last.Outcome.Confirmation != nil {
		t.Fatalf("unexpected terminal event %+v", last)
	}
}

func TestUnauthorizedMakesNoCalls(t *testing.T) {
	h := newHarness()
	h.provider = stubProvider{authorized: false}
	log := &eventLog{}

	_, err := h.pipeline(t).Run(context.Background(), raster.Blank(), log)
	if !errors.Is(err, publish.ErrAuthorization) || !errors.Is(err, identity.ErrNoIdentity) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if h.encoder.calls != 0 || h.assets.connectCalls != 0 || h.assets.calls != 0 || len(h.records.bodies) != 0 || len(h.committer.regs) != 0 {
		t.Fatal("expected no collaborator calls without identity")
	}
	if got := log.phases(); !samePhases(got, []publish.Phase{publish.PhaseIdle, publish.PhaseFailed}) {
		t.Fatalf("phases = %v", got)
	}
	perr, _ := publish.AsError(err)
	if perr.Hint == "" {
		t.Fatal("expected identity hint")
	}
}

func TestEncodingFailureStopsBeforeNetwork(t *testing.T) {
	h := newHarness()
	h.encoder.asset.Data = []byte("GIF89a")

	_, err := h.pipeline(t).Run(context.Background(), raster.Blank())
	if !errors.Is(err, publish.ErrEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	if h.assets.connectCalls != 0 || h.assets.calls != 0 {
		t.Fatal("expected no network calls after encoding failure")
	}
}

func TestHintComesFromCauseNotPhase(t *testing.T) {
	h := newHarness()
	h.assets.err = errors.New("connection reset by peer")

	_, err := h.pipeline(t).Run(context.Background(), raster.Blank())
	perr, ok := publish.AsError(err)
	if !ok || perr.Phase != publish.PhaseUploadingAsset {
		t.Fatalf("expected failure while uploading the asset, got %v", err)
	}
	if perr.Hint != "" {
		t.Fatalf("expected no hint for %q, got %q", perr.Err, perr.Hint)
	}
}

func TestNameSourceFailureIsAssetPublishError(t *testing.T) {
	h := newHarness()
	h.names = iotest.ErrReader(errors.New("entropy unavailable"))

	_, err := h.pipeline(t).Run(context.Background(), raster.Blank())
	perr, ok := publish.AsError(err)
	if !ok || perr.Kind != publish.KindPublish || perr.Stage != publish.StageAsset {
		t.Fatalf("expected asset publish error, got %v", err)
	}
	if errors.Is(err, publish.ErrEncoding) {
		t.Fatal("name generation failure must not be reported as encoding")
	}
	if h.assets.connectCalls != 0 || h.assets.calls != 0 {
		t.Fatal("expected no network calls without a name")
	}
}

func TestConnectFailureIsAssetPublishError(t *testing.T) {
	h := newHarness()
	h.assets.connectErr = errors.New("network unreachable")

	_, err := h.pipeline(t).Run(context.Background(), raster.Blank())
	perr, ok := publish.AsError(err)
	if !ok || perr.Kind != publish.KindPublish || perr.Stage != publish.StageAsset {
		t.Fatalf("expected asset publish error, got %v", err)
	}
	if h.assets.calls != 0 {
		t.Fatal("asset upload must not run after connect failure")
	}
}

func TestAssetFailureIsNotRetried(t *testing.T) {
	h := newHarness()
	h.assets.err = services.Wrap(services.ErrTransient, "gateway", "upload asset", "storage gateway returned 503", nil)

	_, err := h.pipeline(t).Run(context.Background(), raster.Blank())
	perr, ok := publish.AsError(err)
	if !ok || perr.Stage != publish.StageAsset || perr.Phase != publish.PhaseUploadingAsset {
		t.Fatalf("expected asset publish error, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected underlying cause to be preserved")
	}
	if h.assets.calls != 1 || len(h.records.bodies) != 0 {
		t.Fatalf("expected a single asset upload and no record uploads, got %d/%d", h.assets.calls, len(h.records.bodies))
	}
	if len(h.sleeper.snapshot()) != 0 {
		t.Fatal("expected no waits after asset failure")
	}
}

func TestCommitFailuresAreClassified(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "user rejection", err: identity.ErrRejected, want: publish.ErrAuthorization},
		{name: "missing signer", err: identity.ErrNoIdentity, want: publish.ErrAuthorization},
		{name: "ledger rejection", err: services.Wrap(services.ErrRejected, "registry", "record", "nonce already registered", nil), want: publish.ErrCommit},
		{name: "transport", err: errors.New("connection reset"), want: publish.ErrCommit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			h.committer.err = tc.err

			_, err := h.pipeline(t).Run(context.Background(), raster.Blank())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(h.committer.regs) != 1 {
				t.Fatalf("expected exactly one commit, got %d", len(h.committer.regs))
			}
			perr, _ := publish.AsError(err)
			if perr.Phase != publish.PhaseCommitting {
				t.Fatalf("failed phase = %s", perr.Phase)
			}
		})
	}
}

func TestCancellationBeforeUploadStopsAttempt(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline(t).Run(ctx, raster.Blank())
	if !errors.Is(err, context.Canceled) || !errors.Is(err, publish.ErrPublish) {
		t.Fatalf("expected cancelled publish error, got %v", err)
	}
	if h.assets.connectCalls != 0 || h.assets.calls != 0 {
		t.Fatal("expected no network calls after cancellation")
	}
}

func TestCancellationAfterUploadIsIgnored(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.assets.onPublish = cancel

	conf, err := h.pipeline(t).Run(ctx, raster.Blank())
	if err != nil {
		t.Fatalf("expected attempt to finish after upload began, got %v", err)
	}
	if conf.ID != "reg-1" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	for i, ctxErr := range h.sleeper.ctxErrs {
		if ctxErr != nil {
			t.Fatalf("wait %d saw cancelled context: %v", i, ctxErr)
		}
	}
}

func TestStartDeliversEventsThenCloses(t *testing.T) {
	h := newHarness()
	h.records.failures = 1

	var events []publish.Event
	for e := range h.pipeline(t).Start(context.Background(), raster.Blank()) {
		events = append(events, e)
	}
	if len(events) == 0 {
		t.Fatal("expected events")
	}
	last := events[len(events)-1]
	if !last.Phase.Terminal() || last.Outcome == nil || last.Outcome.Confirmation == nil {
		t.Fatalf("unexpected terminal event %+v", last)
	}
	if last.Outcome.Confirmation.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", last.Outcome.Confirmation.Attempts)
	}
}

func TestAttemptsUseDistinctIDs(t *testing.T) {
	h := newHarness()
	h.names = nil
	p := h.pipeline(t)
	first, second := &eventLog{}, &eventLog{}
	if _, err := p.Run(context.Background(), raster.Blank(), first); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	h.assets.locator = "https://gw.example.test/img2"
	if _, err := p.Run(context.Background(), raster.Blank(), second); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if first.events[0].AttemptID == second.events[0].AttemptID {
		t.Fatal("expected distinct attempt ids")
	}
	if h.committer.regs[0].Nonce == h.committer.regs[1].Nonce {
		t.Fatal("expected distinct registration nonces")
	}
}

func TestNewValidatesInputs(t *testing.T) {
	h := newHarness()
	deps := publish.Dependencies{
		Identity: h.provider,
		Encoder:  h.encoder,
		Assets:   h.assets,
		Records:  h.records,
	}
	if _, err := publish.New(deps, publish.DefaultPolicy()); err == nil {
		t.Fatal("expected error for missing committer")
	}
	deps.Ledger = h.committer
	bad := publish.DefaultPolicy()
	bad.MaxRecordAttempts = 0
	if _, err := publish.New(deps, bad); err == nil {
		t.Fatal("expected error for zero attempts")
	}
}
