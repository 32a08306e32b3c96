// Package registry is the local, SQLite-backed ledger. It verifies each
// signed registration, refuses reused nonces, and assigns ids derived from
// the signed bytes.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pixelmint/internal/identity"
	"pixelmint/internal/ledger"
	"pixelmint/internal/logging"
	"pixelmint/internal/services"
	"pixelmint/internal/store"
)

// Registry commits registrations to the local database.
type Registry struct {
	store  *store.Store
	now    func() time.Time
	logger *slog.Logger
}

// New constructs a registry over st.
func New(st *store.Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:  st,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "registry"),
	}
}

// Commit signs reg with signer and records it.
func (r *Registry) Commit(ctx context.Context, reg ledger.Registration, signer identity.Signer) (ledger.Receipt, error) {
	sub, err := ledger.Sign(ctx, reg, signer)
	if err != nil {
		return ledger.Receipt{}, err
	}
	return r.Submit(ctx, sub)
}

// Submit verifies and records an already signed registration.
func (r *Registry) Submit(ctx context.Context, sub ledger.Submission) (ledger.Receipt, error) {
	reg, err := ledger.Verify(sub)
	if err != nil {
		return ledger.Receipt{}, services.Wrap(services.ErrRejected, "registry", "verify", "registration refused", err)
	}

	receipt := ledger.Receipt{
		ID:          ledger.RegistrationID(sub),
		Owner:       reg.Owner,
		SubmittedAt: r.now().UTC(),
	}
	err = r.store.InsertRegistration(ctx, store.RegistrationRow{
		ID:            receipt.ID,
		Nonce:         reg.Nonce,
		Owner:         reg.Owner,
		Name:          reg.Name,
		RecordLocator: reg.RecordLocator,
		Payload:       sub.Payload,
		Signature:     sub.Signature,
		PublicKey:     sub.PublicKey,
		SubmittedAt:   receipt.SubmittedAt,
	})
	if errors.Is(err, store.ErrDuplicateNonce) {
		return ledger.Receipt{}, services.Wrap(services.ErrRejected, "registry", "record", "nonce already registered", err)
	}
	if err != nil {
		return ledger.Receipt{}, services.Wrap(services.ErrTransient, "registry", "record", "store registration", err)
	}

	r.logger.Info("registration recorded",
		logging.String("registration_id", receipt.ID),
		logging.String("name", reg.Name),
		logging.String("owner", reg.Owner),
	)
	return receipt, nil
}

// Lookup returns the registration stored under id.
func (r *Registry) Lookup(ctx context.Context, id string) (ledger.Registration, error) {
	row, err := r.store.GetRegistration(ctx, id)
	if err != nil {
		return ledger.Registration{}, err
	}
	return ledger.DecodePayload(row.Payload)
}

// HealthCheck verifies the backing database.
func (r *Registry) HealthCheck(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return services.Wrap(services.ErrTransient, "registry", "health", "ledger database unavailable", err)
	}
	return nil
}
