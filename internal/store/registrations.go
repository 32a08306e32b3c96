package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pixelmint/internal/services"
)

// ErrDuplicateNonce is returned when a registration reuses a nonce.
var ErrDuplicateNonce = errors.New("registration nonce already used")

// RegistrationRow is a registration accepted by the local ledger.
type RegistrationRow struct {
	ID            string
	Nonce         string
	Owner         string
	Name          string
	RecordLocator string
	Payload       []byte
	Signature     []byte
	PublicKey     []byte
	SubmittedAt   time.Time
}

// InsertRegistration stores row. A reused nonce or id fails with ErrDuplicateNonce.
func (s *Store) InsertRegistration(ctx context.Context, row RegistrationRow) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO registrations (
            id, nonce, owner, name, record_locator, payload, signature, public_key, submitted_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Nonce, row.Owner, row.Name, row.RecordLocator,
		row.Payload, row.Signature, row.PublicKey, row.SubmittedAt.UTC().Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateNonce, row.Nonce)
	}
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetRegistration fetches a registration by id.
func (s *Store) GetRegistration(ctx context.Context, id string) (RegistrationRow, error) {
	var (
		row          RegistrationRow
		submittedRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nonce, owner, name, record_locator, payload, signature, public_key, submitted_at
         FROM registrations WHERE id = ?`, id,
	).Scan(&row.ID, &row.Nonce, &row.Owner, &row.Name, &row.RecordLocator,
		&row.Payload, &row.Signature, &row.PublicKey, &submittedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return RegistrationRow{}, services.Wrap(services.ErrNotFound, "store", "get registration", id, nil)
	}
	if err != nil {
		return RegistrationRow{}, fmt.Errorf("get registration: %w", err)
	}
	if submitted, err := parseTimeString(submittedRaw); err == nil {
		row.SubmittedAt = submitted
	}
	return row, nil
}

// CountRegistrations returns how many registrations owner holds. An empty
// owner counts all registrations.
func (s *Store) CountRegistrations(ctx context.Context, owner string) (int, error) {
	var (
		count int
		err   error
	)
	if owner == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM registrations`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM registrations WHERE owner = ?`, owner).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}
