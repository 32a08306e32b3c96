package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Publication is a confirmed publication recorded by the host.
type Publication struct {
	ID             int64     `json:"id"`
	AttemptID      string    `json:"attempt_id"`
	Name           string    `json:"name"`
	RegistrationID string    `json:"registration_id"`
	ImageLocator   string    `json:"image"`
	RecordLocator  string    `json:"record"`
	Owner          string    `json:"owner"`
	RecordAttempts int       `json:"record_attempts"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordPublication appends p to the history and returns it with ID and timestamp set.
func (s *Store) RecordPublication(ctx context.Context, p Publication) (Publication, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO publications (
            attempt_id, name, registration_id, image_locator, record_locator,
            owner, record_attempts, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.AttemptID, p.Name, p.RegistrationID, p.ImageLocator, p.RecordLocator,
		p.Owner, p.RecordAttempts, p.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return Publication{}, fmt.Errorf("insert publication: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Publication{}, fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return p, nil
}

// ListPublications returns the newest publications first. A limit <= 0 returns all.
func (s *Store) ListPublications(ctx context.Context, limit int) ([]Publication, error) {
	query := `SELECT id, attempt_id, name, registration_id, image_locator, record_locator,
        owner, record_attempts, created_at FROM publications ORDER BY created_at DESC, id DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		var (
			p          Publication
			createdRaw string
		)
		if err := rows.Scan(&p.ID, &p.AttemptID, &p.Name, &p.RegistrationID, &p.ImageLocator,
			&p.RecordLocator, &p.Owner, &p.RecordAttempts, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			p.CreatedAt = created
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
