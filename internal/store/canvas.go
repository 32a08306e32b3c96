package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"pixelmint/internal/raster"
	"pixelmint/internal/services"
)

// LoadCanvas returns the saved raster for key. Missing, undecodable, or
// malformed rows yield a blank raster with restored=false; only database
// failures are returned as errors.
func (s *Store) LoadCanvas(ctx context.Context, key string) (raster.Raster, bool, error) {
	var (
		width, height int
		pixelsJSON    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT width, height, pixels_json FROM canvases WHERE key = ?`, key,
	).Scan(&width, &height, &pixelsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return raster.Blank(), false, nil
	}
	if err != nil {
		return raster.Raster{}, false, fmt.Errorf("load canvas: %w", err)
	}

	loaded := raster.Raster{Width: width, Height: height}
	if err := json.Unmarshal([]byte(pixelsJSON), &loaded.Pixels); err != nil {
		return raster.Blank(), false, nil
	}
	clean, ok := raster.Sanitize(loaded)
	return clean, ok, nil
}

// SaveCanvas stores r under key, replacing any previous raster.
func (s *Store) SaveCanvas(ctx context.Context, key string, r raster.Raster) error {
	if !r.Valid() {
		return services.Wrap(services.ErrValidation, "store", "save canvas",
			fmt.Sprintf("raster %dx%d with %d cells is not a %dx%d canvas", r.Width, r.Height, len(r.Pixels), raster.Width, raster.Height), nil)
	}
	pixels, err := json.Marshal(r.Pixels)
	if err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO canvases (key, width, height, pixels_json, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET
             width = excluded.width, height = excluded.height,
             pixels_json = excluded.pixels_json, updated_at = excluded.updated_at`,
		key, r.Width, r.Height, string(pixels), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save canvas: %w", err)
	}
	return nil
}

// CanvasLock serializes read-modify-write edits of the saved canvas across
// processes.
type CanvasLock struct {
	lock *flock.Flock
}

// NewCanvasLock prepares a lock backed by the file at path.
func NewCanvasLock(path string) *CanvasLock {
	return &CanvasLock{lock: flock.New(path)}
}

// Acquire blocks until the lock is held or ctx ends.
func (l *CanvasLock) Acquire(ctx context.Context) error {
	ok, err := l.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire canvas lock: %w", err)
	}
	if !ok {
		return errors.New("canvas lock is held by another process")
	}
	return nil
}

// Release drops the lock.
func (l *CanvasLock) Release() error {
	return l.lock.Unlock()
}

// EditCanvas loads the canvas under the lock, applies edit, and saves the
// result. The edited raster is returned.
func (s *Store) EditCanvas(ctx context.Context, lock *CanvasLock, key string, edit func(*raster.Canvas) error) (raster.Raster, error) {
	if err := lock.Acquire(ctx); err != nil {
		return raster.Raster{}, err
	}
	defer func() { _ = lock.Release() }()

	current, _, err := s.LoadCanvas(ctx, key)
	if err != nil {
		return raster.Raster{}, err
	}
	canvas := raster.NewCanvas(current)
	if err := edit(canvas); err != nil {
		return raster.Raster{}, err
	}
	snapshot := canvas.Snapshot()
	if err := s.SaveCanvas(ctx, key, snapshot); err != nil {
		return raster.Raster{}, err
	}
	return snapshot, nil
}
