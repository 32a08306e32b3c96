package publish

import (
	"context"
	"fmt"
	"time"
)

// Policy holds the timing and retry settings of an attempt.
type Policy struct {
	AssetPropagationDelay  time.Duration
	RecordPropagationDelay time.Duration
	MaxRecordAttempts      int
	RecordBackoffBase      time.Duration
}

// DefaultPolicy returns the production timings.
func DefaultPolicy() Policy {
	return Policy{
		AssetPropagationDelay:  3 * time.Second,
		RecordPropagationDelay: 8 * time.Second,
		MaxRecordAttempts:      3,
		RecordBackoffBase:      2 * time.Second,
	}
}

// Validate rejects policies an attempt cannot run with.
func (p Policy) Validate() error {
	if p.MaxRecordAttempts < 1 {
		return fmt.Errorf("max record attempts must be at least 1, got %d", p.MaxRecordAttempts)
	}
	if p.AssetPropagationDelay < 0 || p.RecordPropagationDelay < 0 || p.RecordBackoffBase < 0 {
		return fmt.Errorf("policy delays must not be negative")
	}
	return nil
}

// Backoff returns the wait after failed record attempt k.
func (p Policy) Backoff(k int) time.Duration {
	return time.Duration(k) * p.RecordBackoffBase
}

// Sleeper waits for a duration. The pipeline routes every delay through it.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
