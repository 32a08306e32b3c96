package publish

import "time"

// Confirmation describes a successful publication.
type Confirmation struct {
	Name string `json:"name"`
	// ID is the ledger registration id.
	ID string `json:"id"`
	// Image is the asset locator.
	Image string `json:"image"`
	// Record is the description record locator.
	Record string `json:"record"`
	Owner  string `json:"owner"`
	// Attempts is the number of record uploads it took.
	Attempts int `json:"attempts"`
}

// Outcome is the terminal result of an attempt. Exactly one field is set.
type Outcome struct {
	Confirmation *Confirmation
	Err          *Error
}

// Event reports a phase entry.
type Event struct {
	AttemptID         string
	Phase             Phase
	Message           string
	RecordAttempt     int
	MaxRecordAttempts int
	Time              time.Time
	// Outcome is set on the terminal event only.
	Outcome *Outcome
}

// Observer receives events in order.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f.
func (f ObserverFunc) Observe(e Event) { f(e) }
