package publish

import (
	"errors"
	"fmt"
	"strings"

	"pixelmint/internal/logging"
)

// Kind classifies a failed attempt.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindEncoding      Kind = "encoding"
	KindPublish       Kind = "publish"
	KindCommit        Kind = "commit"
)

// Markers matched by errors.Is against an *Error of the corresponding kind.
var (
	ErrAuthorization = errors.New("authorization error")
	ErrEncoding      = errors.New("encoding error")
	ErrPublish       = errors.New("publish error")
	ErrCommit        = errors.New("commit error")
)

// Publish stages.
const (
	StageAsset  = "asset"
	StageRecord = "record"
)

const (
	storageHint  = "This looks like a storage or upload problem. Check your network connection and the storage gateway, then try again."
	identityHint = "This looks like an identity problem. Check that your identity key is present and approve the signature request."
)

// Error is the failure outcome of an attempt.
type Error struct {
	Kind Kind
	// Stage is "asset" or "record" for publish errors.
	Stage string
	// Attempts is the number of record uploads tried; set for record publish errors.
	Attempts int
	Phase    Phase
	Err      error
	Hint     string
	// Diagnostics holds the attempt's captured log lines.
	Diagnostics []logging.Entry
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	switch {
	case e.Stage != "" && e.Attempts > 0:
		fmt.Fprintf(&b, " (%s, %d attempts)", e.Stage, e.Attempts)
	case e.Stage != "":
		fmt.Fprintf(&b, " (%s)", e.Stage)
	}
	if e.Phase != "" {
		fmt.Fprintf(&b, " during %s", e.Phase)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the kind marker and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.marker()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k Kind) marker() error {
	switch k {
	case KindAuthorization:
		return ErrAuthorization
	case KindEncoding:
		return ErrEncoding
	case KindPublish:
		return ErrPublish
	default:
		return ErrCommit
	}
}

// HintFor returns advisory text for an error message, or "" when none applies.
func HintFor(message string) string {
	lower := strings.ToLower(message)
	for _, word := range []string{"upload", "storage", "gateway"} {
		if strings.Contains(lower, word) {
			return storageHint
		}
	}
	for _, word := range []string{"identity", "wallet", "signature"} {
		if strings.Contains(lower, word) {
			return identityHint
		}
	}
	return ""
}

// AsError extracts the attempt failure from err.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
