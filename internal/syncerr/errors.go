// Package syncerr defines the typed failure taxonomy for the sync engine.
// Tasks classify a fetch or write failure to pick per-account remediation:
// credential failures flip the account health flag, transient failures are
// skipped until the job's next firing, permanent failures mark the record
// processed so it is never retried.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a sync failure
type Kind string

const (
	// KindCredential means the stored refresh credential was rejected.
	// The account must re-authenticate; it is excluded from future runs.
	KindCredential Kind = "credential"
	// KindTransient means a timeout, 5xx or malformed page. The job's next
	// scheduled firing is the retry.
	KindTransient Kind = "transient"
	// KindPermanent means the record itself is dead (e.g. a contract that
	// 404s forever) and must be flagged so it is not retried indefinitely.
	KindPermanent Kind = "permanent"
)

// FetchError is raised when credential refresh or a remote call fails.
// It carries the account identity and underlying cause so the caller can
// decide per-account remediation.
type FetchError struct {
	CharacterID int64
	Operation   string
	Kind        Kind
	Cause       error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.CharacterID != 0 {
		return fmt.Sprintf("%s fetch failed (%s) for character %d: %v", e.Operation, e.Kind, e.CharacterID, e.Cause)
	}
	return fmt.Sprintf("%s fetch failed (%s): %v", e.Operation, e.Kind, e.Cause)
}

// Unwrap returns the underlying cause
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewCredentialError creates a credential-class fetch error
func NewCredentialError(characterID int64, operation string, cause error) *FetchError {
	return &FetchError{
		CharacterID: characterID,
		Operation:   operation,
		Kind:        KindCredential,
		Cause:       cause,
	}
}

// NewTransientError creates a transient fetch error
func NewTransientError(characterID int64, operation string, cause error) *FetchError {
	return &FetchError{
		CharacterID: characterID,
		Operation:   operation,
		Kind:        KindTransient,
		Cause:       cause,
	}
}

// NewPermanentError creates a permanent record error
func NewPermanentError(characterID int64, operation string, cause error) *FetchError {
	return &FetchError{
		CharacterID: characterID,
		Operation:   operation,
		Kind:        KindPermanent,
		Cause:       cause,
	}
}

// KindOf returns the failure kind of err, or KindTransient when err is not a
// FetchError. Unknown failures must never flip health flags or skip records
// forever, so transient is the safe default.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}

// IsCredential reports whether err is a credential-class failure
func IsCredential(err error) bool {
	return KindOf(err) == KindCredential
}

// IsPermanent reports whether err is a permanent record failure
func IsPermanent(err error) bool {
	return KindOf(err) == KindPermanent
}
