package apiclient

import (
	"errors"
	"fmt"
)

// Kind classifies a failed exchange with the API.
type Kind int

const (
	// ValidationRejected: the server refused the payload. Message carries
	// the server's text unchanged.
	ValidationRejected Kind = iota + 1
	// Conflict: the updatedOn token is stale. Reload before retrying.
	Conflict
	// NotFound: the record no longer exists.
	NotFound
	// NetworkFailure: transport error or server fault. The same request may
	// be retried as is.
	NetworkFailure
	// Unauthenticated: no session, or the server refused the credential.
	Unauthenticated
)

func (k Kind) String() string {
	switch k {
	case ValidationRejected:
		return "ValidationRejected"
	case Conflict:
		return "Conflict"
	case NotFound:
		return "NotFound"
	case NetworkFailure:
		return "NetworkFailure"
	case Unauthenticated:
		return "Unauthenticated"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	ErrValidationRejected = errors.New("rejected by server")
	ErrConflict           = errors.New("record was changed by someone else")
	ErrNotFound           = errors.New("record not found")
	ErrNetworkFailure     = errors.New("network failure")
	ErrUnauthenticated    = errors.New("not signed in")

	// ErrSaveInFlight is returned when a save is requested while another
	// save of the same draft has not finished.
	ErrSaveInFlight = errors.New("a save is already in progress")
	// ErrDiscarded is returned for a save that finished after its draft was
	// discarded. The server outcome is not applied to anything.
	ErrDiscarded = errors.New("draft was discarded")
)

// SaveError is returned by every API call that reached a classified failure.
// errors.Is matches it against the sentinel of its Kind.
type SaveError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *SaveError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *SaveError) Unwrap() error { return e.Err }

func (e *SaveError) Is(target error) bool {
	switch target {
	case ErrValidationRejected:
		return e.Kind == ValidationRejected
	case ErrConflict:
		return e.Kind == Conflict
	case ErrNotFound:
		return e.Kind == NotFound
	case ErrNetworkFailure:
		return e.Kind == NetworkFailure
	case ErrUnauthenticated:
		return e.Kind == Unauthenticated
	}
	return false
}

// Retryable reports whether the identical request may simply be sent again.
func (e *SaveError) Retryable() bool { return e.Kind == NetworkFailure }

// KindOf returns the Kind of err, or 0 if err is not a *SaveError.
func KindOf(err error) Kind {
	var se *SaveError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// PartialSuccessError means the record was saved but a follow-up upload
// failed. The record is safe; only the asset is missing.
type PartialSuccessError struct {
	PrimaryKeyID int
	UpdatedOn    string
	Err          error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("record %d saved but image upload failed: %v", e.PrimaryKeyID, e.Err)
}

func (e *PartialSuccessError) Unwrap() error { return e.Err }
