package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	// ErrorConflict means the caller's updatedOn no longer matches the row.
	ErrorConflict     = errors.New("record was modified by another user, reload and try again")
	ErrorUnauthorized = errors.New("unauthorized")
)

// InputError carries a message that is returned to the caller verbatim with
// status 400.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func NewInputError(msg string) error {
	return &InputError{Message: msg}
}

func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

type messageError struct {
	msg  string
	kind error
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.kind }

// WithMessage wraps one of the sentinels above with the text shown to the
// caller. errors.Is still matches the sentinel.
func WithMessage(kind error, msg string) error {
	return &messageError{msg: msg, kind: kind}
}
