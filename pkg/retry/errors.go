package retry

import "errors"

var (
	// ErrExhausted is returned when every allowed attempt has failed.
	ErrExhausted = errors.New("retry attempts exhausted")

	// ErrInvalidPolicy is returned for a policy that allows no attempts.
	ErrInvalidPolicy = errors.New("retry policy must allow at least one attempt")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
