package schedule

import "errors"

var (
	// ErrMutationFailed is returned when a create or delete exhausted its retries.
	ErrMutationFailed = errors.New("schedule: mutation failed")

	// ErrStoreNil is returned when the registry is built without a store.
	ErrStoreNil = errors.New("schedule: store cannot be nil")
)
