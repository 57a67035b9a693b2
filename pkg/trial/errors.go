package trial

import "errors"

var (
	// ErrNoTrial indicates an operation that needs an existing trial record
	// found none.
	ErrNoTrial = errors.New("trial: no trial data found")
)
