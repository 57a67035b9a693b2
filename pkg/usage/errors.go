package usage

import "errors"

var (
	// ErrFailedToLoadLimits indicates the limits source could not be read
	// at tracker construction.
	ErrFailedToLoadLimits = errors.New("usage: failed to load limits configuration")

	// ErrInvalidLimitsConfiguration indicates a rule with a limit below -1.
	ErrInvalidLimitsConfiguration = errors.New("usage: invalid limits configuration")
)
