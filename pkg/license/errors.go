package license

import "errors"

var (
	// ErrEmptyLicenseKey indicates activation was attempted with a blank key.
	ErrEmptyLicenseKey = errors.New("license: empty license key")

	// ErrLicenseInvalid indicates the remote endpoint rejected the key.
	ErrLicenseInvalid = errors.New("license: license key is not valid")

	// ErrVerificationFailed indicates the remote verification call could
	// not be completed (network failure or non-2xx response).
	ErrVerificationFailed = errors.New("license: verification request failed")

	// ErrEmptyEndpoint indicates the HTTP verifier was constructed without
	// a verification endpoint.
	ErrEmptyEndpoint = errors.New("license: empty verification endpoint")
)
