package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultVerifyTimeout bounds the remote verification call. The store and
// cache layers have no timeouts of their own; a hung verification request
// must not block the caller indefinitely.
const DefaultVerifyTimeout = 10 * time.Second

// VerifyResult is the normalized response of the remote verification
// endpoint. ExpiresAt is Unix milliseconds; zero means no expiry.
type VerifyResult struct {
	Valid     bool     `json:"valid"`
	Tier      string   `json:"tier"`
	Features  []string `json:"features,omitempty"`
	ExpiresAt int64    `json:"expiresAt,omitempty"`
}

// Verifier performs the remote license verification call.
type Verifier interface {
	Verify(ctx context.Context, licenseKey string) (*VerifyResult, error)
}

// HTTPVerifier verifies keys via `POST <endpoint>` with a JSON body of
// `{"licenseKey": <key>}`.
type HTTPVerifier struct {
	endpoint string
	client   *http.Client
}

// HTTPVerifierOption configures an HTTPVerifier.
type HTTPVerifierOption func(*verifierConfig)

type verifierConfig struct {
	client  *http.Client
	timeout time.Duration
}

// WithHTTPClient replaces the default HTTP client. The caller's client is
// used as is.
func WithHTTPClient(client *http.Client) HTTPVerifierOption {
	return func(c *verifierConfig) {
		if client != nil {
			c.client = client
		}
	}
}

// WithVerifyTimeout overrides the default client's timeout. Ignored when
// a custom client is supplied via WithHTTPClient, regardless of option
// order.
func WithVerifyTimeout(timeout time.Duration) HTTPVerifierOption {
	return func(c *verifierConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewHTTPVerifier creates a verifier for the given endpoint. Panics on an
// empty endpoint to fail fast during wiring.
func NewHTTPVerifier(endpoint string, opts ...HTTPVerifierOption) *HTTPVerifier {
	if endpoint == "" {
		panic(ErrEmptyEndpoint)
	}

	c := verifierConfig{timeout: DefaultVerifyTimeout}
	for _, opt := range opts {
		opt(&c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}

	return &HTTPVerifier{
		endpoint: endpoint,
		client:   c.client,
	}
}

type verifyRequest struct {
	LicenseKey string `json:"licenseKey"`
}

// Verify posts the key to the verification endpoint. Any transport error
// or non-2xx status yields an error wrapping ErrVerificationFailed; the
// caller owns the fallback chain.
func (v *HTTPVerifier) Verify(ctx context.Context, licenseKey string) (*VerifyResult, error) {
	body, err := json.Marshal(verifyRequest{LicenseKey: licenseKey})
	if err != nil {
		return nil, errors.Join(ErrVerificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Join(ErrVerificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Join(ErrVerificationFailed,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var result VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Join(ErrVerificationFailed, err)
	}
	return &result, nil
}
