// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package pki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crate-spec/scrate/log"
)

// DefaultTimeout is the per-attempt HTTP timeout used when no WithTimeout
// option is given.
const DefaultTimeout = 30 * time.Second

// DefaultRetryTimes is the retry count used when no WithRetry option is given.
const DefaultRetryTimes = 3

// DefaultRetryDelay is the fixed sleep between retry attempts when no
// WithRetry option is given.
const DefaultRetryDelay = 500 * time.Millisecond

// Error is returned for any non-2xx PKI response. A 2xx response whose JSON
// body cannot be decoded yields a plain wrapped error instead.
type Error struct {
	StatusCode int
	Body       string
}

// Error implements the error interface for Error
func (e *Error) Error() string {
	return fmt.Sprintf("pki error: status %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for a remote PKI service. It is safe to share
// read-only across PackageContexts: it holds only the base URL, retry
// parameters, an *http.Client, and an optional logger. SetLogger writes the
// logger field and is not synchronised.
type Client struct {
	baseURL    string
	retryTimes int
	retryDelay time.Duration
	httpClient *http.Client
	logger     log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout overrides the per-attempt timeout of the Client's http.Client.
// Options apply in order: a WithHTTPClient given after it replaces the client
// and discards the timeout, while a WithTimeout given after WithHTTPClient
// sets the Timeout of the supplied client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

// WithRetry overrides the retry count and fixed delay between attempts.
// retryTimes must be in 1..=100, delay in 1ms..=60s per the service contract;
// out-of-range values are clamped.
func WithRetry(retryTimes int, delay time.Duration) Option {
	return func(cl *Client) {
		if retryTimes < 1 {
			retryTimes = 1
		}
		if retryTimes > 100 {
			retryTimes = 100
		}
		if delay < time.Millisecond {
			delay = time.Millisecond
		}
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
		cl.retryTimes = retryTimes
		cl.retryDelay = delay
	}
}

// WithLogger attaches a logger used to trace request attempts and retries.
func WithLogger(l log.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// SetLogger attaches or replaces the logger used to trace request attempts
// and retries. Unlike WithLogger it applies to an already-constructed
// Client, which lets a caller propagate a PackageContext's Logger to a
// Client supplied before the Logger was known.
func (c *Client) SetLogger(l log.Logger) {
	c.logger = l
}

// NewClient returns a Client targeting baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		retryTimes: DefaultRetryTimes,
		retryDelay: DefaultRetryDelay,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchKeyPair calls POST /v1/keypair.
func (c *Client) FetchKeyPair(ctx context.Context, cfg BaseConfig) (*KeyPairResponse, error) {
	var resp KeyPairResponse
	if err := c.post(ctx, "/v1/keypair", KeyPairRequest{BaseConfig: cfg}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignDigest calls POST /v1/sign/digest.
func (c *Client) SignDigest(ctx context.Context, req SignDigestRequest) (*SignDigestResponse, error) {
	var resp SignDigestResponse
	if err := c.post(ctx, "/v1/sign/digest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyDigest calls POST /v1/verify/digest.
func (c *Client) VerifyDigest(ctx context.Context, req VerifyDigestRequest) (*VerifyDigestResponse, error) {
	var resp VerifyDigestResponse
	if err := c.post(ctx, "/v1/verify/digest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends a JSON request to path, retrying only on transport-level
// failures (connect/timeout/request-build errors) up to retryTimes with a
// fixed retryDelay sleep between attempts. Any HTTP response, including
// 4xx/5xx, is returned immediately without retry.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pki: could not marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryTimes; attempt++ {
		if c.logger != nil {
			c.logger.Debugf("pki: POST %s attempt %d/%d", path, attempt+1, c.retryTimes+1)
		}
		resp, err := c.doOnce(ctx, path, payload)
		if err != nil {
			lastErr = err
			if attempt < c.retryTimes {
				if c.logger != nil {
					c.logger.Warnf("pki: transport error on %s, retrying: %s", path, err)
				}
				time.Sleep(c.retryDelay)
				continue
			}
			return fmt.Errorf("pki: transport failure after %d attempts: %w", attempt+1, lastErr)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("pki: could not read response body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("pki: could not decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("pki: transport failure: %w", lastErr)
}

func (c *Client) doOnce(ctx context.Context, path string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
