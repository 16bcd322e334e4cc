package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// HttpClient is the transport the EarthPulse clients issue requests through.
// This allows mocking or custom transport layers in testing.
type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

// HTTPError is returned when the API answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Endpoint   string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s, body: %s", e.StatusCode, e.Endpoint, string(e.Body))
}

// TransportError means no response was received at all (DNS, connection
// refused, cancelled context, ...).
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means a response arrived but its body did not have the expected shape.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// userAgentRoundTripper is a custom RoundTripper that adds a User-Agent header.
type userAgentRoundTripper struct {
	Wrapped   http.RoundTripper
	UserAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone request to avoid mutating the original
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.UserAgent)
	return rt.Wrapped.RoundTrip(clone)
}

type httpClient struct {
	client *http.Client
}

// NewEarthPulseHttpClient wraps base with a custom User-Agent and, when
// tokens is non-nil, an OAuth2 bearer transport.
//
// No timeout is set on base; callers bound latency through the request context.
func NewEarthPulseHttpClient(userAgent string, base *http.Client, tokens oauth2.TokenSource) HttpClient {
	if base.Transport == nil {
		base.Transport = http.DefaultTransport
	}
	transport := base.Transport
	if tokens != nil {
		transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, tokens),
			Base:   transport,
		}
	}
	base.Transport = &userAgentRoundTripper{
		Wrapped:   transport,
		UserAgent: userAgent,
	}

	return &httpClient{client: base}
}

// StaticToken returns a token source for a fixed API token, or nil when
// token is empty so callers can pass the result straight through.
func StaticToken(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

func (h *httpClient) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}

func (h *httpClient) CloseIdleConnections() {
	h.client.CloseIdleConnections()
}

// IsCancelled reports whether err came from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
