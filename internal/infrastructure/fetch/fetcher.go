// Package fetch performs JSON HTTP requests against upstream providers,
// optionally retrying with a fixed delay.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"alertaid-backend/internal/metrics"
)

const maxErrorBody = 2048

// ErrNonJSON is returned when a response does not declare a JSON content type.
var ErrNonJSON = errors.New("non-JSON response")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options describes a single request.
type Options struct {
	Method string // defaults to GET
	Header http.Header
	Body   []byte
	// InsecureSkipVerify routes the request through the client that does
	// not verify TLS certificates.
	InsecureSkipVerify bool
}

// UnavailableError reports that every attempt against an upstream failed.
type UnavailableError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is an *UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Fetcher issues JSON requests.
type Fetcher struct {
	client   HTTPClient
	insecure HTTPClient
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// New creates a Fetcher. timeout applies to both the verifying and the
// non-verifying client.
func New(timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *Fetcher {
	insecureTransport := http.DefaultTransport.(*http.Transport).Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // legacy upstream certificate

	return NewWithClients(
		&http.Client{Timeout: timeout},
		&http.Client{Timeout: timeout, Transport: insecureTransport},
		log,
		m,
	)
}

// NewWithClients creates a Fetcher with custom clients (useful for testing).
func NewWithClients(client, insecure HTTPClient, log *zap.Logger, m *metrics.Metrics) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:   client,
		insecure: insecure,
		log:      log.With(zap.String("component", "fetch")),
		metrics:  m,
	}
}

// JSON performs one request and decodes the JSON body into out.
func (f *Fetcher) JSON(ctx context.Context, rawURL string, opts Options, out interface{}) error {
	err := f.do(ctx, rawURL, opts, out)
	f.metrics.FetchAttempt(hostOf(rawURL), err)
	return err
}

// JSONWithRetry is JSON retried up to maxAttempts times in total with a
// fixed delay between attempts. When every attempt fails it returns an
// *UnavailableError wrapping the last failure.
func (f *Fetcher) JSONWithRetry(ctx context.Context, rawURL string, opts Options, maxAttempts int, delay time.Duration, out interface{}) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(maxAttempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		return f.JSON(ctx, rawURL, opts, out)
	}
	notify := func(err error, next time.Duration) {
		f.log.Warn("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.Duration("retryIn", next),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		f.log.Warn("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.Error(err))
		return &UnavailableError{URL: rawURL, Attempts: attempt, Err: err}
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, opts Options, out interface{}) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	client := f.client
	if opts.InsecureSkipVerify {
		client = f.insecure
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Wrapf(ErrNonJSON, "status %d, content-type %q: %s", resp.StatusCode, contentType, strings.TrimSpace(string(text)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode response (status %d)", resp.StatusCode)
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
