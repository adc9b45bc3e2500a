package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/abc5478963210/video-highlight-tool/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID carries a per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// DefaultTimeout bounds every request, upload included.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	Header          http.Header // default headers; Content-Type is ignored
	WithCredentials bool
	PageOrigin      string            // origin requests are issued from; empty disables CORS checks
	Transport       http.RoundTripper // nil uses http.DefaultTransport
	Log             zerolog.Logger
}

// Client is the process-wide API client. It holds no per-call state and
// is safe for concurrent use.
type Client struct {
	baseURL         *url.URL
	origin          string
	withCredentials bool
	header          http.Header
	http            *http.Client
	log             zerolog.Logger
}

// New creates a Client for the given base URL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q: scheme and host required", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	header := http.Header{"Accept": []string{ContentTypeJSON}}
	for k, vs := range opts.Header {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			continue
		}
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	hc := &http.Client{Timeout: timeout, Transport: opts.Transport}
	if opts.WithCredentials {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	return &Client{
		baseURL:         base,
		origin:          strings.TrimRight(opts.PageOrigin, "/"),
		withCredentials: opts.WithCredentials,
		header:          header,
		http:            hc,
		log:             opts.Log,
	}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Do sends body to path and decodes the JSON response into out.
//
// Transport failures come back as *Error, backend-reported failures as
// *BackendError. Nothing is retried.
func (c *Client) Do(ctx context.Context, method, path string, body Body, out any) error {
	start := time.Now()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	log := c.log.With().
		Str("method", method).
		Str("url", req.URL.String()).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Logger()
	log.Debug().Msg("sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(log, req, path, start, 0, err)
	}
	defer resp.Body.Close()

	if err := checkCORS(c.origin, req.URL, c.withCredentials, resp.Header); err != nil {
		io.Copy(io.Discard, resp.Body)
		// Blocked responses never expose their status.
		return c.fail(log, req, path, start, 0, err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(log, req, path, start, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		berr := backendErrorFromBody(resp.StatusCode, data)
		log.Warn().Int("status", resp.StatusCode).Int("code", berr.Code).Str("message", berr.Message).Msg("backend rejected request")
		metrics.ObserveClientRequest(path, "backend_error", time.Since(start))
		return berr
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Int("status", resp.StatusCode).Msg("undecodable response")
		metrics.ObserveClientRequest(path, "decode_error", time.Since(start))
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code != http.StatusOK {
		log.Warn().Int("code", env.Code).Str("message", env.Message).Msg("backend reported failure")
		metrics.ObserveClientRequest(path, "backend_error", time.Since(start))
		return &BackendError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			log.Error().Err(err).Int("status", resp.StatusCode).Msg("undecodable response")
			metrics.ObserveClientRequest(path, "decode_error", time.Since(start))
			return fmt.Errorf("decode response: %w", err)
		}
	}

	log.Info().Int("status", resp.StatusCode).Dur("duration_ms", time.Since(start)).Msg("request succeeded")
	metrics.ObserveClientRequest(path, "ok", time.Since(start))
	return nil
}

// newRequest is the request stage: it resolves the body variant and sets
// headers. Content-Type is written once, from the variant.
func (c *Client) newRequest(ctx context.Context, method, path string, body Body) (*http.Request, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	discard := func() {
		if rc, ok := reader.(io.Closer); ok {
			rc.Close()
		}
	}

	ref, err := url.Parse(path)
	if err != nil {
		discard()
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	target := c.baseURL.JoinPath(ref.Path)
	target.RawQuery = ref.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		discard()
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	return req, nil
}

// fail is the response-error stage: classify, rewrite the message, log, and
// hand the error back. Unclassified errors are returned as they came.
func (c *Client) fail(log zerolog.Logger, req *http.Request, path string, start time.Time, status int, err error) error {
	kind := Classify(status, err)
	metrics.ObserveClientRequest(path, kind.String(), time.Since(start))

	var msg string
	switch kind {
	case KindNetworkUnreachable:
		msg = MsgNetworkUnreachable
	case KindCrossOrigin:
		msg = MsgCrossOrigin
	default:
		log.Error().Err(err).Int("status", status).Msg("request failed")
		return err
	}

	log.Error().Err(err).Str("kind", kind.String()).Msg(msg)
	return &Error{
		Kind:    kind,
		Message: msg,
		Method:  req.Method,
		URL:     req.URL.String(),
		Status:  status,
		Err:     err,
	}
}

// envelope is the shape every backend response shares.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func backendErrorFromBody(status int, data []byte) *BackendError {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && (env.Code != 0 || env.Message != "") {
		return &BackendError{Status: status, Code: env.Code, Message: env.Message}
	}
	return &BackendError{Status: status, Code: status, Message: strings.TrimSpace(string(data))}
}
