package mockapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/abc5478963210/video-highlight-tool/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Transport answers mock routes in process and hands every other request
// to Next untouched.
type Transport struct {
	mux  *chi.Mux
	next http.RoundTripper
	log  zerolog.Logger
}

// NewTransport wraps next with the mock routes of mux. A nil next means
// http.DefaultTransport.
func NewTransport(mux *chi.Mux, next http.RoundTripper, log zerolog.Logger) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{mux: mux, next: next, log: log}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.mux.Match(chi.NewRouteContext(), req.Method, req.URL.Path) {
		return t.next.RoundTrip(req)
	}
	if req.Body != nil {
		defer req.Body.Close()
	}

	t.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("serving from mock backend")

	in := req.Clone(req.Context())
	if in.Body == nil {
		in.Body = http.NoBody
	}
	in.RequestURI = req.URL.RequestURI()

	rw := newResponseBuffer()
	t.mux.ServeHTTP(rw, in)

	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return rw.response(req), nil
}

// Register selects the transport for this process. It must run before the
// first request is issued. When the mock backend is disabled, or cannot be
// set up, next is returned and the failure is only logged.
func Register(cfg *config.Config, next http.RoundTripper, log zerolog.Logger) http.RoundTripper {
	if cfg == nil || !cfg.MockActive() {
		return next
	}

	fx, err := LoadFixture(cfg.MockFixture)
	if err != nil {
		log.Error().Err(err).Msg("mock backend registration failed, requests go to the network")
		return next
	}

	mux := NewHandler(Options{
		Fixture:      fx,
		ProcessDelay: cfg.MockProcessDelay,
		SaveDelay:    cfg.MockSaveDelay,
		Log:          log,
	})
	log.Info().
		Dur("process_delay", cfg.MockProcessDelay).
		Dur("save_delay", cfg.MockSaveDelay).
		Msg("mock backend registered")
	return NewTransport(mux, next, log)
}

// responseBuffer is an http.ResponseWriter that collects a response in memory.
type responseBuffer struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (b *responseBuffer) Header() http.Header { return b.header }

func (b *responseBuffer) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *responseBuffer) response(req *http.Request) *http.Response {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        b.header,
		Body:          io.NopCloser(bytes.NewReader(b.body.Bytes())),
		ContentLength: int64(b.body.Len()),
		Request:       req,
	}
}
