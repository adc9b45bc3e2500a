package transport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method       string
	path         string
	contentTypes []string
	origin       string
	requestID    string
	body         []byte
}

func newCaptureServer(t *testing.T, respond func(w http.ResponseWriter)) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.Path
		c.contentTypes = r.Header.Values("Content-Type")
		c.origin = r.Header.Get("Origin")
		c.requestID = r.Header.Get(HeaderRequestID)
		c.body, _ = io.ReadAll(r.Body)
		respond(w)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func okJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"code":200,"data":{"ok":true},"message":"fine"}`)
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	opts.Log = zerolog.Nop()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestDo_JSONBody(t *testing.T) {
	srv, got := newCaptureServer(t, okJSON)
	c := newTestClient(t, Options{
		BaseURL: srv.URL + "/",
		Header:  http.Header{"Content-Type": []string{"text/plain"}, "X-Client": []string{"vht"}},
	})

	var out struct {
		Data struct {
			OK bool `json:"ok"`
		} `json:"data"`
	}
	err := c.Do(context.Background(), http.MethodPost, "/api/save-highlights", JSON{Value: map[string]any{"highlights": []int{1, 2}}}, &out)
	require.NoError(t, err)

	assert.True(t, out.Data.OK)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/save-highlights", got.path)
	assert.Equal(t, []string{ContentTypeJSON}, got.contentTypes, "default Content-Type must not leak through")
	assert.NotEmpty(t, got.requestID)
	assert.JSONEq(t, `{"highlights":[1,2]}`, string(got.body))
}

func TestDo_MultipartBody(t *testing.T) {
	srv, got := newCaptureServer(t, okJSON)
	c := newTestClient(t, Options{BaseURL: srv.URL})

	err := c.Do(context.Background(), http.MethodPost, "/api/process-video", Multipart{
		Field:    "video",
		FileName: "clip.mp4",
		Content:  strings.NewReader("fake-video"),
	}, nil)
	require.NoError(t, err)

	require.Len(t, got.contentTypes, 1)
	mediaType, params, err := mime.ParseMediaType(got.contentTypes[0])
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	assert.NotEmpty(t, params["boundary"])
	assert.Contains(t, string(got.body), `name="video"; filename="clip.mp4"`)
	assert.Contains(t, string(got.body), "fake-video")
}

func TestDo_BackendErrorCode(t *testing.T) {
	srv, _ := newCaptureServer(t, func(w http.ResponseWriter) {
		io.WriteString(w, `{"code":4001,"data":null,"message":"unsupported codec"}`)
	})
	c := newTestClient(t, Options{BaseURL: srv.URL})

	err := c.Do(context.Background(), http.MethodPost, "/api/process-video", nil, nil)

	var berr *BackendError
	require.True(t, errors.As(err, &berr), "want *BackendError, got %T", err)
	assert.Equal(t, 4001, berr.Code)
	assert.Equal(t, "unsupported codec", berr.Error())
}

func TestDo_BackendHTTPStatus(t *testing.T) {
	srv, _ := newCaptureServer(t, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down\n")
	})
	c := newTestClient(t, Options{BaseURL: srv.URL})

	err := c.Do(context.Background(), http.MethodPost, "/api/save-highlights", JSON{Value: nil}, nil)

	var berr *BackendError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, http.StatusBadGateway, berr.Status)
	assert.Equal(t, "upstream down", berr.Message)
	assert.False(t, IsNetworkUnreachable(err))
}

func TestDo_NetworkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, Options{BaseURL: url})
	err := c.Do(context.Background(), http.MethodPost, "/api/process-video", nil, nil)

	require.Error(t, err)
	assert.True(t, IsNetworkUnreachable(err))
	assert.Equal(t, MsgNetworkUnreachable, err.Error())

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.Status)
	assert.NotNil(t, errors.Unwrap(err), "original cause must be kept")
}

func TestDo_NonexistentHost(t *testing.T) {
	c := newTestClient(t, Options{BaseURL: "http://vht-backend.invalid", Timeout: 2 * time.Second})
	err := c.Do(context.Background(), http.MethodPost, "/api/process-video", nil, nil)
	assert.True(t, IsNetworkUnreachable(err), "got %v", err)
}

func TestDo_TimeoutIsNetworkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	err := c.Do(context.Background(), http.MethodPost, "/api/process-video", nil, nil)
	assert.True(t, IsNetworkUnreachable(err), "got %v", err)
}

func TestDo_CallerCancelNotClassified(t *testing.T) {
	srv, _ := newCaptureServer(t, okJSON)
	c := newTestClient(t, Options{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Do(ctx, http.MethodPost, "/api/save-highlights", nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsNetworkUnreachable(err))
}

func TestDo_CrossOriginRejected(t *testing.T) {
	srv, got := newCaptureServer(t, okJSON)
	c := newTestClient(t, Options{BaseURL: srv.URL, PageOrigin: "https://app.example.com/"})

	err := c.Do(context.Background(), http.MethodPost, "/api/save-highlights", JSON{Value: map[string]any{}}, nil)

	require.Error(t, err)
	assert.True(t, IsCrossOrigin(err))
	assert.Equal(t, MsgCrossOrigin, err.Error())
	assert.True(t, errors.Is(err, ErrCORS))
	assert.Equal(t, "https://app.example.com", got.origin)

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.Status)
}

func TestDo_CrossOriginAllowed(t *testing.T) {
	srv, _ := newCaptureServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		okJSON(w)
	})
	c := newTestClient(t, Options{BaseURL: srv.URL, PageOrigin: "https://app.example.com"})

	var out map[string]any
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/save-highlights", nil, &out))
	assert.Equal(t, float64(200), out["code"])
}

func TestDo_DecodesIntoOut(t *testing.T) {
	srv, _ := newCaptureServer(t, okJSON)
	c := newTestClient(t, Options{BaseURL: srv.URL})

	var out json.RawMessage
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/x", nil, &out))
	assert.JSONEq(t, `{"code":200,"data":{"ok":true},"message":"fine"}`, string(out))
}

func TestDo_UndecodableResponseLogged(t *testing.T) {
	srv, _ := newCaptureServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<!doctype html><html></html>")
	})

	var buf bytes.Buffer
	c, err := New(Options{BaseURL: srv.URL, Log: zerolog.New(&buf).Level(zerolog.InfoLevel)})
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodPost, "/api/process-video", nil, nil)
	require.Error(t, err)
	assert.False(t, IsNetworkUnreachable(err))

	logged := buf.String()
	assert.Contains(t, logged, "undecodable response")
	assert.Contains(t, logged, `"status":200`)
	assert.Contains(t, logged, `"level":"error"`)
}

func TestDo_OutDecodeFailureLogged(t *testing.T) {
	srv, _ := newCaptureServer(t, okJSON)

	var buf bytes.Buffer
	c, err := New(Options{BaseURL: srv.URL, Log: zerolog.New(&buf)})
	require.NoError(t, err)

	var out struct {
		Data []string `json:"data"`
	}
	err = c.Do(context.Background(), http.MethodPost, "/x", nil, &out)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "undecodable response")
}

func newCookieServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Cookie"))
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123", Path: "/"})
		okJSON(w)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestDo_WithCredentials(t *testing.T) {
	srv, seen := newCookieServer(t)
	c := newTestClient(t, Options{BaseURL: srv.URL, WithCredentials: true})

	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/save-highlights", nil, nil))
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/save-highlights", nil, nil))

	require.Len(t, *seen, 2)
	assert.Empty(t, (*seen)[0])
	assert.Equal(t, "session=abc123", (*seen)[1])
}

func TestDo_WithoutCredentialsSendsNoCookie(t *testing.T) {
	srv, seen := newCookieServer(t)
	c := newTestClient(t, Options{BaseURL: srv.URL})

	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/save-highlights", nil, nil))
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/save-highlights", nil, nil))

	require.Len(t, *seen, 2)
	assert.Empty(t, (*seen)[1])
}

func TestDo_CredentialedCrossOrigin(t *testing.T) {
	const page = "https://app.example.com"
	srv, _ := newCaptureServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Access-Control-Allow-Origin", page)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		okJSON(w)
	})
	c := newTestClient(t, Options{BaseURL: srv.URL, PageOrigin: page, WithCredentials: true})
	assert.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/save-highlights", nil, nil))

	wildcard, _ := newCaptureServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		okJSON(w)
	})
	c = newTestClient(t, Options{BaseURL: wildcard.URL, PageOrigin: page, WithCredentials: true})
	assert.True(t, IsCrossOrigin(c.Do(context.Background(), http.MethodPost, "/api/save-highlights", nil, nil)))
}

func TestDo_MultipartStreamsLargeUpload(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789abcdef"), 1<<19) // 8 MiB
	want := sha256.Sum256(content)

	var (
		got       [32]byte
		gotLength int64
		chunked   bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunked = r.ContentLength == -1
		f, _, err := r.FormFile("video")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		h := sha256.New()
		gotLength, _ = io.Copy(h, f)
		copy(got[:], h.Sum(nil))
		okJSON(w)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{BaseURL: srv.URL})
	err := c.Do(context.Background(), http.MethodPost, "/api/process-video", Multipart{
		Field:    "video",
		FileName: "big.mp4",
		Content:  bytes.NewReader(content),
	}, nil)
	require.NoError(t, err)

	assert.True(t, chunked, "body should be streamed without a precomputed length")
	assert.Equal(t, int64(len(content)), gotLength)
	assert.Equal(t, want, got)
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestDo_MultipartContentErrorNotClassified(t *testing.T) {
	srv, _ := newCaptureServer(t, okJSON)
	c := newTestClient(t, Options{BaseURL: srv.URL})

	readErr := errors.New("disk went away")
	err := c.Do(context.Background(), http.MethodPost, "/api/process-video", Multipart{
		Field:    "video",
		FileName: "clip.mp4",
		Content:  io.MultiReader(strings.NewReader("partial"), failingReader{readErr}),
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, readErr), "got %v", err)
	assert.False(t, IsNetworkUnreachable(err))
	assert.False(t, IsCrossOrigin(err))
}
