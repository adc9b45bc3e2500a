package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/abc5478963210/video-highlight-tool/internal/metrics"
	"github.com/abc5478963210/video-highlight-tool/internal/transport"
	"github.com/abc5478963210/video-highlight-tool/internal/video"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Default simulated latencies.
const (
	DefaultProcessDelay = time.Second
	DefaultSaveDelay    = 500 * time.Millisecond
)

// maxMemory is the in-memory part of a parsed upload; the rest spills to disk.
const maxMemory = 32 << 20

// Options configures the mock handlers.
type Options struct {
	Fixture      *Fixture // nil uses DefaultFixture
	ProcessDelay time.Duration
	SaveDelay    time.Duration
	Log          zerolog.Logger
}

type handlers struct {
	fixture      *Fixture
	processDelay time.Duration
	saveDelay    time.Duration
	log          zerolog.Logger
}

// NewHandler builds the router answering the two backend endpoints.
// Nothing else is routed: callers use Match to decide what it owns.
func NewHandler(opts Options) *chi.Mux {
	fx := opts.Fixture
	if fx == nil {
		fx = DefaultFixture()
	}
	h := &handlers{
		fixture:      fx,
		processDelay: opts.ProcessDelay,
		saveDelay:    opts.SaveDelay,
		log:          opts.Log.With().Str("component", "mock").Logger(),
	}

	r := chi.NewRouter()
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", transport.HeaderRequestID},
		AllowCredentials: true,
	}))
	r.Post(video.PathProcessVideo, h.processVideo)
	r.Post(video.PathSaveHighlights, h.saveHighlights)
	return r
}

// processVideo handles POST /api/process-video. The upload is read for
// logging only; the answer is always the fixture.
func (h *handlers) processVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.log.Warn().Err(err).Msg("unreadable upload")
	} else {
		defer r.MultipartForm.RemoveAll()
		if file, header, err := r.FormFile(video.FieldVideo); err == nil {
			file.Close()
			metrics.MockUploadBytes.Observe(float64(header.Size))
			h.log.Info().Str("file", header.Filename).Int64("size", header.Size).Msg("received video")
		} else {
			h.log.Warn().Msg("upload has no video field")
		}
	}

	if !wait(r.Context(), h.processDelay) {
		return
	}

	duration := h.fixture.VideoDuration
	WriteJSON(w, http.StatusOK, video.ProcessVideoResult{
		Code: http.StatusOK,
		Data: video.ProcessVideoData{
			Transcript:    h.fixture.Transcript,
			VideoDuration: &duration,
		},
		Message: "processed",
	})
}

// saveHighlights handles POST /api/save-highlights by echoing the input.
func (h *handlers) saveHighlights(w http.ResponseWriter, r *http.Request) {
	if !wait(r.Context(), h.saveDelay) {
		return
	}

	var req video.SaveHighlightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteJSON(w, http.StatusBadRequest, video.SaveResult{
			Code:    http.StatusBadRequest,
			Data:    video.SaveData{Highlights: []video.HighlightRecord{}},
			Message: "invalid json body: " + err.Error(),
		})
		return
	}
	if req.Highlights == nil {
		req.Highlights = []video.HighlightRecord{}
	}
	h.log.Info().Int("count", len(req.Highlights)).Msg("saving highlights")

	WriteJSON(w, http.StatusOK, video.SaveResult{
		Code:    http.StatusOK,
		Data:    video.SaveData{Success: true, Highlights: req.Highlights},
		Message: "saved",
	})
}

// wait sleeps for d unless ctx ends first. It reports whether to continue.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
