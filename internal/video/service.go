package video

import (
	"context"
	"net/http"

	"github.com/abc5478963210/video-highlight-tool/internal/transport"
)

// Backend endpoints.
const (
	PathProcessVideo   = "/api/process-video"
	PathSaveHighlights = "/api/save-highlights"
)

// FieldVideo is the multipart field carrying the uploaded file.
const FieldVideo = "video"

// defaultUploadName is used when an Upload has no name. A part without a
// filename would be read as a plain form value, not a file.
const defaultUploadName = "upload"

// Service exposes the two backend operations. It keeps no state between
// calls and never retries.
type Service struct {
	client *transport.Client
}

// NewService creates a Service on top of the shared client.
func NewService(client *transport.Client) *Service {
	return &Service{client: client}
}

// ProcessVideo uploads a video and returns its transcript.
//
// Errors are returned unwrapped: *transport.Error for transport failures,
// *transport.BackendError when the backend reports a non-200 code.
func (s *Service) ProcessVideo(ctx context.Context, file Upload) (*ProcessVideoResult, error) {
	name := file.Name
	if name == "" {
		name = defaultUploadName
	}

	var res ProcessVideoResult
	body := transport.Multipart{Field: FieldVideo, FileName: name, Content: file.Content}
	if err := s.client.Do(ctx, http.MethodPost, PathProcessVideo, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SaveHighlights submits highlights in the given order. An empty or nil
// slice is a valid no-op save and is sent as [].
func (s *Service) SaveHighlights(ctx context.Context, highlights []HighlightRecord) (*SaveResult, error) {
	if highlights == nil {
		highlights = []HighlightRecord{}
	}

	var res SaveResult
	body := transport.JSON{Value: SaveHighlightsRequest{Highlights: highlights}}
	if err := s.client.Do(ctx, http.MethodPost, PathSaveHighlights, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
