package video

import (
	"io"
	"os"
	"path/filepath"
)

// Sentence is one timed line of a transcript. Times are in seconds.
type Sentence struct {
	Text        string  `json:"text"`
	StartTime   float64 `json:"startTime" validate:"gte=0"`
	EndTime     float64 `json:"endTime" validate:"gtfield=StartTime"`
	IsHighlight bool    `json:"isHighlight"`
}

// TranscriptSection groups consecutive sentences under a title.
type TranscriptSection struct {
	Title     string     `json:"title"`
	StartTime float64    `json:"startTime" validate:"gte=0"`
	EndTime   float64    `json:"endTime" validate:"gtfield=StartTime"`
	Sentences []Sentence `json:"sentences" validate:"dive"`
}

// Transcript is the ordered, chronological list of sections.
type Transcript struct {
	Sections []TranscriptSection `json:"sections" validate:"dive"`
}

type ProcessVideoData struct {
	Transcript    Transcript `json:"transcript"`
	VideoDuration *float64   `json:"videoDuration,omitempty"`
}

// ProcessVideoResult is the response of POST /api/process-video.
type ProcessVideoResult struct {
	Code    int              `json:"code"`
	Data    ProcessVideoData `json:"data"`
	Message string           `json:"message"`
}

// HighlightRecord is a time range submitted for extraction.
type HighlightRecord struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

type SaveData struct {
	Success    bool              `json:"success"`
	Highlights []HighlightRecord `json:"highlights"`
}

// SaveResult is the response of POST /api/save-highlights.
type SaveResult struct {
	Code    int      `json:"code"`
	Data    SaveData `json:"data"`
	Message string   `json:"message"`
}

// SaveHighlightsRequest is the JSON body of POST /api/save-highlights.
type SaveHighlightsRequest struct {
	Highlights []HighlightRecord `json:"highlights"`
}

// Upload is a video file handed to ProcessVideo.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

// OpenUpload opens a file on disk for upload. Close the returned Upload
// when done.
func OpenUpload(path string) (Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Upload{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return Upload{}, err
	}
	return Upload{Name: filepath.Base(path), Size: st.Size(), Content: f}, nil
}

// Close closes the underlying content if it is closable.
func (u Upload) Close() error {
	if c, ok := u.Content.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
