package mockapi

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/abc5478963210/video-highlight-tool/internal/video"
)

//go:embed fixtures/transcript.json
var defaultFixtureJSON []byte

// Fixture is the canned transcript the mock backend answers with. The
// reported duration is a placeholder; uploads are never inspected.
type Fixture struct {
	VideoDuration float64          `json:"videoDuration"`
	Transcript    video.Transcript `json:"transcript"`
}

// DefaultFixture returns the embedded fixture.
func DefaultFixture() *Fixture {
	fx, err := parseFixture(defaultFixtureJSON)
	if err != nil {
		panic("mockapi: embedded fixture: " + err.Error())
	}
	return fx
}

// LoadFixture reads a fixture from a JSON file. An empty path returns the
// embedded default.
func LoadFixture(path string) (*Fixture, error) {
	if path == "" {
		return DefaultFixture(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	fx, err := parseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return fx, nil
}

func parseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(fx.Transcript.Sections) == 0 {
		return nil, errors.New("transcript has no sections")
	}
	if err := video.ValidateTranscript(fx.Transcript); err != nil {
		return nil, err
	}
	if fx.VideoDuration <= 0 {
		fx.VideoDuration = fx.Transcript.Duration()
	}
	return &fx, nil
}
