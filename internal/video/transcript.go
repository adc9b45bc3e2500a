package video

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Highlights returns the highlighted sentences as records, in transcript order.
func (t Transcript) Highlights() []HighlightRecord {
	out := []HighlightRecord{}
	for _, sec := range t.Sections {
		for _, s := range sec.Sentences {
			if s.IsHighlight {
				out = append(out, HighlightRecord{StartTime: s.StartTime, EndTime: s.EndTime, Text: s.Text})
			}
		}
	}
	return out
}

// Duration is the end time of the last section, 0 for an empty transcript.
func (t Transcript) Duration() float64 {
	if len(t.Sections) == 0 {
		return 0
	}
	return t.Sections[len(t.Sections)-1].EndTime
}

// SetHighlight returns a copy of t with one sentence's highlight flag set.
// The receiver is left untouched.
func (t Transcript) SetHighlight(section, sentence int, on bool) (Transcript, error) {
	if section < 0 || section >= len(t.Sections) {
		return Transcript{}, fmt.Errorf("section %d out of range [0,%d)", section, len(t.Sections))
	}
	if sentence < 0 || sentence >= len(t.Sections[section].Sentences) {
		return Transcript{}, fmt.Errorf("sentence %d out of range [0,%d)", sentence, len(t.Sections[section].Sentences))
	}

	out := Transcript{Sections: make([]TranscriptSection, len(t.Sections))}
	copy(out.Sections, t.Sections)
	sec := out.Sections[section]
	sec.Sentences = append([]Sentence(nil), sec.Sentences...)
	sec.Sentences[sentence].IsHighlight = on
	out.Sections[section] = sec
	return out, nil
}

// ValidateTranscript checks time ranges and chronological section order.
func ValidateTranscript(t Transcript) error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid transcript: %w", err)
	}
	for i := 1; i < len(t.Sections); i++ {
		if t.Sections[i].StartTime < t.Sections[i-1].StartTime {
			return fmt.Errorf("invalid transcript: section %d starts before section %d", i, i-1)
		}
	}
	return nil
}

// FormatTimestamp renders seconds as mm:ss, or h:mm:ss past an hour.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
