package transcript

import (
	"strconv"
	"strings"
)

// RawSegment is one timestamped unit of recognized speech as delivered by an
// ASR or diarization source. Fields the recognizer may omit are pointers so
// absence survives JSON decoding.
type RawSegment struct {
	Speaker    string   `json:"speaker,omitempty"`
	SpeakerID  *int     `json:"speaker_id,omitempty"`
	Text       string   `json:"text"`
	Start      *float64 `json:"start,omitempty"`
	End        *float64 `json:"end,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// CleanedLine is one surviving transcript line before final assembly.
type CleanedLine struct {
	Speaker string
	Text    string
	Start   *float64
	End     *float64
}

// body returns the speaker-and-text portion used for line-level dedup.
// The timing suffix is excluded so retried deliveries that differ only in
// timing jitter still collapse.
func (l CleanedLine) body() string {
	if l.Speaker == "" {
		return l.Text
	}
	return l.Speaker + ": " + l.Text
}

// Render produces the final line form "<Speaker>: <text> [<start>s - <end>s]".
// The speaker prefix and timing suffix appear only when the source data
// provides them; timing requires both bounds.
func (l CleanedLine) Render() string {
	var b strings.Builder
	b.WriteString(l.body())
	if l.Start != nil && l.End != nil {
		b.WriteString(" [")
		b.WriteString(strconv.FormatFloat(*l.Start, 'f', 1, 64))
		b.WriteString("s - ")
		b.WriteString(strconv.FormatFloat(*l.End, 'f', 1, 64))
		b.WriteString("s]")
	}
	return b.String()
}

// Result is the engine output: the newline-joined transcript and the mapping
// from every raw speaker label seen to its canonical display name.
type Result struct {
	Transcript string            `json:"transcript"`
	Speakers   map[string]string `json:"speakers"`
}
