// Package transcript turns noisy, repeated, multiply-labeled speech segments
// into one clean transcript. It consolidates inconsistent speaker labels onto
// a bounded set of canonical display names and removes duplicates at four
// levels of granularity: whole segments, sentences within a segment, repeated
// word runs within a sentence, and whole lines in the assembled output.
//
// The engine is pure computation over in-memory data. Each call builds its
// own state, so concurrent calls for different transcripts need no locking.
package transcript

import "strings"

const (
	// DefaultMaxSpeakers caps the number of canonical display names.
	// Labels discovered after the cap fold into the last name.
	DefaultMaxSpeakers = 8

	// DefaultMaxPhraseLen bounds the repeated-phrase search, in words,
	// to keep the scan linear on pathological input.
	DefaultMaxPhraseLen = 10
)

// Engine holds the dedup configuration. The zero value is not usable; use New.
type Engine struct {
	maxSpeakers  int
	maxPhraseLen int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSpeakers sets the canonical speaker cap. Values below 1 keep the default.
func WithMaxSpeakers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSpeakers = n
		}
	}
}

// WithMaxPhraseLen sets the repeated-phrase search bound in words.
// Values below 1 keep the default.
func WithMaxPhraseLen(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPhraseLen = n
		}
	}
}

// New creates an engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxSpeakers:  DefaultMaxSpeakers,
		maxPhraseLen: DefaultMaxPhraseLen,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs the full pipeline over the segment sequence: speaker
// consolidation, segment dedup, per-segment text cleaning, line rendering and
// the final line-level dedup. Input order is never changed, only thinned.
// Empty input yields an empty transcript and an empty, non-nil speaker map.
func (e *Engine) Process(segments []RawSegment) Result {
	table := e.consolidate(segments)

	kept := dedupeSegments(segments)

	lines := make([]CleanedLine, 0, len(kept))
	for _, seg := range kept {
		text := e.cleanText(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, CleanedLine{
			Speaker: table.displayName(seg),
			Text:    text,
			Start:   seg.Start,
			End:     seg.End,
		})
	}

	return Result{
		Transcript: strings.Join(dedupeLines(lines), "\n"),
		Speakers:   table.labels,
	}
}

// cleanText applies sentence-level dedup to a segment's text, then collapses
// repeated word runs within each surviving sentence.
func (e *Engine) cleanText(text string) string {
	sentences := dedupeSentences(text)
	cleaned := sentences[:0]
	for _, s := range sentences {
		s = e.cleanSentence(s)
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, " ")
}
