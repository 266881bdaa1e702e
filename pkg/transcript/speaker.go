package transcript

import (
	"strconv"
	"strings"
	"unicode"
)

// speakerTable is the per-run speaker consolidation state. labels is the
// exported raw-label mapping; ids resolves segments that carry only a
// numeric speaker_id.
type speakerTable struct {
	labels map[string]string
	ids    map[int]string
}

// displayName resolves the canonical name for a segment, preferring its raw
// label over its numeric id. Segments with no speaker information at all
// resolve to the empty string and render without a prefix.
func (t speakerTable) displayName(seg RawSegment) string {
	if label := strings.TrimSpace(seg.Speaker); label != "" {
		return t.labels[label]
	}
	if seg.SpeakerID != nil {
		return t.ids[*seg.SpeakerID]
	}
	return ""
}

// Consolidate maps every raw speaker label in the segment sequence to a
// canonical display name ("Speaker 1" .. "Speaker N"). At most the configured
// maximum of distinct names is allocated; labels discovered after the cap
// fold into the last name. Malformed input never fails: unmapped and empty
// labels are skipped.
func (e *Engine) Consolidate(segments []RawSegment) map[string]string {
	return e.consolidate(segments).labels
}

func (e *Engine) consolidate(segments []RawSegment) speakerTable {
	table := speakerTable{
		labels: make(map[string]string),
		ids:    make(map[int]string),
	}
	// normalized label form -> canonical name already bound to it
	norms := make(map[string]string)
	allocated := 0

	// Allocate the next canonical name, or the last one once the cap is
	// reached. Overflow is a deliberate lossy policy, not an error.
	alloc := func() string {
		if allocated < e.maxSpeakers {
			allocated++
		}
		return "Speaker " + strconv.Itoa(allocated)
	}

	// Numeric pass. Ids from the same diarization run are the most reliable
	// same-speaker signal, so they claim canonical names before any label.
	for _, seg := range segments {
		if seg.SpeakerID == nil {
			continue
		}
		if _, ok := table.ids[*seg.SpeakerID]; ok {
			continue
		}
		table.ids[*seg.SpeakerID] = alloc()
	}

	// Label pass. A label on a segment whose id is already mapped
	// cross-links directly; otherwise fuzzy-match the normalized form
	// against labels and canonical names bound so far.
	for _, seg := range segments {
		label := strings.TrimSpace(seg.Speaker)
		if label == "" {
			continue
		}
		if _, ok := table.labels[label]; ok {
			continue
		}

		if seg.SpeakerID != nil {
			if name, ok := table.ids[*seg.SpeakerID]; ok {
				table.labels[label] = name
				bindNorm(norms, label, name)
				continue
			}
		}

		norm := normalizeLabel(label)
		if name, ok := norms[norm]; ok {
			table.labels[label] = name
			continue
		}

		name := alloc()
		table.labels[label] = name
		bindNorm(norms, label, name)
	}

	return table
}

// bindNorm records the normalized forms that should resolve to name from now
// on: the label's own form and the canonical name's form. The latter is what
// lets "SPEAKER_00" (normalized "SPEAKER", assigned "Speaker 1") absorb a
// later "speaker-1" (normalized "SPEAKER1").
func bindNorm(norms map[string]string, label, name string) {
	for _, n := range []string{normalizeLabel(label), normalizeLabel(name)} {
		if _, ok := norms[n]; !ok {
			norms[n] = name
		}
	}
}

// normalizeLabel reduces a raw speaker label for fuzzy comparison: uppercase,
// separators stripped, leading zeros after the word "SPEAKER" collapsed
// ("SPEAKER_00" -> "SPEAKER", "Speaker 1" -> "SPEAKER1").
func normalizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	s := b.String()
	if rest, ok := strings.CutPrefix(s, "SPEAKER"); ok {
		s = "SPEAKER" + strings.TrimLeft(rest, "0")
	}
	return s
}
