package transcript

import (
	"strconv"
	"strings"
)

// dedupeSegments drops exact re-deliveries of the same recognizer event,
// keeping the first segment observed per key in original order. The key is
// the raw text, timing and raw speaker label; two labels that later
// consolidate to the same speaker do not merge here.
func dedupeSegments(segments []RawSegment) []RawSegment {
	seen := make(map[string]struct{}, len(segments))
	kept := make([]RawSegment, 0, len(segments))
	for _, seg := range segments {
		key := segmentKey(seg)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, seg)
	}
	return kept
}

func segmentKey(seg RawSegment) string {
	return strings.ToLower(strings.TrimSpace(seg.Text)) +
		"_" + formatBound(seg.Start) +
		"_" + formatBound(seg.End) +
		"_" + seg.Speaker
}

func formatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
