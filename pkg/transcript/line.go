package transcript

import "strings"

// dedupeLines renders surviving lines and drops those whose lowercased
// speaker-and-text body was already emitted. The timing suffix is excluded
// from the comparison (see CleanedLine.body); order of first occurrence wins.
func dedupeLines(lines []CleanedLine) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		key := strings.ToLower(l.body())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l.Render())
	}
	return out
}
