package transcript

import (
	"strings"
	"unicode"
)

// shortSentenceLimit exempts very short fragments from sentence dedup so
// legitimate repeats like "No. No." survive.
const shortSentenceLimit = 3

// dedupeSentences splits a segment's text into sentences and drops exact
// repeats within that segment. The first occurrence keeps its original casing
// and punctuation; order is preserved.
func dedupeSentences(text string) []string {
	sentences := splitSentences(text)
	seen := make(map[string]struct{}, len(sentences))
	kept := sentences[:0]
	for _, s := range sentences {
		norm := normalizeSentence(s)
		if _, ok := seen[norm]; ok && len(norm) > shortSentenceLimit {
			continue
		}
		seen[norm] = struct{}{}
		kept = append(kept, s)
	}
	return kept
}

// splitSentences cuts text on sentence-terminal punctuation followed by
// whitespace. Terminal punctuation stays attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		cur.WriteRune(r)
		// A terminal run ("?!", "...") ends a sentence only at its last
		// character, where whitespace or end-of-text follows.
		if isTerminal(r) && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			if s := strings.TrimSpace(cur.String()); s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// normalizeSentence produces the equality form for sentence dedup:
// trim, lowercase, trailing terminal punctuation stripped.
func normalizeSentence(s string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), ".!?")
}
