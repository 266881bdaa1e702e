package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// cleanSentence collapses recognizer stutter within one sentence: first the
// cheap anchored "<text><punct> <same text><punct>" doubling, then a token
// scan that removes repeated word runs of any length up to the configured
// bound. Spacing of surviving text is re-normalized to single spaces.
func (e *Engine) cleanSentence(sentence string) string {
	sentence = collapseDoubledClause(sentence)
	toks := collapseRepeats(tokenize(sentence), e.maxPhraseLen)
	return strings.Join(strings.Fields(strings.Join(toks, "")), " ")
}

// collapseDoubledClause handles the common whole-clause echo in a single
// anchored pass: if the text after some punctuation mark (plus optional
// whitespace) equals everything up to and including that mark, one copy wins.
func collapseDoubledClause(s string) string {
	trimmed := strings.TrimSpace(s)
	for i, r := range trimmed {
		if !unicode.IsPunct(r) {
			continue
		}
		cut := i + utf8.RuneLen(r)
		left := trimmed[:cut]
		rest := strings.TrimLeft(trimmed[cut:], " \t")
		if rest == "" || !strings.EqualFold(left, rest) {
			continue
		}
		// Reject trivial doubles like "a.a." where almost nothing repeats.
		if wordChars(left) > 1 {
			return left
		}
	}
	return trimmed
}

func wordChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			n++
		}
	}
	return n
}

// tokenize splits a sentence into alternating word and separator tokens.
// Every whitespace and punctuation character is its own token so the
// original text reassembles losslessly.
func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			if cur.Len() > 0 {
				toks = append(toks, cur.String())
				cur.Reset()
			}
			toks = append(toks, string(r))
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		toks = append(toks, cur.String())
	}
	return toks
}

// collapseRepeats scans tokens left to right. At each word position it tries
// candidate phrase lengths from the longest feasible down to one: when the
// next L-word span equals the following L-word span (whitespace removed,
// lowercased) and the span is non-trivial, one copy is emitted and the cursor
// jumps past both. Ties favor the longest repeat. Cost is bounded by
// O(tokens x maxPhraseLen).
func collapseRepeats(toks []string, maxPhraseLen int) []string {
	wordIdx := make([]int, 0, len(toks))
	wordPos := make(map[int]int, len(toks))
	for i, t := range toks {
		if isWordToken(t) {
			wordPos[i] = len(wordIdx)
			wordIdx = append(wordIdx, i)
		}
	}

	out := make([]string, 0, len(toks))
	for i := 0; i < len(toks); {
		wi, isWord := wordPos[i]
		if !isWord {
			// Separators never start a repeat.
			out = append(out, toks[i])
			i++
			continue
		}

		maxL := (len(wordIdx) - wi) / 2
		if maxL > maxPhraseLen {
			maxL = maxPhraseLen
		}

		matched := false
		for l := maxL; l >= 1; l-- {
			start2 := wordIdx[wi+l]
			end2 := len(toks)
			if wi+2*l < len(wordIdx) {
				end2 = wordIdx[wi+2*l]
			}
			span1 := normalizeSpan(toks[i:start2])
			if len(span1) <= 1 || span1 != normalizeSpan(toks[start2:end2]) {
				continue
			}
			out = append(out, toks[i:start2]...)
			i = end2
			matched = true
			break
		}
		if !matched {
			out = append(out, toks[i])
			i++
		}
	}
	return out
}

func isWordToken(t string) bool {
	r, _ := utf8.DecodeRuneInString(t)
	return t != "" && !unicode.IsSpace(r) && !unicode.IsPunct(r)
}

// normalizeSpan renders a token span for repeat comparison: word tokens
// only, concatenated and lowercased. Separators are excluded so
// "the meeting," still matches a following "the meeting"; the kept copy
// preserves the first occurrence's punctuation.
func normalizeSpan(toks []string) string {
	var b strings.Builder
	for _, t := range toks {
		if isWordToken(t) {
			b.WriteString(strings.ToLower(t))
		}
	}
	return b.String()
}
