package classify

import (
	"strings"
	"unicode/utf8"
)

// maxExcerptLen bounds the stored ESG language excerpt.
const maxExcerptLen = 500

// span is one sentence's half-open byte range in the source text.
type span struct {
	start, end int
}

// sentences segments text in a single pass. A sentence ends at a run of
// terminators (.!?) followed by whitespace or end-of-text; repeated
// terminators collapse into one boundary.
func sentences(text string) []span {
	var spans []span
	start := 0
	i := 0
	for i < len(text) {
		if !isTerminator(text[i]) {
			i++
			continue
		}
		// Consume the terminator run.
		j := i + 1
		for j < len(text) && isTerminator(text[j]) {
			j++
		}
		if j >= len(text) || isSpace(text[j]) {
			spans = append(spans, span{start: start, end: j})
			start = j
		}
		i = j
	}
	if start < len(text) {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// sentenceAt returns the trimmed sentence containing byte offset pos,
// capped at maxExcerptLen without splitting a rune.
func sentenceAt(text string, spans []span, pos int) string {
	for _, s := range spans {
		if pos >= s.start && pos < s.end {
			sentence := strings.TrimSpace(text[s.start:s.end])
			if len(sentence) > maxExcerptLen {
				cut := maxExcerptLen
				for cut > 0 && !utf8.RuneStart(sentence[cut]) {
					cut--
				}
				sentence = sentence[:cut]
			}
			return sentence
		}
	}
	return ""
}
