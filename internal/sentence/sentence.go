// Package sentence provides paragraph and sentence segmentation shared by the
// cleaner, the style profiler, the humanizer, and the formatter.
package sentence

import (
	"regexp"
	"strings"
	"unicode"
)

var paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)

// SplitParagraphs splits text on blank lines. Empty paragraphs are dropped;
// surviving paragraphs keep their internal single line breaks.
func SplitParagraphs(text string) []string {
	parts := paragraphSep.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimRight(p, " \t\n"))
		}
	}
	return out
}

// JoinParagraphs reassembles paragraphs with a single blank line between them.
func JoinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}

// Split segments text into sentences. A boundary is terminal punctuation
// (., !, ?) followed by whitespace and an uppercase letter, digit, or quote,
// or the end of the text. Periods after known abbreviations do not terminate
// a sentence; isAbbrev receives the preceding word (lowercased, without its
// trailing period) and may be nil. Decimal numbers never split because the
// period is not followed by whitespace.
func Split(text string, isAbbrev func(string) bool) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// Consume a run of terminal punctuation ("?!", "...").
		j := i
		for j+1 < len(runes) && isTerminal(runes[j+1]) {
			j++
		}
		// A closing quote or paren belongs to the sentence.
		k := j
		for k+1 < len(runes) && isClosing(runes[k+1]) {
			k++
		}

		if k+1 < len(runes) {
			if !unicode.IsSpace(runes[k+1]) {
				i = k
				continue
			}
			n := k + 1
			for n < len(runes) && unicode.IsSpace(runes[n]) {
				n++
			}
			if n < len(runes) && !startsSentence(runes[n]) {
				i = k
				continue
			}
		}

		if r == '.' && isAbbrev != nil && isAbbrev(precedingWord(runes[start:i])) {
			i = k
			continue
		}

		if s := strings.TrimSpace(string(runes[start : k+1])); s != "" {
			out = append(out, s)
		}
		start = k + 1
		i = k
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// Words returns the whitespace-delimited tokens of s with surrounding
// punctuation stripped. Internal apostrophes and hyphens survive.
func Words(s string) []string {
	raw := strings.Fields(s)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

func isClosing(r rune) bool { return r == '"' || r == '\'' || r == ')' || r == '”' }

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '\'' || r == '“'
}

// precedingWord extracts the word immediately before a period, keeping
// internal periods so "U.S." matches the abbreviation list.
func precedingWord(runes []rune) string {
	end := len(runes)
	start := end
	for start > 0 {
		r := runes[start-1]
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' {
			start--
			continue
		}
		break
	}
	w := strings.Trim(string(runes[start:end]), ".")
	return strings.ToLower(w)
}
