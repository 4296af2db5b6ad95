// Package cleaner detects and removes stock AI-disclaimer watermarks from
// text while preserving the surrounding paragraph structure.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlashko/plume/internal/sentence"
)

// RemovedSpan records one excised watermark for reporting.
type RemovedSpan struct {
	PatternID string `json:"pattern_id"`
	Tier      Tier   `json:"tier"`
	Text      string `json:"text"`
}

// Result is the outcome of a Clean call.
type Result struct {
	Cleaned string
	Removed []RemovedSpan
}

// Cleaner strips watermarks using a tiered pattern library.
type Cleaner struct {
	lib *Library
}

// New returns a Cleaner over the embedded pattern library.
func New() *Cleaner {
	return &Cleaner{lib: DefaultLibrary()}
}

// NewWithLibrary returns a Cleaner over a caller-supplied library.
func NewWithLibrary(lib *Library) *Cleaner {
	return &Cleaner{lib: lib}
}

// Clean removes watermark spans from text. Paragraphs that consist only of
// watermark content are dropped whole; partial matches are excised with the
// surrounding whitespace and punctuation repaired. Cleaning is idempotent:
// running Clean over its own output changes nothing.
func (c *Cleaner) Clean(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Cleaned: ""}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := sentence.SplitParagraphs(text)

	var (
		kept    []string
		removed []RemovedSpan
	)
	for _, para := range paragraphs {
		cleaned, spans := c.cleanParagraph(para)
		removed = append(removed, spans...)
		if cleaned != "" {
			kept = append(kept, cleaned)
		}
	}

	// Trailing-disclaimer heuristic: a final paragraph shaped like a stock
	// disclaimer is dropped entirely.
	if len(kept) > 0 {
		last := kept[len(kept)-1]
		if p, ok := c.matchTrailing(last); ok {
			removed = append(removed, RemovedSpan{PatternID: p.ID, Tier: TierTrailing, Text: last})
			kept = kept[:len(kept)-1]
		}
	}

	return Result{
		Cleaned: sentence.JoinParagraphs(kept),
		Removed: removed,
	}
}

// cleanParagraph rewrites only the sentences a pattern touched. Untouched
// sentences and the separators between them, including single line breaks
// and indentation, pass through byte for byte.
func (c *Cleaner) cleanParagraph(para string) (string, []RemovedSpan) {
	sentences := sentence.Split(para, nil)
	var (
		out     strings.Builder
		removed []RemovedSpan
	)

	pos := 0
	droppedAny := false
	for _, s := range sentences {
		gap := " "
		if idx := strings.Index(para[pos:], s); idx >= 0 {
			gap = para[pos : pos+idx]
			pos += idx + len(s)
		}

		cleaned, spans, dropped := c.cleanSentence(s)
		removed = append(removed, spans...)
		if dropped {
			droppedAny = true
			continue
		}
		if out.Len() > 0 || !droppedAny {
			out.WriteString(gap)
		}
		out.WriteString(cleaned)
	}

	return out.String(), removed
}

// cleanSentence applies the phrase and template tiers to one sentence.
// Phrase-tier matches always consume the whole sentence. Template-tier
// matches excise exactly the matched span; if nothing meaningful survives
// the excisions, the whole sentence is dropped instead of leaving a
// grammatical stump.
func (c *Cleaner) cleanSentence(s string) (string, []RemovedSpan, bool) {
	for _, p := range c.lib.phrase {
		if p.re.MatchString(s) {
			return "", []RemovedSpan{{PatternID: p.ID, Tier: TierPhrase, Text: s}}, true
		}
	}

	var removed []RemovedSpan
	cur := s
	for _, p := range c.lib.template {
		loc := p.re.FindStringIndex(cur)
		if loc == nil {
			continue
		}
		removed = append(removed, RemovedSpan{PatternID: p.ID, Tier: TierTemplate, Text: cur[loc[0]:loc[1]]})
		cur = repairSentence(cur[:loc[0]] + cur[loc[1]:])
	}

	if len(removed) > 0 && !hasContent(cur) {
		return "", []RemovedSpan{{PatternID: removed[0].PatternID, Tier: TierTemplate, Text: s}}, true
	}
	return cur, removed, false
}

func (c *Cleaner) matchTrailing(para string) (Pattern, bool) {
	for _, p := range c.lib.trailing {
		if p.re.MatchString(para) {
			return p, true
		}
	}
	return Pattern{}, false
}

var (
	doubleSpace      = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct = regexp.MustCompile(` +([,.;:!?])`)
	danglingComma    = regexp.MustCompile(`^[,;:]+ *`)
)

// repairSentence fixes the seams left by an excision: no doubled spaces, no
// orphan leading punctuation, and a capitalized first letter.
func repairSentence(s string) string {
	s = doubleSpace.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(s)
	s = danglingComma.ReplaceAllString(s, "")
	return capitalize(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// hasContent reports whether any letter or digit survives in s.
func hasContent(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
