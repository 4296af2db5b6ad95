// Package style builds a statistical fingerprint of a writing sample:
// sentence length distribution, vocabulary complexity, contraction usage,
// frequent words, sentence starters, and personal-expression markers.
// Analysis is deterministic: the same sample always produces the same
// profile, bit for bit.
package style

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dlashko/plume/internal/lexicon"
	"github.com/dlashko/plume/internal/sentence"
)

// MinSampleChars is the smallest writing sample Analyze accepts, in runes.
const MinSampleChars = 100

// ErrInsufficientSample is returned when the writing sample is shorter than
// MinSampleChars.
var ErrInsufficientSample = errors.New("writing sample too short: need at least 100 characters")

const (
	topWordCount    = 15
	topStarterCount = 5
)

// Analyzer computes style profiles from writing samples.
type Analyzer struct {
	lex *lexicon.Lexicon
}

// NewAnalyzer returns an Analyzer over the default lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{lex: lexicon.Default()}
}

// NewAnalyzerWithLexicon returns an Analyzer over a caller-supplied lexicon.
func NewAnalyzerWithLexicon(lex *lexicon.Lexicon) *Analyzer {
	return &Analyzer{lex: lex}
}

var alphaToken = regexp.MustCompile(`[a-zA-Z]+`)

// Analyze computes the style profile of sample. It fails with
// ErrInsufficientSample when the sample is shorter than MinSampleChars runes;
// a sample of exactly MinSampleChars succeeds.
func (a *Analyzer) Analyze(sample string) (Profile, error) {
	if utf8.RuneCountInString(sample) < MinSampleChars {
		return Profile{}, ErrInsufficientSample
	}

	sentences := sentence.Split(sample, a.lex.IsAbbreviation)
	var p Profile

	p.AvgSentenceLength, p.SentenceLengthStdev = sentenceLengthStats(sentences)
	p.VocabComplexity = vocabComplexity(sample)
	p.ContractionsRate = a.contractionsRate(sample)
	p.TopWords = a.topWords(sample)
	p.CommonStarters = commonStarters(sentences)
	p.PersonalExpressions = a.personalExpressions(sample)

	return p, nil
}

// sentenceLengthStats returns the mean and population standard deviation of
// words per sentence.
func sentenceLengthStats(sentences []string) (mean, stdev float64) {
	if len(sentences) == 0 {
		return 0, 0
	}
	lengths := make([]float64, len(sentences))
	var sum float64
	for i, s := range sentences {
		lengths[i] = float64(len(sentence.Words(s)))
		sum += lengths[i]
	}
	mean = sum / float64(len(lengths))

	var sq float64
	for _, l := range lengths {
		d := l - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(lengths)))
}

// vocabComplexity is the mean letter count of alphabetic tokens, stopwords
// included.
func vocabComplexity(text string) float64 {
	tokens := alphaToken.FindAllString(text, -1)
	if len(tokens) == 0 {
		return 0
	}
	var total int
	for _, t := range tokens {
		total += len(t)
	}
	return float64(total) / float64(len(tokens))
}

// contractionsRate measures how many eligible contraction sites are actually
// contracted: contracted forms / (contracted + expanded forms) × 100.
func (a *Analyzer) contractionsRate(text string) float64 {
	lower := strings.ToLower(text)

	var contracted, expanded int
	for exp, con := range a.lex.Contractions {
		contracted += countWholePhrase(lower, strings.ToLower(con))
		expanded += countWholePhrase(lower, exp)
	}

	total := contracted + expanded
	if total == 0 {
		return 0
	}
	rate := float64(contracted) / float64(total) * 100
	return math.Min(100, math.Max(0, rate))
}

// countWholePhrase counts non-overlapping whole-word occurrences of phrase
// in lowercased text.
func countWholePhrase(lower, phrase string) int {
	count := 0
	for i := 0; ; {
		idx := strings.Index(lower[i:], phrase)
		if idx < 0 {
			return count
		}
		start := i + idx
		end := start + len(phrase)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
			count++
		}
		i = end
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '\'' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// counter tracks frequency with first-occurrence order for stable tie-breaks.
type counter struct {
	counts map[string]int
	order  map[string]int
	next   int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int), order: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order[key] = c.next
		c.next++
	}
	c.counts[key]++
}

// top returns the n highest-count entries, descending count, ties broken by
// first occurrence.
func (c *counter) top(n int) []WordCount {
	out := make([]WordCount, 0, len(c.counts))
	for w, cnt := range c.counts {
		out = append(out, WordCount{Word: w, Count: cnt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return c.order[out[i].Word] < c.order[out[j].Word]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (a *Analyzer) topWords(text string) []WordCount {
	c := newCounter()
	for _, t := range alphaToken.FindAllString(strings.ToLower(text), -1) {
		if a.lex.IsStopword(t) {
			continue
		}
		c.add(t)
	}
	return c.top(topWordCount)
}

// commonStarters counts the 1-, 2-, and 3-word lowercase prefixes of each
// sentence as candidate starter phrases.
func commonStarters(sentences []string) []WordCount {
	c := newCounter()
	for _, s := range sentences {
		words := sentence.Words(strings.ToLower(s))
		for n := 1; n <= 3 && n <= len(words); n++ {
			c.add(strings.Join(words[:n], " "))
		}
	}
	return c.top(topStarterCount)
}

// personalExpressions scans for known first-person opinion markers,
// preserving first-occurrence order and deduplicating.
func (a *Analyzer) personalExpressions(text string) []string {
	lower := strings.ToLower(text)

	type hit struct {
		marker string
		pos    int
	}
	var hits []hit
	for _, m := range a.lex.PersonalMarkers {
		for i := 0; ; {
			idx := strings.Index(lower[i:], m)
			if idx < 0 {
				break
			}
			start := i + idx
			if boundaryBefore(lower, start) && boundaryAfter(lower, start+len(m)) {
				hits = append(hits, hit{marker: m, pos: start})
				break
			}
			i = start + len(m)
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.marker)
	}
	return out
}
