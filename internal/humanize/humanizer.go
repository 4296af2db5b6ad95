// Package humanize rewrites cleaned text toward the statistical targets of a
// style profile: sentence length, vocabulary tier, contraction usage, and
// personal voice, with optional persona overrides. The pipeline is
// deterministic; the same inputs always produce the same output.
package humanize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlashko/plume/internal/lexicon"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/sentence"
	"github.com/dlashko/plume/internal/style"
)

const (
	simplifyBelow = 5.0 // vocab complexity target under which formal words are simplified
	elevateAbove  = 5.5 // target above which simple words are elevated

	// Injection cadence: every 2nd eligible sentence when the profile
	// carries personal expressions, every 3rd with the fallback set.
	cadenceProfile  = 2
	cadenceFallback = 3
)

// Humanizer applies the heuristic rewrite pipeline.
type Humanizer struct {
	lex *lexicon.Lexicon
}

// New returns a Humanizer over the default lexicon.
func New() *Humanizer {
	return &Humanizer{lex: lexicon.Default()}
}

// NewWithLexicon returns a Humanizer over a caller-supplied lexicon.
func NewWithLexicon(lex *lexicon.Lexicon) *Humanizer {
	return &Humanizer{lex: lex}
}

// targets are the numeric goals for one humanization run, derived from the
// profile and biased by the persona.
type targets struct {
	sentenceLength float64
	spread         float64
	vocab          float64
	contractions   float64
	expressions    []string
	cadence        int
	rules          personaRules
}

// Humanize rewrites text toward the profile's fingerprint. The persona may
// be nil. Paragraph boundaries of the input are preserved. Neither the
// profile nor the persona is mutated.
func (h *Humanizer) Humanize(text string, p style.Profile, persona *profile.Persona) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	t := h.deriveTargets(p, persona)

	paragraphs := sentence.SplitParagraphs(text)
	out := make([]string, 0, len(paragraphs))
	injector := newVoiceInjector(t)
	for _, para := range paragraphs {
		out = append(out, h.rewriteParagraph(para, t, injector))
	}

	result := sentence.JoinParagraphs(out)
	return t.rules.apply(result)
}

func (h *Humanizer) deriveTargets(p style.Profile, persona *profile.Persona) targets {
	t := targets{
		sentenceLength: p.AvgSentenceLength,
		spread:         p.SentenceLengthStdev,
		vocab:          p.VocabComplexity,
		contractions:   p.ContractionsRate,
		expressions:    p.PersonalExpressions,
		cadence:        cadenceProfile,
	}
	if t.sentenceLength <= 0 {
		t.sentenceLength = 15
	}
	if t.spread <= 0 {
		t.spread = t.sentenceLength / 3
	}
	if len(t.expressions) == 0 {
		t.expressions = h.lex.DefaultExpressions
		t.cadence = cadenceFallback
	}

	if persona != nil {
		mood := strings.ToLower(persona.Tone + " " + persona.Voice)
		switch {
		case containsAny(mood, "casual", "informal", "friendly", "conversational", "relaxed"):
			if t.vocab > 4.5 {
				t.vocab = 4.5
			}
			if t.contractions < 70 {
				t.contractions = 70
			}
		case containsAny(mood, "formal", "professional", "academic", "corporate"):
			if t.vocab < 5.5 {
				t.vocab = 5.5
			}
			if t.contractions > 20 {
				t.contractions = 20
			}
		}
		t.rules = parseRules(persona.Rules)
	}
	return t
}

func (h *Humanizer) rewriteParagraph(para string, t targets, inj *voiceInjector) string {
	sentences := sentence.Split(para, h.lex.IsAbbreviation)

	sentences = h.adjustLengths(sentences, t)

	for i, s := range sentences {
		s = h.adjustVocabulary(s, t)
		s = h.adjustContractions(s, t)
		s = inj.maybeInject(s)
		sentences[i] = s
	}

	return strings.Join(sentences, " ")
}

// --- step 1: sentence length ---

var connectors = map[string]bool{
	"and": true, "but": true, "or": true, "so": true, "yet": true, "nor": true,
}

// adjustLengths splits sentences that run past the target length plus one
// deviation, and merges adjacent runs of very short sentences. At most two
// consecutive sentences are ever merged.
func (h *Humanizer) adjustLengths(sentences []string, t targets) []string {
	var split []string
	limit := t.sentenceLength + t.spread
	for _, s := range sentences {
		split = append(split, h.splitLong(s, limit)...)
	}

	short := t.sentenceLength / 2
	var out []string
	for i := 0; i < len(split); i++ {
		cur := split[i]
		if i+1 < len(split) &&
			float64(len(sentence.Words(cur))) < short &&
			float64(len(sentence.Words(split[i+1]))) < short {
			out = append(out, mergeSentences(cur, split[i+1]))
			i++ // never merge more than two
			continue
		}
		out = append(out, cur)
	}
	return out
}

// splitLong breaks one over-long sentence at the coordinating conjunction or
// semicolon nearest its midpoint. Without a usable split point the sentence
// is returned unchanged.
func (h *Humanizer) splitLong(s string, limit float64) []string {
	words := strings.Fields(s)
	if float64(len(sentence.Words(s))) <= limit {
		return []string{s}
	}

	mid := len(words) / 2
	best := -1
	bestDist := len(words)
	for i, w := range words {
		if i == 0 || i == len(words)-1 {
			continue
		}
		bare := strings.ToLower(strings.TrimFunc(w, unicode.IsPunct))
		prevEndsSemi := strings.HasSuffix(words[i-1], ";")
		if !connectors[bare] && !prevEndsSemi {
			continue
		}
		if d := abs(i - mid); d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best <= 0 {
		return []string{s}
	}

	first := strings.Join(words[:best], " ")
	rest := words[best:]
	if connectors[strings.ToLower(strings.TrimFunc(rest[0], unicode.IsPunct))] {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return []string{s}
	}

	first = strings.TrimRight(first, " ,;") + "."
	second := capitalizeFirst(strings.Join(rest, " "))
	return []string{first, ensureTerminal(second)}
}

// mergeSentences joins two short sentences with a connector, lowercasing the
// head of the second unless it is the pronoun "I" or a proper continuation.
func mergeSentences(a, b string) string {
	a = strings.TrimRight(a, ".!?")
	b = lowerFirst(b)
	return a + ", and " + b
}

// --- step 2: vocabulary tier ---

func (h *Humanizer) adjustVocabulary(s string, t targets) string {
	if t.vocab >= simplifyBelow && t.vocab <= elevateAbove {
		return s
	}

	words := strings.Split(s, " ")
	for i, w := range words {
		prefix, core, suffix := splitPunct(w)
		if core == "" {
			continue
		}
		var repl string
		var ok bool
		if t.vocab < simplifyBelow {
			repl, ok = h.lex.Simplifications[strings.ToLower(core)]
		} else {
			repl, ok = h.lex.Elevation(core)
		}
		if !ok {
			continue
		}
		words[i] = prefix + matchCase(core, repl) + suffix
	}
	return strings.Join(words, " ")
}

// --- step 3: contractions ---

// adjustContractions contracts eligible expanded forms when the target rate
// exceeds the sentence's observed rate, and expands contractions when the
// target is below it. Only forms in the lexicon table are touched.
func (h *Humanizer) adjustContractions(s string, t targets) string {
	contracted, expanded := h.countForms(s)
	total := contracted + expanded
	if total == 0 {
		return s
	}
	observed := float64(contracted) / float64(total) * 100

	switch {
	case t.contractions > observed:
		for _, exp := range h.lex.SortedContractions() {
			s = replacePhrase(s, exp, h.lex.Contractions[exp])
		}
	case t.contractions < observed:
		for _, exp := range h.lex.SortedContractions() {
			s = replacePhrase(s, h.lex.Contractions[exp], exp)
		}
	}
	return s
}

func (h *Humanizer) countForms(s string) (contracted, expanded int) {
	lower := strings.ToLower(s)
	for exp, con := range h.lex.Contractions {
		contracted += countPhrase(lower, strings.ToLower(con))
		expanded += countPhrase(lower, exp)
	}
	return contracted, expanded
}

// --- step 4: personal voice ---

// voiceInjector prefixes impersonal declarative sentences with a personal
// marker on a fixed cadence, cycling through the expression list. One
// injector spans the whole text so the cadence carries across paragraphs.
type voiceInjector struct {
	expressions []string
	cadence     int
	eligible    int
	next        int
}

func newVoiceInjector(t targets) *voiceInjector {
	return &voiceInjector{expressions: t.expressions, cadence: t.cadence}
}

var impersonalOpeners = map[string]bool{
	"the": true, "this": true, "that": true, "these": true, "those": true,
	"one": true, "it": true, "there": true,
}

var reportingVerbs = map[string]bool{
	"indicates": true, "suggests": true, "shows": true, "demonstrates": true,
	"implies": true, "reveals": true, "confirms": true,
}

func (v *voiceInjector) maybeInject(s string) string {
	if len(v.expressions) == 0 || !isImpersonal(s) {
		return s
	}
	v.eligible++
	if (v.eligible-1)%v.cadence != 0 {
		return s
	}

	marker := v.expressions[v.next%len(v.expressions)]
	v.next++
	marker = capitalizeFirst(marker)

	// "The data indicates that X" reads best as "<marker> X".
	if rest, ok := strippedClaim(s); ok {
		return marker + " " + rest
	}
	return marker + " " + lowerFirst(s)
}

func isImpersonal(s string) bool {
	words := sentence.Words(s)
	if len(words) < 3 {
		return false
	}
	first := strings.ToLower(words[0])
	if !impersonalOpeners[first] {
		return false
	}
	lower := strings.ToLower(s)
	// Already carries a first-person voice.
	return !strings.Contains(lower, " i ") && !strings.HasPrefix(lower, "i ")
}

// strippedClaim rewrites "<subject> <reporting-verb> that X" to "X".
func strippedClaim(s string) (string, bool) {
	words := strings.Fields(s)
	for i := 1; i < len(words)-1 && i < 5; i++ {
		if !reportingVerbs[strings.ToLower(strings.TrimFunc(words[i], unicode.IsPunct))] {
			continue
		}
		rest := words[i+1:]
		if strings.EqualFold(rest[0], "that") {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return "", false
		}
		return lowerFirst(strings.Join(rest, " ")), true
	}
	return "", false
}

// --- step 5: persona rules ---

// personaRules is the parsed form of a persona's free-text rules: phrases to
// excise and literal substitutions, applied as a final pass.
type personaRules struct {
	avoid []string
	swaps [][2]string
}

// parseRules reads one directive per line: "avoid: phrase" and
// "swap: old -> new". Other lines are tone keywords handled elsewhere.
func parseRules(rules string) personaRules {
	var pr personaRules
	for _, line := range strings.Split(rules, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToLower(line), "avoid:"):
			phrase := strings.TrimSpace(line[len("avoid:"):])
			if phrase != "" {
				pr.avoid = append(pr.avoid, phrase)
			}
		case strings.HasPrefix(strings.ToLower(line), "swap:"):
			parts := strings.SplitN(line[len("swap:"):], "->", 2)
			if len(parts) != 2 {
				continue
			}
			from := strings.TrimSpace(parts[0])
			to := strings.TrimSpace(parts[1])
			if from != "" {
				pr.swaps = append(pr.swaps, [2]string{from, to})
			}
		}
	}
	return pr
}

func (pr personaRules) apply(text string) string {
	for _, phrase := range pr.avoid {
		text = excisePhrase(text, phrase)
	}
	for _, sw := range pr.swaps {
		text = replacePhrase(text, sw[0], sw[1])
	}
	return text
}

// --- shared text helpers ---

// replacePhrase substitutes whole-phrase occurrences of from with to,
// case-insensitively, preserving the capitalization of the original match.
func replacePhrase(s, from, to string) string {
	lower := strings.ToLower(s)
	lowerFrom := strings.ToLower(from)
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(lower[i:], lowerFrom)
		if idx < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		start := i + idx
		end := start + len(from)
		if !phraseBoundary(lower, start, end) {
			b.WriteString(s[i:end])
			i = end
			continue
		}
		b.WriteString(s[i:start])
		b.WriteString(matchCase(s[start:end], to))
		i = end
	}
}

func excisePhrase(s, phrase string) string {
	lowerPhrase := strings.ToLower(phrase)
	from := 0
	for {
		lower := strings.ToLower(s)
		idx := strings.Index(lower[from:], lowerPhrase)
		if idx < 0 {
			return s
		}
		start := from + idx
		end := start + len(phrase)
		if !phraseBoundary(lower, start, end) {
			from = end
			continue
		}
		// Take a trailing comma with the phrase ("Frankly, X" -> "X").
		for end < len(s) && (s[end] == ',' || s[end] == ';') {
			end++
		}
		rest := s[end:]
		if start == 0 {
			rest = capitalizeFirst(strings.TrimLeft(rest, " "))
		}
		s = strings.TrimSpace(strings.Join(strings.Fields(s[:start]+" "+rest), " "))
		from = 0
	}
}

func countPhrase(lower, phrase string) int {
	count := 0
	for i := 0; ; {
		idx := strings.Index(lower[i:], phrase)
		if idx < 0 {
			return count
		}
		start := i + idx
		end := start + len(phrase)
		if phraseBoundary(lower, start, end) {
			count++
		}
		i = end
	}
}

func phraseBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '\'' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// matchCase shapes repl after the capitalization pattern of orig: all-caps
// stays all-caps, a capitalized first letter stays capitalized.
func matchCase(orig, repl string) string {
	if orig == strings.ToUpper(orig) && strings.ContainsFunc(orig, unicode.IsLetter) {
		return strings.ToUpper(repl)
	}
	r, _ := utf8.DecodeRuneInString(orig)
	if unicode.IsUpper(r) {
		return capitalizeFirst(repl)
	}
	return repl
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// lowerFirst lowercases the leading rune unless the first word is "I" or
// looks like an acronym.
func lowerFirst(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}
	first := words[0]
	if first == "I" || strings.HasPrefix(first, "I'") {
		return s
	}
	if len(first) > 1 && first == strings.ToUpper(first) {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func ensureTerminal(s string) string {
	if s == "" {
		return s
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	if last == '.' || last == '!' || last == '?' {
		return s
	}
	return s + "."
}

func splitPunct(w string) (prefix, core, suffix string) {
	start := 0
	for start < len(w) {
		r, size := utf8.DecodeRuneInString(w[start:])
		if unicode.IsLetter(r) {
			break
		}
		start += size
	}
	end := len(w)
	for end > start {
		r, size := utf8.DecodeLastRuneInString(w[start:end])
		if unicode.IsLetter(r) || r == '\'' {
			break
		}
		end -= size
	}
	return w[:start], w[start:end], w[end:]
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
