// Package lexicon holds the word tables shared by the style profiler and the
// humanizer: stopwords, abbreviations, personal-expression markers, the
// bidirectional contraction table, and the vocabulary tier map. Tables live
// in an embedded JSON file so the corpus can grow without touching the
// transformation logic.
package lexicon

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

//go:embed tables.json
var tablesJSON []byte

// Lexicon is the parsed word-table set.
type Lexicon struct {
	Stopwords          []string          `json:"stopwords"`
	Abbreviations      []string          `json:"abbreviations"`
	PersonalMarkers    []string          `json:"personal_markers"`
	DefaultExpressions []string          `json:"default_expressions"`
	Contractions       map[string]string `json:"contractions"`
	Simplifications    map[string]string `json:"simplifications"`

	stopwordSet map[string]bool
	abbrevSet   map[string]bool
	expansions  map[string]string // contracted form -> expanded form
	elevations  map[string]string // simple word -> formal word
}

// Default returns the lexicon parsed from the embedded tables.
// The embedded data is validated at package init; Default never fails.
func Default() *Lexicon {
	return defaultLexicon
}

var defaultLexicon *Lexicon

func init() {
	lex, err := parse(tablesJSON)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded tables are invalid: %v", err))
	}
	defaultLexicon = lex
}

// Load reads a lexicon from r, for callers that maintain their own tables.
func Load(r io.Reader) (*Lexicon, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := json.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	if len(lex.Contractions) == 0 {
		return nil, fmt.Errorf("lexicon has no contraction table")
	}

	lex.stopwordSet = make(map[string]bool, len(lex.Stopwords))
	for _, w := range lex.Stopwords {
		lex.stopwordSet[strings.ToLower(w)] = true
	}
	lex.abbrevSet = make(map[string]bool, len(lex.Abbreviations))
	for _, a := range lex.Abbreviations {
		lex.abbrevSet[strings.ToLower(a)] = true
	}
	lex.expansions = make(map[string]string, len(lex.Contractions))
	for expanded, contracted := range lex.Contractions {
		lex.expansions[strings.ToLower(contracted)] = expanded
	}
	lex.elevations = make(map[string]string, len(lex.Simplifications))
	for _, formal := range sortedKeys(lex.Simplifications) {
		simple := lex.Simplifications[formal]
		// First formal synonym in key order wins when several map to the
		// same simple word.
		if _, ok := lex.elevations[simple]; !ok {
			lex.elevations[simple] = formal
		}
	}
	return &lex, nil
}

// SortedContractions returns the expanded forms of the contraction table,
// longest phrase first so overlapping forms ("will not" inside "we will not")
// resolve the same way every run.
func (l *Lexicon) SortedContractions() []string {
	keys := sortedKeys(l.Contractions)
	sort.SliceStable(keys, func(i, j int) bool {
		return len(keys[i]) > len(keys[j])
	})
	return keys
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsStopword reports whether w (any case) is on the stopword list.
func (l *Lexicon) IsStopword(w string) bool {
	return l.stopwordSet[strings.ToLower(w)]
}

// IsAbbreviation reports whether w (any case, no trailing period) is a known
// abbreviation that should not terminate a sentence.
func (l *Lexicon) IsAbbreviation(w string) bool {
	return l.abbrevSet[strings.ToLower(w)]
}

// Expansion returns the expanded form of a contracted word ("don't" ->
// "do not") and whether the contraction is in the table.
func (l *Lexicon) Expansion(contracted string) (string, bool) {
	v, ok := l.expansions[strings.ToLower(contracted)]
	return v, ok
}

// Elevation returns the formal synonym of a simple word ("use" ->
// "utilize") and whether one exists.
func (l *Lexicon) Elevation(simple string) (string, bool) {
	v, ok := l.elevations[strings.ToLower(simple)]
	return v, ok
}
