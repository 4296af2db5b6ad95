package cleaner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
)

// Tier orders pattern application: exact phrase sentences first, then
// templated spans, then the trailing-disclaimer paragraph heuristic.
type Tier string

const (
	TierPhrase   Tier = "phrase"
	TierTemplate Tier = "template"
	TierTrailing Tier = "trailing"
)

// Pattern is one entry of the watermark library.
type Pattern struct {
	ID          string `json:"id"`
	Tier        Tier   `json:"tier"`
	Expr        string `json:"expr"`
	Description string `json:"description"`

	re *regexp.Regexp
}

// Library is a set of compiled watermark patterns grouped by tier.
type Library struct {
	phrase   []Pattern
	template []Pattern
	trailing []Pattern
}

//go:embed patterns.json
var patternsJSON []byte

type libraryFile struct {
	Patterns []Pattern `json:"patterns"`
}

// DefaultLibrary returns the library compiled from the embedded pattern file.
// The embedded data is validated at package init; DefaultLibrary never fails.
func DefaultLibrary() *Library {
	return defaultLibrary
}

var defaultLibrary *Library

func init() {
	lib, err := parseLibrary(patternsJSON)
	if err != nil {
		panic(fmt.Sprintf("cleaner: embedded pattern library is invalid: %v", err))
	}
	defaultLibrary = lib
}

// LoadLibrary reads and compiles a pattern library from r, for callers that
// extend the corpus with their own pattern file.
func LoadLibrary(r io.Reader) (*Library, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading pattern library: %w", err)
	}
	return parseLibrary(data)
}

func parseLibrary(data []byte) (*Library, error) {
	var f libraryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing pattern library: %w", err)
	}
	if len(f.Patterns) == 0 {
		return nil, fmt.Errorf("pattern library is empty")
	}

	var lib Library
	for _, p := range f.Patterns {
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p.ID, err)
		}
		p.re = re
		switch p.Tier {
		case TierPhrase:
			lib.phrase = append(lib.phrase, p)
		case TierTemplate:
			lib.template = append(lib.template, p)
		case TierTrailing:
			lib.trailing = append(lib.trailing, p)
		default:
			return nil, fmt.Errorf("pattern %q has unknown tier %q", p.ID, p.Tier)
		}
	}
	return &lib, nil
}

// Patterns returns all patterns in application order.
func (l *Library) Patterns() []Pattern {
	out := make([]Pattern, 0, len(l.phrase)+len(l.template)+len(l.trailing))
	out = append(out, l.phrase...)
	out = append(out, l.template...)
	out = append(out, l.trailing...)
	return out
}
