package lexicon

import (
	"strings"
	"testing"
)

func TestDefaultTables(t *testing.T) {
	lex := Default()

	if !lex.IsStopword("The") {
		t.Error("expected 'the' to be a stopword")
	}
	if lex.IsStopword("pipeline") {
		t.Error("'pipeline' should not be a stopword")
	}
	if !lex.IsAbbreviation("Dr") {
		t.Error("expected 'dr' to be an abbreviation")
	}
	if len(lex.DefaultExpressions) == 0 {
		t.Error("expected fallback personal expressions")
	}
}

func TestExpansion(t *testing.T) {
	lex := Default()

	exp, ok := lex.Expansion("don't")
	if !ok || exp != "do not" {
		t.Errorf("Expansion(don't) = %q, %v", exp, ok)
	}
	if _, ok := lex.Expansion("word"); ok {
		t.Error("'word' should not expand")
	}
}

func TestElevationDeterministic(t *testing.T) {
	lex := Default()

	first, ok := lex.Elevation("use")
	if !ok {
		t.Fatal("expected an elevation for 'use'")
	}
	for i := 0; i < 5; i++ {
		again, _ := lex.Elevation("use")
		if again != first {
			t.Fatalf("Elevation(use) unstable: %q then %q", first, again)
		}
	}
}

func TestSortedContractionsLongestFirst(t *testing.T) {
	lex := Default()

	keys := lex.SortedContractions()
	if len(keys) != len(lex.Contractions) {
		t.Fatalf("got %d keys, want %d", len(keys), len(lex.Contractions))
	}
	for i := 1; i < len(keys); i++ {
		if len(keys[i]) > len(keys[i-1]) {
			t.Fatalf("keys not ordered longest first: %q after %q", keys[i], keys[i-1])
		}
	}
}

func TestLoad(t *testing.T) {
	lex, err := Load(strings.NewReader(`{
		"stopwords": ["zz"],
		"contractions": {"will not": "won't"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if !lex.IsStopword("ZZ") {
		t.Error("custom stopword not loaded")
	}
	if exp, ok := lex.Expansion("won't"); !ok || exp != "will not" {
		t.Errorf("Expansion(won't) = %q, %v", exp, ok)
	}
}

func TestLoadRejectsEmptyContractionTable(t *testing.T) {
	if _, err := Load(strings.NewReader(`{"stopwords": ["a"]}`)); err == nil {
		t.Error("expected error for lexicon without contractions")
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	if _, err := Load(strings.NewReader("{nope")); err == nil {
		t.Error("expected error for invalid json")
	}
}
