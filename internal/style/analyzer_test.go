package style

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const shortSample = "Too short to profile."

// sampleText is long enough to clear the minimum and has a known shape:
// plenty of contractions, a repeated topic word, and personal markers.
const sampleText = "I think the migration went well. We didn't lose any data during the " +
	"migration window. Honestly, the rollback plan wasn't needed at all. " +
	"I believe the team can't take full credit, because the tooling did most of the work. " +
	"The migration took three weekends to finish."

func TestAnalyzeRejectsShortSample(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.Analyze(shortSample)
	if !errors.Is(err, ErrInsufficientSample) {
		t.Fatalf("expected ErrInsufficientSample, got %v", err)
	}
}

func TestAnalyzeBoundaryLength(t *testing.T) {
	a := NewAnalyzer()

	exact := strings.Repeat("word here. ", 10)[:MinSampleChars]
	if _, err := a.Analyze(exact); err != nil {
		t.Errorf("sample of exactly %d runes should pass: %v", MinSampleChars, err)
	}

	under := exact[:MinSampleChars-1]
	if _, err := a.Analyze(under); !errors.Is(err, ErrInsufficientSample) {
		t.Errorf("sample of %d runes should fail, got %v", MinSampleChars-1, err)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := NewAnalyzer()

	first, err := a.Analyze(sampleText)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := a.Analyze(sampleText)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestAnalyzeSentenceStats(t *testing.T) {
	a := NewAnalyzer()

	sample := strings.Repeat("One two three four five. ", 6)
	p, err := a.Analyze(sample)
	if err != nil {
		t.Fatal(err)
	}
	if p.AvgSentenceLength != 5 {
		t.Errorf("AvgSentenceLength = %v, want 5", p.AvgSentenceLength)
	}
	if p.SentenceLengthStdev != 0 {
		t.Errorf("SentenceLengthStdev = %v, want 0", p.SentenceLengthStdev)
	}
}

func TestAnalyzeContractionsRate(t *testing.T) {
	a := NewAnalyzer()

	// Two contracted forms, two expanded forms: 50%.
	sample := "We didn't finish early. We could not finish early either way at all. " +
		"They won't mind the slip. They do not mind slips as a general rule."
	p, err := a.Analyze(sample)
	if err != nil {
		t.Fatal(err)
	}
	if p.ContractionsRate != 50 {
		t.Errorf("ContractionsRate = %v, want 50", p.ContractionsRate)
	}
}

func TestAnalyzeContractionsRateNoSites(t *testing.T) {
	a := NewAnalyzer()

	sample := strings.Repeat("Plain words only in every single sentence here today. ", 4)
	p, err := a.Analyze(sample)
	if err != nil {
		t.Fatal(err)
	}
	if p.ContractionsRate != 0 {
		t.Errorf("ContractionsRate = %v, want 0 for no eligible sites", p.ContractionsRate)
	}
}

func TestAnalyzeTopWordsExcludeStopwords(t *testing.T) {
	a := NewAnalyzer()

	p, err := a.Analyze(sampleText)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.TopWords) == 0 {
		t.Fatal("expected top words")
	}
	if p.TopWords[0].Word != "migration" {
		t.Errorf("top word = %+v, want migration", p.TopWords[0])
	}
	for _, w := range p.TopWords {
		if w.Word == "the" || w.Word == "a" {
			t.Errorf("stopword %q leaked into top words", w.Word)
		}
	}
}

func TestAnalyzeCommonStarters(t *testing.T) {
	a := NewAnalyzer()

	sample := strings.Repeat("In my view the plan works. ", 5) +
		"Something else entirely happened later that day."
	p, err := a.Analyze(sample)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.CommonStarters) == 0 {
		t.Fatal("expected starters")
	}
	if p.CommonStarters[0].Word != "in" || p.CommonStarters[0].Count != 5 {
		t.Errorf("first starter = %+v", p.CommonStarters[0])
	}
	found := false
	for _, s := range p.CommonStarters {
		if s.Word == "in my view" {
			found = true
		}
	}
	if !found {
		t.Errorf("three-word starter missing from %+v", p.CommonStarters)
	}
}

func TestAnalyzePersonalExpressions(t *testing.T) {
	a := NewAnalyzer()

	p, err := a.Analyze(sampleText)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"i think", "honestly", "i believe"}
	if !reflect.DeepEqual(p.PersonalExpressions, want) {
		t.Errorf("PersonalExpressions = %v, want %v", p.PersonalExpressions, want)
	}
}

func TestAnalyzeAbbreviationsDoNotSplit(t *testing.T) {
	a := NewAnalyzer()

	sample := "Dr. Reyes reviewed the draft with Mr. Cole yesterday afternoon and signed off. " +
		"Both of them approved the final version without further edits or comments."
	p, err := a.Analyze(sample)
	if err != nil {
		t.Fatal(err)
	}
	// Two sentences, not four: the honorific periods must not split.
	if p.AvgSentenceLength < 10 {
		t.Errorf("AvgSentenceLength = %v, abbreviation periods split sentences", p.AvgSentenceLength)
	}
}
