package cleaner

import (
	"strings"
	"testing"
)

func TestCleanEmptyInput(t *testing.T) {
	c := New()
	res := c.Clean("   \n ")
	if res.Cleaned != "" || len(res.Removed) != 0 {
		t.Errorf("Clean(blank) = %+v", res)
	}
}

func TestCleanPlainTextUntouched(t *testing.T) {
	c := New()
	text := "Renewable energy adoption grew last year.\n\nSolar led the increase in most regions."
	res := c.Clean(text)
	if res.Cleaned != text {
		t.Errorf("Clean changed clean text:\n got %q\nwant %q", res.Cleaned, text)
	}
	if len(res.Removed) != 0 {
		t.Errorf("unexpected removals: %+v", res.Removed)
	}
}

func TestCleanDropsAIIntroduction(t *testing.T) {
	c := New()
	text := "As an AI language model, I cannot provide personal opinions. " +
		"Renewable energy is good. Please consult a professional for advice."
	res := c.Clean(text)

	if res.Cleaned != "Renewable energy is good." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
	if len(res.Removed) != 2 {
		t.Fatalf("Removed = %+v, want 2 spans", res.Removed)
	}
	if res.Removed[0].PatternID != "ai-introduction" {
		t.Errorf("first span = %+v", res.Removed[0])
	}
	if res.Removed[1].PatternID != "consult-professional" {
		t.Errorf("second span = %+v", res.Removed[1])
	}
}

func TestCleanSelfIdentification(t *testing.T) {
	c := New()
	res := c.Clean("I'm an AI assistant, so take this with a grain of salt. The numbers are accurate.")
	if res.Cleaned != "The numbers are accurate." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
}

func TestCleanExcisesOpener(t *testing.T) {
	c := New()
	res := c.Clean("It's important to note that the deadline moved to Friday.")

	if res.Cleaned != "The deadline moved to Friday." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
	if len(res.Removed) != 1 || res.Removed[0].Tier != TierTemplate {
		t.Errorf("Removed = %+v", res.Removed)
	}
}

func TestCleanExcisesParenthetical(t *testing.T) {
	c := New()
	res := c.Clean("The forecast (as an AI, I estimate roughly) calls for rain.")
	if res.Cleaned != "The forecast calls for rain." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
}

func TestCleanDropsSentenceWhenNothingSurvives(t *testing.T) {
	c := New()
	res := c.Clean("I'd be happy to help with that! The report covers three quarters.")
	if res.Cleaned != "The report covers three quarters." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
}

func TestCleanPreservesLineBreaks(t *testing.T) {
	c := New()
	text := "First point about the plan.\nSecond point about the budget.\nThird point about the schedule."
	res := c.Clean(text)
	if res.Cleaned != text {
		t.Errorf("Clean changed line breaks:\n got %q\nwant %q", res.Cleaned, text)
	}
	if len(res.Removed) != 0 {
		t.Errorf("unexpected removals: %+v", res.Removed)
	}
}

func TestCleanDropsLineKeepsOtherBreaks(t *testing.T) {
	c := New()
	text := "First point about the plan.\nAs an AI, I cannot verify this.\nThird point about the schedule."
	res := c.Clean(text)
	want := "First point about the plan.\nThird point about the schedule."
	if res.Cleaned != want {
		t.Errorf("Cleaned = %q, want %q", res.Cleaned, want)
	}
	if len(res.Removed) != 1 {
		t.Errorf("Removed = %+v", res.Removed)
	}
}

func TestCleanDropsWatermarkOnlyParagraph(t *testing.T) {
	c := New()
	text := "The migration finished on schedule.\n\nAs an AI, I cannot verify this independently."
	res := c.Clean(text)
	if res.Cleaned != "The migration finished on schedule." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
}

func TestCleanDropsTrailingDisclaimerParagraph(t *testing.T) {
	c := New()
	text := "Index funds spread risk across the market.\n\n" +
		"This information is for educational purposes only."
	res := c.Clean(text)

	if res.Cleaned != "Index funds spread risk across the market." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
	last := res.Removed[len(res.Removed)-1]
	if last.Tier != TierTrailing {
		t.Errorf("expected trailing-tier span, got %+v", last)
	}
}

func TestCleanKeepsMidTextEducationalParagraph(t *testing.T) {
	c := New()
	text := "This guide is for educational purposes only.\n\nNow the actual content follows here."
	res := c.Clean(text)
	if !strings.Contains(res.Cleaned, "educational purposes") {
		t.Errorf("non-trailing paragraph dropped: %q", res.Cleaned)
	}
}

func TestCleanIdempotent(t *testing.T) {
	c := New()
	text := "As an AI model, I lack opinions. It's important to note that rates fell. " +
		"The market recovered.\n\nPlease consult a financial advisor before investing."

	once := c.Clean(text)
	twice := c.Clean(once.Cleaned)
	if twice.Cleaned != once.Cleaned {
		t.Errorf("not idempotent:\n once %q\ntwice %q", once.Cleaned, twice.Cleaned)
	}
	if len(twice.Removed) != 0 {
		t.Errorf("second pass removed spans: %+v", twice.Removed)
	}
}

func TestCleanNormalizesCRLF(t *testing.T) {
	c := New()
	res := c.Clean("First line here.\r\n\r\nSecond paragraph here.")
	if res.Cleaned != "First line here.\n\nSecond paragraph here." {
		t.Errorf("Cleaned = %q", res.Cleaned)
	}
}

func TestCleanReportsRemovedText(t *testing.T) {
	c := New()
	res := c.Clean("As an AI, I have no view on this. The vote passed.")
	if len(res.Removed) != 1 {
		t.Fatalf("Removed = %+v", res.Removed)
	}
	if res.Removed[0].Text != "As an AI, I have no view on this." {
		t.Errorf("span text = %q", res.Removed[0].Text)
	}
}
