package pipeline

import (
	"fmt"
	"strings"

	"github.com/dlashko/plume/internal/format"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/style"
)

// buildSystemPrompt assembles the system message for an external rewrite:
// the rewriting contract, a style brief from the owner's profile, persona
// additions, and the formatting intent for the target channel.
func buildSystemPrompt(prof *style.Profile, persona *profile.Persona, target format.Target) string {
	var sb strings.Builder

	sb.WriteString("You are a writing coach that rewrites content into an authentic human voice.\n")
	sb.WriteString("Preserve the meaning; remove generic AI phrasing, disclaimers, and filler.\n")
	sb.WriteString("Do not add prefaces or explanations. Return only the rewritten content as plain text.\n")
	sb.WriteString("Do not copy sentences verbatim. Substantially rephrase to fit the style, vary\n")
	sb.WriteString("sentence length and cadence, and aim for noticeable lexical change while preserving intent.\n\n")

	sb.WriteString("Style Brief:\n")
	sb.WriteString(styleBrief(prof))

	if persona != nil {
		sb.WriteString("\nPersona Additions:\n")
		sb.WriteString(personaBrief(persona))
	}

	sb.WriteString("\nFormatting Intent:\n")
	sb.WriteString(formatIntent(target))

	return sb.String()
}

// styleBrief renders the profile's numbers as concrete writing directions.
// Without a profile it falls back to a generic human-voice brief.
func styleBrief(prof *style.Profile) string {
	if prof == nil {
		return "Voice: clear, friendly, confident.\n" +
			"Tone: conversational, direct, avoid fluff.\n" +
			"Pacing: varied sentence lengths, mostly short to medium.\n" +
			"Contractions: use when natural.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Target sentence length: ~%.0f words.\n", prof.AvgSentenceLength)
	fmt.Fprintf(&sb, "Vocabulary complexity (avg letters per word): ~%.1f.\n", prof.VocabComplexity)
	fmt.Fprintf(&sb, "Contractions usage: ~%.0f%%. Use contractions accordingly.\n", prof.ContractionsRate)
	fmt.Fprintf(&sb, "Common starters: %s.\n", orNA(wordList(prof.CommonStarters)))
	fmt.Fprintf(&sb, "Preferred words: %s.\n", orNA(wordList(prof.TopWords)))
	fmt.Fprintf(&sb, "Personal expressions to sprinkle sparingly: %s.\n", orNA(strings.Join(prof.PersonalExpressions, ", ")))
	sb.WriteString("Voice: authentic, human, specific. Avoid generic AI phrases.\n")
	sb.WriteString("Tone: confident, helpful; remove hedging and corporate filler.\n")
	return sb.String()
}

func personaBrief(p *profile.Persona) string {
	parts := []string{"Persona: " + p.Name}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if p.Voice != "" {
		parts = append(parts, "Voice guidelines: "+p.Voice)
	}
	if p.Tone != "" {
		parts = append(parts, "Tone guidelines: "+p.Tone)
	}
	if p.Rules != "" {
		parts = append(parts, "Specific rules: "+p.Rules)
	}
	return strings.Join(parts, "\n") + "\n"
}

func formatIntent(target format.Target) string {
	switch target {
	case format.TargetLinkedIn:
		return "Format intent: LinkedIn post. Bold hook, short paragraphs of one to three lines,\n" +
			"skimmable structure. No markdown syntax, plain text only.\n"
	case format.TargetEmail:
		return "Format intent: Email body. Direct opening, full sentences, courteous close.\n" +
			"No markdown, plain text only.\n"
	case format.TargetNotes:
		return "Format intent: Concise notes. Short lines, action items.\n" +
			"No markdown, plain text only.\n"
	default:
		return "Format intent: Standard prose. Clear flow, short paragraphs, readable cadence.\n" +
			"No markdown, plain text only.\n"
	}
}

func wordList(words []style.WordCount) string {
	names := make([]string, 0, len(words))
	for _, w := range words {
		names = append(names, w.Word)
	}
	return strings.Join(names, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
