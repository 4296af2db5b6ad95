// Package format shapes finished text for a delivery channel. Formatting is
// decoration only: it adds framing around the text but never rewrites,
// reorders, or drops the words themselves.
package format

import (
	"fmt"
	"strings"

	"github.com/dlashko/plume/internal/lexicon"
	"github.com/dlashko/plume/internal/sentence"
)

// Target identifies a delivery channel.
type Target string

const (
	TargetStandard Target = "standard"
	TargetLinkedIn Target = "linkedin"
	TargetEmail    Target = "email"
	TargetNotes    Target = "notes"
)

// ParseTarget maps a channel name to a Target. The empty string means
// standard output.
func ParseTarget(name string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(TargetStandard):
		return TargetStandard, nil
	case string(TargetLinkedIn):
		return TargetLinkedIn, nil
	case string(TargetEmail):
		return TargetEmail, nil
	case string(TargetNotes):
		return TargetNotes, nil
	default:
		return "", fmt.Errorf("unknown format %q", name)
	}
}

// Targets lists the supported channel names.
func Targets() []string {
	return []string{
		string(TargetStandard),
		string(TargetLinkedIn),
		string(TargetEmail),
		string(TargetNotes),
	}
}

const linkedInHashtags = "#writing #communication"

// Format renders text for the target channel.
func Format(text string, target Target) (string, error) {
	paragraphs := sentence.SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return "", nil
	}

	switch target {
	case TargetStandard:
		return sentence.JoinParagraphs(paragraphs), nil
	case TargetLinkedIn:
		paragraphs[0] = "\U0001F4A1 " + paragraphs[0]
		body := sentence.JoinParagraphs(paragraphs)
		return body + "\n\n" + linkedInHashtags, nil
	case TargetEmail:
		body := sentence.JoinParagraphs(paragraphs)
		return "Hi,\n\n" + body + "\n\nBest,", nil
	case TargetNotes:
		return bulletize(paragraphs), nil
	default:
		return "", fmt.Errorf("unknown format %q", target)
	}
}

// bulletize renders each sentence as a dash bullet, keeping paragraph groups
// separated by a blank line.
func bulletize(paragraphs []string) string {
	lex := lexicon.Default()
	groups := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		sentences := sentence.Split(para, lex.IsAbbreviation)
		lines := make([]string, 0, len(sentences))
		for _, s := range sentences {
			lines = append(lines, "- "+s)
		}
		groups = append(groups, strings.Join(lines, "\n"))
	}
	return strings.Join(groups, "\n\n")
}
