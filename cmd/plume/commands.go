package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dlashko/plume/internal/cleaner"
	"github.com/dlashko/plume/internal/config"
	"github.com/dlashko/plume/internal/format"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/style"
)

// readInput resolves --text / --file / stdin into the text to operate on.
func readInput(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")

	switch {
	case text != "":
		return text, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
		return string(data), nil
	default:
		stat, err := os.Stdin.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", fmt.Errorf("reading stdin: %w", err)
			}
			return string(data), nil
		}
		return "", fmt.Errorf("one of --text, --file, or piped stdin is required")
	}
}

// --- rewrite ---

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Clean text and rewrite it in your voice",
	Long: `Clean text and rewrite it in your voice.

Examples:
  plume rewrite --text "As an AI language model, I suggest..."
  plume rewrite --file draft.txt --format linkedin
  cat draft.txt | plume rewrite --persona casual-me`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd)
		if err != nil {
			return err
		}
		personaID, _ := cmd.Flags().GetString("persona")
		formatName, _ := cmd.Flags().GetString("format")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/rewrite", map[string]any{
			"text":       text,
			"humanize":   true,
			"persona_id": personaID,
			"format":     formatName,
		})
		if err != nil {
			return err
		}

		var result struct {
			Formatted          string  `json:"formatted"`
			HumanizationEngine string  `json:"humanization_engine"`
			PersonaUsed        string  `json:"persona_used"`
			ReductionPct       float64 `json:"reduction_pct"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Formatted)
		if result.PersonaUsed != "" {
			printStatus("Persona", "%s", result.PersonaUsed)
		}
		printStatus("Engine", "%s", result.HumanizationEngine)
		if result.ReductionPct > 0 {
			printStatus("Trimmed", "%.0f%%", result.ReductionPct)
		}
		return nil
	},
}

// --- clean ---

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Strip AI watermarks from text (runs locally, no server needed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd)
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")

		res := cleaner.New().Clean(text)
		fmt.Println(res.Cleaned)
		if verbose {
			for _, span := range res.Removed {
				printStatus("Removed", "[%s] %q", span.PatternID, span.Text)
			}
		}
		return nil
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a writing sample and store your style profile",
	Long: `Analyze a writing sample and store your style profile.

Examples:
  plume analyze --file my-blog-post.md
  plume analyze --url https://example.com/my-article
  plume analyze --pdf writing-sample.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		pdfPath, _ := cmd.Flags().GetString("pdf")

		req := map[string]any{}
		switch {
		case url != "":
			req["type"] = "url"
			req["url"] = url
		case pdfPath != "":
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("reading pdf: %w", err)
			}
			req["type"] = "pdf"
			req["content"] = base64.StdEncoding.EncodeToString(data)
		default:
			text, err := readInput(cmd)
			if err != nil {
				return err
			}
			req["type"] = "text"
			req["text"] = text
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/analyze", req)
		if err != nil {
			return err
		}

		var result struct {
			StyleSummary style.Profile `json:"style_summary"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Style profile saved")
		printProfile(result.StyleSummary)
		return nil
	},
}

func printProfile(p style.Profile) {
	printStatus("Avg sentence length", "%.1f words", p.AvgSentenceLength)
	printStatus("Vocabulary complexity", "%.1f", p.VocabComplexity)
	printStatus("Contractions", "%.0f%%", p.ContractionsRate)
	if len(p.TopWords) > 0 {
		words := make([]string, 0, len(p.TopWords))
		for _, w := range p.TopWords {
			words = append(words, w.Word)
		}
		printStatus("Top words", "%s", strings.Join(words, ", "))
	}
	if len(p.PersonalExpressions) > 0 {
		printStatus("Expressions", "%s", strings.Join(p.PersonalExpressions, ", "))
	}
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your style profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored style profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var result struct {
			HasProfile   bool          `json:"has_profile"`
			StyleSummary style.Profile `json:"style_summary"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.HasProfile {
			printWarning("No style profile stored. Run `plume analyze` first.")
			return nil
		}
		printProfile(result.StyleSummary)
		return nil
	},
}

var profileClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored style profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/profile")
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Style profile cleared")
		return nil
	},
}

// --- persona ---

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Manage personas",
}

var personaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/personas")
		if err != nil {
			return err
		}

		var result struct {
			Personas []profile.Persona `json:"personas"`
			ActiveID string            `json:"active_id"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Personas) == 0 {
			fmt.Println("No personas. Create one with `plume persona create`.")
			return nil
		}
		for _, p := range result.Personas {
			marker := "  "
			if p.ID == result.ActiveID {
				marker = colorize(colorGreen, "* ")
			}
			fmt.Printf("%s%s  %s", marker, colorize(colorCyan, p.ID[:8]), colorize(colorBold, p.Name))
			if p.Tone != "" {
				fmt.Printf("  (%s)", p.Tone)
			}
			fmt.Println()
		}
		return nil
	},
}

var personaCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		voice, _ := cmd.Flags().GetString("voice")
		tone, _ := cmd.Flags().GetString("tone")
		rules, _ := cmd.Flags().GetString("rules")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/personas", map[string]string{
			"name":        args[0],
			"description": description,
			"voice":       voice,
			"tone":        tone,
			"rules":       rules,
		})
		if err != nil {
			return err
		}

		var result struct {
			Persona profile.Persona `json:"persona"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Created persona %s (%s)", result.Persona.Name, result.Persona.ID[:8])
		return nil
	},
}

var personaActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Set the active persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		id, err := resolvePersonaID(cmd, client, args[0])
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/personas/activate", map[string]string{"id": id})
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Activated persona %s", id[:8])
		return nil
	},
}

var personaDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		id, err := resolvePersonaID(cmd, client, args[0])
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/personas/"+id)
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted persona %s", id[:8])
		return nil
	},
}

// resolvePersonaID accepts a full persona id, an id prefix, or a name.
func resolvePersonaID(cmd *cobra.Command, client *apiClient, ref string) (string, error) {
	resp, err := client.get(cmd.Context(), "/personas")
	if err != nil {
		return "", err
	}
	var result struct {
		Personas []profile.Persona `json:"personas"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	for _, p := range result.Personas {
		if p.ID == ref || strings.HasPrefix(p.ID, ref) || strings.EqualFold(p.Name, ref) {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("no persona matches %q", ref)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		v, err := config.GetKey(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	rewriteCmd.Flags().String("text", "", "text to rewrite")
	rewriteCmd.Flags().String("file", "", "file to rewrite")
	rewriteCmd.Flags().String("persona", "", "persona id to apply")
	rewriteCmd.Flags().String("format", "", "output channel: "+strings.Join(format.Targets(), ", "))

	cleanCmd.Flags().String("text", "", "text to clean")
	cleanCmd.Flags().String("file", "", "file to clean")
	cleanCmd.Flags().Bool("verbose", false, "show removed spans")

	analyzeCmd.Flags().String("text", "", "writing sample text")
	analyzeCmd.Flags().String("file", "", "writing sample file")
	analyzeCmd.Flags().String("url", "", "URL of a writing sample")
	analyzeCmd.Flags().String("pdf", "", "PDF file of a writing sample")

	personaCreateCmd.Flags().String("description", "", "persona description")
	personaCreateCmd.Flags().String("voice", "", "voice guidance")
	personaCreateCmd.Flags().String("tone", "", "tone keywords (e.g. casual, formal)")
	personaCreateCmd.Flags().String("rules", "", "rules, one per line (avoid: <phrase>, swap: <old> -> <new>)")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileClearCmd)

	personaCmd.AddCommand(personaListCmd)
	personaCmd.AddCommand(personaCreateCmd)
	personaCmd.AddCommand(personaActivateCmd)
	personaCmd.AddCommand(personaDeleteCmd)

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
