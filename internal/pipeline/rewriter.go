// Package pipeline orchestrates the full rewrite flow: watermark cleanup,
// optional style-guided humanization, and channel formatting. Humanization
// prefers a local inference backend when one is reachable and falls back to
// the deterministic heuristic rewriter when it is not.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlashko/plume/internal/cleaner"
	"github.com/dlashko/plume/internal/engine"
	"github.com/dlashko/plume/internal/format"
	"github.com/dlashko/plume/internal/humanize"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/style"
)

// ErrMalformedInput is returned when a request carries no usable text.
var ErrMalformedInput = errors.New("input text is empty")

// EngineHeuristic and EngineExternal identify which rewriter produced the
// humanized text.
const (
	EngineHeuristic = "heuristic"
	EngineExternal  = "external"
)

// similarityCeiling is the token-set overlap above which an external rewrite
// is considered too close to the input and retried once with a bolder prompt.
const similarityCeiling = 0.9

const defaultChatTimeout = 60 * time.Second

// Request is one rewrite job.
type Request struct {
	Owner     string
	Text      string
	Humanize  bool
	PersonaID string
	Format    string
}

// Result carries every stage of a finished rewrite.
type Result struct {
	Original            string                `json:"-"`
	Cleaned             string                `json:"cleaned"`
	Humanized           string                `json:"humanized,omitempty"`
	Formatted           string                `json:"formatted"`
	Format              string                `json:"format"`
	HumanizationApplied bool                  `json:"humanization_applied"`
	Engine              string                `json:"engine"`
	PersonaID           string                `json:"persona_id,omitempty"`
	PersonaName         string                `json:"persona_name,omitempty"`
	StyleProfile        *style.Profile        `json:"-"`
	Removed             []cleaner.RemovedSpan `json:"removed"`
	ReductionPct        float64               `json:"reduction_pct"`
}

// Rewriter runs the cleanup, humanization, and formatting stages.
type Rewriter struct {
	cleaner   *cleaner.Cleaner
	humanizer *humanize.Humanizer
	profiles  *profile.Manager
	engine    engine.Engine
	model     string
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithEngine attaches an inference backend. Without one every humanization
// uses the heuristic rewriter.
func WithEngine(e engine.Engine, model string) Option {
	return func(r *Rewriter) {
		r.engine = e
		r.model = model
	}
}

// WithChatTimeout bounds a single external rewrite call.
func WithChatTimeout(d time.Duration) Option {
	return func(r *Rewriter) { r.timeout = d }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) { r.logger = l }
}

// NewRewriter builds a Rewriter over the given profile manager.
func NewRewriter(profiles *profile.Manager, opts ...Option) *Rewriter {
	r := &Rewriter{
		cleaner:   cleaner.New(),
		humanizer: humanize.New(),
		profiles:  profiles,
		timeout:   defaultChatTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clean runs only the watermark cleanup stage.
func (r *Rewriter) Clean(text string) (cleaner.Result, error) {
	if strings.TrimSpace(text) == "" {
		return cleaner.Result{}, ErrMalformedInput
	}
	return r.cleaner.Clean(text), nil
}

// Rewrite runs the full pipeline for one request.
func (r *Rewriter) Rewrite(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, ErrMalformedInput
	}

	target, err := format.ParseTarget(req.Format)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	cleaned := r.cleaner.Clean(req.Text)
	res := Result{
		Original: req.Text,
		Cleaned:  cleaned.Cleaned,
		Format:   string(target),
		Engine:   EngineHeuristic,
		Removed:  cleaned.Removed,
	}
	if orig := utf8.RuneCountInString(req.Text); orig > 0 {
		res.ReductionPct = 100 * float64(orig-utf8.RuneCountInString(cleaned.Cleaned)) / float64(orig)
	}

	working := cleaned.Cleaned
	if req.Humanize && working != "" {
		persona, err := r.resolvePersona(req)
		if err != nil {
			return Result{}, err
		}
		if persona != nil {
			res.PersonaID = persona.ID
			res.PersonaName = persona.Name
		}

		prof, found, err := r.profiles.StyleProfile(req.Owner)
		if err != nil {
			return Result{}, fmt.Errorf("loading style profile: %w", err)
		}
		if !found {
			return Result{}, profile.ErrNoActiveProfile
		}
		res.StyleProfile = &prof

		humanized, usedEngine := r.humanizeText(ctx, working, prof, persona, target)
		res.Humanized = humanized
		res.HumanizationApplied = true
		res.Engine = usedEngine
		working = humanized
	}

	formatted, err := format.Format(working, target)
	if err != nil {
		return Result{}, err
	}
	res.Formatted = formatted
	return res, nil
}

// resolvePersona picks the request's persona, or the owner's active one.
func (r *Rewriter) resolvePersona(req Request) (*profile.Persona, error) {
	if req.PersonaID != "" {
		p, err := r.profiles.Persona(req.Owner, req.PersonaID)
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	return r.profiles.ActivePersona(req.Owner)
}

// humanizeText prefers the external engine and falls back to the heuristic
// rewriter on any failure, so a rewrite request never fails because the
// inference backend is down.
func (r *Rewriter) humanizeText(ctx context.Context, text string, prof style.Profile, persona *profile.Persona, target format.Target) (string, string) {
	if r.engine != nil && r.engine.IsRunning(ctx) {
		out, err := r.externalRewrite(ctx, text, &prof, persona, target)
		if err != nil {
			r.logger.Warn("external rewrite failed, using heuristic rewriter", "error", err)
		} else if out != "" {
			return out, EngineExternal
		}
	}
	return r.humanizer.Humanize(text, prof, persona), EngineHeuristic
}

// externalRewrite asks the model for a style-guided rewrite. A response that
// barely changes the input gets one bolder retry.
func (r *Rewriter) externalRewrite(ctx context.Context, text string, prof *style.Profile, persona *profile.Persona, target format.Target) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	system := buildSystemPrompt(prof, persona, target)
	messages := []engine.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: "Rewrite the following to match the style.\n\nINPUT:\n" + text},
	}

	out, err := r.engine.Chat(ctx, r.model, messages)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", nil
	}

	if tokenSimilarity(text, out) > similarityCeiling {
		retry := append(messages, engine.Message{Role: "assistant", Content: out}, engine.Message{
			Role: "user",
			Content: "Rewrite much more boldly. Change sentence structures, merge or split sentences, " +
				"and replace common word choices while preserving the meaning.",
		})
		bolder, err := r.engine.Chat(ctx, r.model, retry)
		if err != nil {
			r.logger.Warn("bolder retry failed, keeping first rewrite", "error", err)
			return out, nil
		}
		if b := strings.TrimSpace(bolder); b != "" {
			return b, nil
		}
	}
	return out, nil
}

// tokenSimilarity is the Jaccard overlap of the two texts' word sets.
func tokenSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
