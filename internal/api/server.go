// Package api exposes the rewrite pipeline over HTTP and MCP. Every route
// except /health sits behind bearer auth; the acting owner comes from the
// X-Plume-Owner header and defaults to "default".
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dlashko/plume/internal/cleaner"
	"github.com/dlashko/plume/internal/pipeline"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/sample"
	"github.com/dlashko/plume/internal/storage"
	"github.com/dlashko/plume/internal/style"
)

const maxRequestBodySize = 10 << 20 // 10MB, PDF samples arrive base64-encoded

// DefaultOwner is the owner used when a request carries no X-Plume-Owner header.
const DefaultOwner = "default"

const defaultActivityLimit = 20

// AppDeps holds everything the HTTP handlers need.
type AppDeps struct {
	Store    *storage.Store
	Profiles *profile.Manager
	Rewriter *pipeline.Rewriter
	Analyzer *style.Analyzer
	Samples  *sample.Loader
	Token    string
}

// NewAppHandler builds the HTTP API router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/rewrite", handleRewrite(deps))
		r.Post("/analyze", handleAnalyze(deps))
		r.Get("/profile", handleGetProfile(deps))
		r.Delete("/profile", handleDeleteProfile(deps))
		r.Get("/personas", handleListPersonas(deps))
		r.Post("/personas", handleCreatePersona(deps))
		r.Put("/personas/{id}", handleUpdatePersona(deps))
		r.Delete("/personas/{id}", handleDeletePersona(deps))
		r.Post("/personas/activate", handleActivatePersona(deps))
		r.Get("/activity", handleListActivity(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type RewriteRequest struct {
	Text      string `json:"text"`
	Humanize  bool   `json:"humanize"`
	PersonaID string `json:"persona_id"`
	Format    string `json:"format"`
}

type RewriteResponse struct {
	Success             bool                  `json:"success"`
	Original            string                `json:"original"`
	Cleaned             string                `json:"cleaned"`
	Humanized           string                `json:"humanized,omitempty"`
	Formatted           string                `json:"formatted"`
	Format              string                `json:"format"`
	HumanizationApplied bool                  `json:"humanization_applied"`
	HumanizationEngine  string                `json:"humanization_engine,omitempty"`
	PersonaUsed         string                `json:"persona_used,omitempty"`
	StyleSummary        *style.Profile        `json:"style_summary,omitempty"`
	ReductionPct        float64               `json:"reduction_pct"`
	Removed             []cleaner.RemovedSpan `json:"removed"`
}

func handleRewrite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req RewriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		owner := ownerFrom(r)
		res, err := deps.Rewriter.Rewrite(r.Context(), pipeline.Request{
			Owner:     owner,
			Text:      req.Text,
			Humanize:  req.Humanize,
			PersonaID: req.PersonaID,
			Format:    req.Format,
		})
		if err != nil {
			rewriteError(w, err)
			return
		}

		recordActivity(deps, owner, "rewrite", res)

		resp := RewriteResponse{
			Success:             true,
			Original:            req.Text,
			Cleaned:             res.Cleaned,
			Humanized:           res.Humanized,
			Formatted:           res.Formatted,
			Format:              res.Format,
			HumanizationApplied: res.HumanizationApplied,
			PersonaUsed:         res.PersonaName,
			ReductionPct:        res.ReductionPct,
			Removed:             res.Removed,
		}
		if res.HumanizationApplied {
			resp.HumanizationEngine = res.Engine
			resp.StyleSummary = res.StyleProfile
		}
		if resp.Removed == nil {
			resp.Removed = []cleaner.RemovedSpan{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func rewriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrMalformedInput):
		httpError(w, http.StatusBadRequest, "%v", err)
	case errors.Is(err, profile.ErrUnknownPersona):
		httpError(w, http.StatusNotFound, "%v", err)
	case errors.Is(err, profile.ErrNoActiveProfile):
		httpError(w, http.StatusNotFound, "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "rewrite failed: %v", err)
	}
}

type AnalyzeRequest struct {
	Text    string `json:"text"`
	Content string `json:"content"`
	Type    string `json:"type"`
	URL     string `json:"url"`
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		content := req.Content
		if content == "" {
			content = req.Text
		}
		text, err := deps.Samples.Load(r.Context(), sample.Input{
			Kind:    sample.Kind(req.Type),
			Content: content,
			URL:     req.URL,
		})
		if err != nil {
			httpError(w, http.StatusBadRequest, "loading sample: %v", err)
			return
		}

		prof, err := deps.Analyzer.Analyze(text)
		if err != nil {
			if errors.Is(err, style.ErrInsufficientSample) {
				httpError(w, http.StatusBadRequest, "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "analyzing sample: %v", err)
			return
		}

		owner := ownerFrom(r)
		if err := deps.Profiles.SetStyleProfile(owner, prof); err != nil {
			httpError(w, http.StatusInternalServerError, "saving profile: %v", err)
			return
		}

		saveActivity(deps, storage.Activity{
			Owner:   owner,
			Action:  "analyze",
			Engine:  pipeline.EngineHeuristic,
			CharsIn: len(text),
		})

		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"style_summary": prof,
		})
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prof, found, err := deps.Profiles.StyleProfile(ownerFrom(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading profile: %v", err)
			return
		}
		resp := map[string]any{
			"success":     true,
			"has_profile": found,
		}
		if found {
			resp["style_summary"] = prof
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDeleteProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Profiles.ClearStyleProfile(ownerFrom(r)); err != nil {
			httpError(w, http.StatusInternalServerError, "clearing profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleListPersonas(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := ownerFrom(r)
		personas, err := deps.Profiles.Personas(owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing personas: %v", err)
			return
		}
		if personas == nil {
			personas = []profile.Persona{}
		}
		resp := map[string]any{
			"success":  true,
			"personas": personas,
		}
		if active, err := deps.Profiles.ActivePersona(owner); err == nil && active != nil {
			resp["active_id"] = active.ID
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleCreatePersona(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var p profile.Persona
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if p.Name == "" {
			httpError(w, http.StatusBadRequest, "name is required")
			return
		}
		created, err := deps.Profiles.CreatePersona(ownerFrom(r), p)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "creating persona: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"persona": created,
		})
	}
}

func handleUpdatePersona(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var p profile.Persona
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		p.ID = chi.URLParam(r, "id")
		updated, err := deps.Profiles.UpdatePersona(ownerFrom(r), p)
		if errors.Is(err, profile.ErrUnknownPersona) {
			httpError(w, http.StatusNotFound, "persona not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "updating persona: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"persona": updated,
		})
	}
}

func handleDeletePersona(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Profiles.DeletePersona(ownerFrom(r), chi.URLParam(r, "id"))
		if errors.Is(err, profile.ErrUnknownPersona) {
			httpError(w, http.StatusNotFound, "persona not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "deleting persona: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleActivatePersona(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.ID == "" {
			httpError(w, http.StatusBadRequest, "id is required")
			return
		}
		err := deps.Profiles.Activate(ownerFrom(r), req.ID)
		if errors.Is(err, profile.ErrUnknownPersona) {
			httpError(w, http.StatusNotFound, "persona not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "activating persona: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

type activityView struct {
	ID           string  `json:"id"`
	Action       string  `json:"action"`
	Format       string  `json:"format,omitempty"`
	Engine       string  `json:"engine,omitempty"`
	CharsIn      int     `json:"chars_in"`
	CharsOut     int     `json:"chars_out"`
	ReductionPct float64 `json:"reduction_pct"`
	CreatedAt    string  `json:"created_at"`
}

func handleListActivity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", defaultActivityLimit, 100)
		entries, err := deps.Store.RecentActivities(ownerFrom(r), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing activity: %v", err)
			return
		}
		views := make([]activityView, len(entries))
		for i, a := range entries {
			views[i] = activityView{
				ID:           a.ID,
				Action:       a.Action,
				Format:       a.Format,
				Engine:       a.Engine,
				CharsIn:      a.CharsIn,
				CharsOut:     a.CharsOut,
				ReductionPct: a.ReductionPct,
				CreatedAt:    a.CreatedAt.Format(time.RFC3339),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"activities": views,
		})
	}
}

func recordActivity(deps AppDeps, owner, action string, res pipeline.Result) {
	saveActivity(deps, storage.Activity{
		Owner:        owner,
		Action:       action,
		Format:       res.Format,
		Engine:       res.Engine,
		CharsIn:      len(res.Original),
		CharsOut:     len(res.Formatted),
		ReductionPct: res.ReductionPct,
	})
}

// saveActivity records the feed entry on a best-effort basis. A feed write
// failure never fails the request that produced it.
func saveActivity(deps AppDeps, a storage.Activity) {
	if deps.Store == nil {
		return
	}
	a.ID = uuid.New().String()
	if err := deps.Store.SaveActivity(a); err != nil {
		slog.Warn("recording activity failed", "action", a.Action, "error", err)
	}
}

func ownerFrom(r *http.Request) string {
	if owner := r.Header.Get("X-Plume-Owner"); owner != "" {
		return owner
	}
	return DefaultOwner
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   fmt.Sprintf(format, args...),
	})
}
