package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dlashko/plume/internal/pipeline"
	"github.com/dlashko/plume/internal/profile"
	"github.com/dlashko/plume/internal/sample"
	"github.com/dlashko/plume/internal/storage"
	"github.com/dlashko/plume/internal/style"
)

const testToken = "test-token"

func newTestServer(t *testing.T) (*httptest.Server, AppDeps) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	profiles := profile.NewManager(store)
	deps := AppDeps{
		Store:    store,
		Profiles: profiles,
		Rewriter: pipeline.NewRewriter(profiles),
		Analyzer: style.NewAnalyzer(),
		Samples:  sample.NewLoader(),
		Token:    testToken,
	}
	srv := httptest.NewServer(NewAppHandler(deps))
	t.Cleanup(srv.Close)
	return srv, deps
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

const serverSample = "I think shipping small changes daily beats giant releases. Honestly, most outages I have seen trace back to a release that bundled ten unrelated changes. I believe small diffs keep reviews honest and rollbacks boring, and boring rollbacks are the goal."

func TestHealthNoAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/profile")
	if err != nil {
		t.Fatalf("GET /profile: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthWrongToken(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/profile", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRewriteEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/rewrite", RewriteRequest{
		Text: "As an AI language model, I cannot form opinions. The migration finished ahead of schedule.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body RewriteResponse
	decodeBody(t, resp, &body)
	if !body.Success {
		t.Error("expected success")
	}
	if strings.Contains(body.Formatted, "AI language model") {
		t.Errorf("watermark survived: %q", body.Formatted)
	}
	if len(body.Removed) == 0 {
		t.Error("expected removed spans")
	}
	if body.HumanizationApplied {
		t.Error("humanization should be off by default")
	}
	if body.ReductionPct <= 0 {
		t.Errorf("ReductionPct = %f, want > 0", body.ReductionPct)
	}
}

func TestRewriteEndpointHumanize(t *testing.T) {
	srv, deps := newTestServer(t)
	if err := deps.Profiles.SetStyleProfile(DefaultOwner, style.Profile{
		AvgSentenceLength: 12, VocabComplexity: 5, ContractionsRate: 60,
	}); err != nil {
		t.Fatalf("SetStyleProfile: %v", err)
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/rewrite", RewriteRequest{
		Text:     "The data indicates that this approach does not yield inferior results.",
		Humanize: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body RewriteResponse
	decodeBody(t, resp, &body)
	if !body.HumanizationApplied {
		t.Error("expected humanization")
	}
	if body.HumanizationEngine != pipeline.EngineHeuristic {
		t.Errorf("engine = %q, want heuristic", body.HumanizationEngine)
	}
	if body.Humanized == "" {
		t.Error("expected humanized text")
	}
	if body.StyleSummary == nil || body.StyleSummary.AvgSentenceLength != 12 {
		t.Errorf("StyleSummary = %+v, want the stored profile", body.StyleSummary)
	}
}

func TestRewriteEndpointHumanizeWithoutProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/rewrite", RewriteRequest{
		Text:     "The data indicates that this approach yields superior results.",
		Humanize: true,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRewriteEndpointEmptyText(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/rewrite", RewriteRequest{Text: "   "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRewriteEndpointUnknownPersona(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/rewrite", RewriteRequest{
		Text: "Hello there, friend.", Humanize: true, PersonaID: "missing",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRewriteEndpointUnknownFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/rewrite", RewriteRequest{
		Text: "Hello there, friend.", Format: "telegraph",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/analyze", AnalyzeRequest{Text: serverSample})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Success      bool          `json:"success"`
		StyleSummary style.Profile `json:"style_summary"`
	}
	decodeBody(t, resp, &body)
	if !body.Success || body.StyleSummary.AvgSentenceLength <= 0 {
		t.Fatalf("unexpected body: %+v", body)
	}

	// Profile endpoint now reports it.
	resp = doJSON(t, http.MethodGet, srv.URL+"/profile", nil)
	var profBody struct {
		Success    bool `json:"success"`
		HasProfile bool `json:"has_profile"`
	}
	decodeBody(t, resp, &profBody)
	if !profBody.HasProfile {
		t.Error("expected has_profile after analyze")
	}
}

func TestAnalyzeEndpointTooShort(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/analyze", AnalyzeRequest{Text: "Too short."})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProfileLifecycle(t *testing.T) {
	srv, deps := newTestServer(t)
	if err := deps.Profiles.SetStyleProfile(DefaultOwner, style.Profile{AvgSentenceLength: 10}); err != nil {
		t.Fatalf("SetStyleProfile: %v", err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/profile", nil)
	var body struct {
		HasProfile bool `json:"has_profile"`
	}
	decodeBody(t, resp, &body)
	if !body.HasProfile {
		t.Fatal("expected profile")
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/profile", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/profile", nil)
	decodeBody(t, resp, &body)
	if body.HasProfile {
		t.Error("profile should be gone")
	}
}

func TestOwnerIsolation(t *testing.T) {
	srv, deps := newTestServer(t)
	if err := deps.Profiles.SetStyleProfile("alice", style.Profile{AvgSentenceLength: 10}); err != nil {
		t.Fatalf("SetStyleProfile: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/profile", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("X-Plume-Owner", "bob")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var body struct {
		HasProfile bool `json:"has_profile"`
	}
	decodeBody(t, resp, &body)
	if body.HasProfile {
		t.Error("bob should not see alice's profile")
	}
}

func TestPersonaLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create.
	resp := doJSON(t, http.MethodPost, srv.URL+"/personas", profile.Persona{
		Name: "Casual Casey", Tone: "casual",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created struct {
		Persona profile.Persona `json:"persona"`
	}
	decodeBody(t, resp, &created)
	if created.Persona.ID == "" {
		t.Fatal("expected persona id")
	}
	id := created.Persona.ID

	// Activate.
	resp = doJSON(t, http.MethodPost, srv.URL+"/personas/activate", map[string]string{"id": id})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d", resp.StatusCode)
	}

	// List reports the active pointer.
	resp = doJSON(t, http.MethodGet, srv.URL+"/personas", nil)
	var list struct {
		Personas []profile.Persona `json:"personas"`
		ActiveID string            `json:"active_id"`
	}
	decodeBody(t, resp, &list)
	if len(list.Personas) != 1 || list.ActiveID != id {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Update.
	resp = doJSON(t, http.MethodPut, srv.URL+"/personas/"+id, profile.Persona{
		Name: "Serious Casey", Tone: "formal",
	})
	var updated struct {
		Persona profile.Persona `json:"persona"`
	}
	decodeBody(t, resp, &updated)
	if updated.Persona.Name != "Serious Casey" {
		t.Errorf("Name = %q", updated.Persona.Name)
	}

	// Delete clears the active pointer.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/personas/"+id, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/personas", nil)
	var afterDelete struct {
		Personas []profile.Persona `json:"personas"`
		ActiveID string            `json:"active_id"`
	}
	decodeBody(t, resp, &afterDelete)
	if len(afterDelete.Personas) != 0 || afterDelete.ActiveID != "" {
		t.Fatalf("expected empty list, got %+v", afterDelete)
	}
}

func TestPersonaCreateRequiresName(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/personas", profile.Persona{Tone: "casual"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPersonaUpdateUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPut, srv.URL+"/personas/missing", profile.Persona{Name: "X"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestActivityFeed(t *testing.T) {
	srv, _ := newTestServer(t)

	for range 3 {
		resp := doJSON(t, http.MethodPost, srv.URL+"/rewrite", RewriteRequest{
			Text: "As an AI language model, I cannot form opinions. The launch went well.",
		})
		resp.Body.Close()
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/activity?limit=2", nil)
	var body struct {
		Success    bool           `json:"success"`
		Activities []activityView `json:"activities"`
	}
	decodeBody(t, resp, &body)
	if len(body.Activities) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(body.Activities))
	}
	for _, a := range body.Activities {
		if a.Action != "rewrite" {
			t.Errorf("Action = %q, want rewrite", a.Action)
		}
	}
}
