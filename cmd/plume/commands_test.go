package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
	Owner  string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
			Owner:  r.Header.Get("X-Plume-Owner"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"success":false,"error":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestRewriteRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /rewrite": `{"success":true,"formatted":"Short and human.","humanization_engine":"heuristic","reduction_pct":12.5}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/rewrite", map[string]any{
		"text":     "As an AI language model, I suggest this.",
		"humanize": true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Formatted          string  `json:"formatted"`
		HumanizationEngine string  `json:"humanization_engine"`
		ReductionPct       float64 `json:"reduction_pct"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Formatted != "Short and human." {
		t.Errorf("formatted = %q", result.Formatted)
	}
	if result.HumanizationEngine != "heuristic" {
		t.Errorf("engine = %q", result.HumanizationEngine)
	}

	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/rewrite" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["humanize"] != true {
		t.Errorf("body.humanize = %v, want true", body["humanize"])
	}
}

func TestOwnerHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /profile": `{"success":true,"has_profile":false}`,
	})

	client := ts.client()
	client.owner = "alice"
	resp, err := client.get(ctx, "/profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if ts.requests[0].Owner != "alice" {
		t.Errorf("owner header = %q, want alice", ts.requests[0].Owner)
	}
}

func TestDecodeJSONErrorBody(t *testing.T) {
	ts := newTestServer(t, nil)

	client := ts.client()
	resp, err := client.get(ctx, "/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]any
	err = decodeJSON(resp, &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error should carry the server message: %v", err)
	}
}

func TestResolvePersonaID(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /personas": `{"success":true,"personas":[{"id":"abc12345-0000","name":"Casual Casey"},{"id":"def67890-0000","name":"Formal Fred"}]}`,
	})
	client := ts.client()

	cmd := personaActivateCmd
	cmd.SetContext(ctx)

	cases := []struct {
		ref  string
		want string
	}{
		{"abc12345-0000", "abc12345-0000"},
		{"abc1", "abc12345-0000"},
		{"formal fred", "def67890-0000"},
	}
	for _, tc := range cases {
		got, err := resolvePersonaID(cmd, client, tc.ref)
		if err != nil {
			t.Fatalf("resolvePersonaID(%q): %v", tc.ref, err)
		}
		if got != tc.want {
			t.Errorf("resolvePersonaID(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}

	if _, err := resolvePersonaID(cmd, client, "nobody"); err == nil {
		t.Error("expected error for unmatched reference")
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := pidFilePath(dir)

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d, want > 0", pid)
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after remove")
	}
}
