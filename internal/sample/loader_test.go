package sample

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoadText(t *testing.T) {
	l := NewLoader()
	got, err := l.Load(context.Background(), Input{Kind: KindText, Content: "plain words"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain words" {
		t.Errorf("Load = %q", got)
	}
}

func TestLoadDefaultsToText(t *testing.T) {
	l := NewLoader()
	got, err := l.Load(context.Background(), Input{Content: "no kind set"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "no kind set" {
		t.Errorf("Load = %q", got)
	}
}

func TestLoadHTML(t *testing.T) {
	doc := `<html><head><title>skip</title><style>p{color:red}</style></head>
<body><script>var skipped = 1;</script><p>First paragraph.</p><p>Second  paragraph.</p></body></html>`

	l := NewLoader()
	got, err := l.Load(context.Background(), Input{Kind: KindHTML, Content: doc})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "First paragraph.") || !strings.Contains(got, "Second paragraph.") {
		t.Errorf("missing body text: %q", got)
	}
	if strings.Contains(got, "skipped") || strings.Contains(got, "color:red") || strings.Contains(got, "skip") {
		t.Errorf("non-content text leaked: %q", got)
	}
}

func TestLoadHTMLEmptyBody(t *testing.T) {
	l := NewLoader()
	if _, err := l.Load(context.Background(), Input{Kind: KindHTML, Content: "<html><body></body></html>"}); err == nil {
		t.Error("expected error for html with no text")
	}
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>Fetched content here.</p></body></html>"))
	}))
	defer srv.Close()

	l := NewLoaderWithClient(srv.Client())
	got, err := l.Load(context.Background(), Input{Kind: KindURL, URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Fetched content here.") {
		t.Errorf("Load = %q", got)
	}
}

func TestLoadURLPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just words"))
	}))
	defer srv.Close()

	l := NewLoaderWithClient(srv.Client())
	got, err := l.Load(context.Background(), Input{Kind: KindURL, URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if got != "just words" {
		t.Errorf("Load = %q", got)
	}
}

func TestLoadURLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewLoaderWithClient(srv.Client())
	if _, err := l.Load(context.Background(), Input{Kind: KindURL, URL: srv.URL}); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestLoadURLMissingURL(t *testing.T) {
	l := NewLoader()
	if _, err := l.Load(context.Background(), Input{Kind: KindURL}); err == nil {
		t.Error("expected error for url sample without url")
	}
}

func TestLoadPDFBadBase64(t *testing.T) {
	l := NewLoader()
	if _, err := l.Load(context.Background(), Input{Kind: KindPDF, Content: "not base64!!"}); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestLoadUnknownKind(t *testing.T) {
	l := NewLoader()
	if _, err := l.Load(context.Background(), Input{Kind: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
