package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCanIngest(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"paper.md", true},
		{"paper.MARKDOWN", true},
		{"notes.txt", true},
		{"page.html", true},
		{"page.htm", true},
		{"draft.docx", true},
		{"paper.pdf", false},
		{"archive.zip", false},
		{"README", false},
	}
	for _, tc := range cases {
		if got := CanIngest(tc.path); got != tc.want {
			t.Errorf("CanIngest(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestLoad_MarkdownPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.md")
	content := "# Title\n\nBody text.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != content {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestLoad_HTMLHeadingMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	body := `<html><head><title>ignored</title><script>var x;</script></head>
<body>
<nav><p>menu</p></nav>
<h1>Adaptive   Quadrature Methods</h1>
<p>Opening paragraph.</p>
<h2>Evaluation</h2>
<p>Second paragraph with <b>markup</b> inside.</p>
</body></html>`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(got, "# Adaptive Quadrature Methods\n") {
		t.Errorf("expected h1 mapped to level-1 heading, got:\n%s", got)
	}
	if !strings.Contains(got, "## Evaluation\n") {
		t.Errorf("expected h2 mapped to level-2 heading, got:\n%s", got)
	}
	if !strings.Contains(got, "Second paragraph with markup inside.") {
		t.Errorf("expected inline markup flattened, got:\n%s", got)
	}
	if strings.Contains(got, "menu") || strings.Contains(got, "var x") {
		t.Errorf("expected nav/script content skipped, got:\n%s", got)
	}
	h1 := strings.Index(got, "# Adaptive")
	p1 := strings.Index(got, "Opening paragraph.")
	h2 := strings.Index(got, "## Evaluation")
	if !(h1 < p1 && p1 < h2) {
		t.Errorf("document order not preserved: %d, %d, %d", h1, p1, h2)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	if _, err := Load("diagram.svg"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
