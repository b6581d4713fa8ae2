package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dhowell3/paperscope/internal/document"
	"github.com/dhowell3/paperscope/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubVision answers with a per-image transcript, optionally delaying
// early pages so completion order differs from page order.
type stubVision struct {
	mu       sync.Mutex
	calls    int
	delays   map[string]time.Duration // keyed by image content
	failFor  string                   // image content that always fails
	response func(image string) string
}

func (s *stubVision) Describe(_ context.Context, _ string, image []byte, _ int) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	content := string(image)
	if d, ok := s.delays[content]; ok {
		time.Sleep(d)
	}
	if s.failFor == content {
		return "", errors.New("vision backend down")
	}
	if s.response != nil {
		return s.response(content), nil
	}
	return "transcript of " + content, nil
}

func writeImages(t *testing.T, n int) []document.PageImage {
	t.Helper()
	dir := t.TempDir()
	images := make([]document.PageImage, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("img%d", i+1)), 0o644); err != nil {
			t.Fatal(err)
		}
		images[i] = document.PageImage{Num: i + 1, Path: path}
	}
	return images
}

func fastConfig() Config {
	return Config{Workers: 4, Rate: 1000, MaxTokens: 512}
}

func TestProcessPages_ResortsByPageNumber(t *testing.T) {
	stub := &stubVision{delays: map[string]time.Duration{
		"img1": 60 * time.Millisecond, // first page finishes last
		"img2": 30 * time.Millisecond,
	}}
	e := NewEngine([]llm.Vision{stub}, nil, fastConfig(), testLogger())

	pages, err := e.ProcessPages(context.Background(), writeImages(t, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if p.Num != i+1 {
			t.Errorf("page %d: expected num %d, got %d", i, i+1, p.Num)
		}
		if want := fmt.Sprintf("transcript of img%d", i+1); p.Markdown != want {
			t.Errorf("page %d: expected %q, got %q", i, want, p.Markdown)
		}
	}
}

func TestProcessPages_FailureKeepsSlot(t *testing.T) {
	stub := &stubVision{failFor: "img2"}
	e := NewEngine([]llm.Vision{stub}, nil, fastConfig(), testLogger())
	e.attempts = 1 // no backoff in tests

	pages, err := e.ProcessPages(context.Background(), writeImages(t, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[1].Confidence != 0 {
		t.Errorf("expected confidence 0 for failed page, got %g", pages[1].Confidence)
	}
	if !strings.HasPrefix(pages[1].Markdown, "[OCR failed:") {
		t.Errorf("expected failure marker, got %q", pages[1].Markdown)
	}
	if pages[0].Confidence != 1 || pages[2].Confidence != 1 {
		t.Error("failure on one page must not affect the others")
	}
}

func TestProcessPages_CacheRoundTrip(t *testing.T) {
	stub := &stubVision{}
	cache := NewCache(t.TempDir(), "test-model:7b")
	e := NewEngine([]llm.Vision{stub}, cache, fastConfig(), testLogger())

	images := writeImages(t, 2)
	first, err := e.ProcessPages(context.Background(), images)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 vision calls, got %d", stub.calls)
	}

	second, err := e.ProcessPages(context.Background(), images)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected cache hits to skip vision calls, got %d total calls", stub.calls)
	}
	for i := range first {
		if first[i].Markdown != second[i].Markdown {
			t.Errorf("page %d: cached markdown differs", i)
		}
	}
}

func TestProcessPages_FailedPageNotCached(t *testing.T) {
	stub := &stubVision{failFor: "img1"}
	cache := NewCache(t.TempDir(), "m")
	e := NewEngine([]llm.Vision{stub}, cache, fastConfig(), testLogger())
	e.attempts = 1

	images := writeImages(t, 1)
	if _, err := e.ProcessPages(context.Background(), images); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The failure clears; the retry must reach the backend again.
	stub.failFor = ""
	pages, err := e.ProcessPages(context.Background(), images)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages[0].Confidence != 1 {
		t.Errorf("expected successful retry, got confidence %g", pages[0].Confidence)
	}
}

func TestProcessPages_Empty(t *testing.T) {
	e := NewEngine([]llm.Vision{&stubVision{}}, nil, fastConfig(), testLogger())
	pages, err := e.ProcessPages(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages != nil {
		t.Errorf("expected nil pages, got %v", pages)
	}
}
