package browser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestFindDownloadSkipsPartialFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "slip.pdf.crdownload"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := &Session{downloadDir: dir}
	if got := s.findDownload("*.pdf*"); got != "" {
		t.Fatalf("in-progress download must not match, got %q", got)
	}

	done := filepath.Join(dir, "slip.pdf")
	if err := os.WriteFile(done, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.findDownload("*.pdf"); got != done {
		t.Fatalf("expected %q, got %q", done, got)
	}
}

func TestFindDownloadWithoutDir(t *testing.T) {
	s := &Session{}
	if got := s.findDownload("*.pdf"); got != "" {
		t.Fatalf("expected empty result without a download dir, got %q", got)
	}
}

func TestRenderExcerpt(t *testing.T) {
	html := `<html><body><div class="ok"><h3>Registration Complete</h3><p>Your PIN is <b>A1B2C3</b>.</p></div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}

	out := renderExcerpt(doc.Find(".ok").First())
	if !strings.Contains(out, "Registration Complete") {
		t.Fatalf("excerpt missing heading: %q", out)
	}
	if !strings.Contains(out, "A1B2C3") {
		t.Fatalf("excerpt missing pin text: %q", out)
	}
}

func TestRenderExcerptTruncates(t *testing.T) {
	long := strings.Repeat("confirmation ", 100)
	html := `<div class="ok"><p>` + long + `</p></div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}

	out := renderExcerpt(doc.Find(".ok").First())
	if len(out) > excerptLimit {
		t.Fatalf("excerpt exceeds limit: %d", len(out))
	}
}
