package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"mdac/internal/engine"
)

const excerptLimit = 500

// Observe is one gate poll: check the download directory first (slip
// retrieval confirms by file arrival, not by page content), then look
// for the success or rejection indicator in the live DOM.
func (s *Session) Observe(ctx context.Context, probe engine.Probe) (engine.Observation, error) {
	if probe.DownloadGlob != "" {
		if path := s.findDownload(probe.DownloadGlob); path != "" {
			return engine.Observation{Success: true, Download: path}, nil
		}
	}

	page := s.page.Context(ctx)

	if probe.SuccessSelector == "" && probe.RejectSelector == "" {
		return engine.Observation{}, nil
	}

	html, err := page.HTML()
	if err != nil {
		s.checkFatal()
		return engine.Observation{}, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return engine.Observation{}, fmt.Errorf("parse page html: %w", err)
	}

	if probe.SuccessSelector != "" {
		if node := doc.Find(probe.SuccessSelector).First(); node.Length() > 0 {
			obs := engine.Observation{Success: true}
			if probe.PinSelector != "" {
				obs.Pin = strings.TrimSpace(doc.Find(probe.PinSelector).First().Text())
			}
			obs.Excerpt = renderExcerpt(node)
			return obs, nil
		}
	}

	if probe.RejectSelector != "" {
		if node := doc.Find(probe.RejectSelector).First(); node.Length() > 0 {
			reason := strings.TrimSpace(node.Text())
			if len(reason) > excerptLimit {
				reason = reason[:excerptLimit]
			}
			return engine.Observation{Rejected: true, Reason: reason}, nil
		}
	}

	return engine.Observation{}, nil
}

// findDownload returns the first completed file matching the glob.
// Chromium writes in-progress downloads with a .crdownload suffix.
func (s *Session) findDownload(glob string) string {
	s.mu.Lock()
	dir := s.downloadDir
	s.mu.Unlock()
	if dir == "" {
		return ""
	}

	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return ""
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".crdownload") {
			continue
		}
		return m
	}
	return ""
}

// renderExcerpt converts the confirmation fragment to markdown so the
// stored excerpt is readable without the page's styling.
func renderExcerpt(node *goquery.Selection) string {
	fragment, err := node.Html()
	if err != nil || fragment == "" {
		text := strings.TrimSpace(node.Text())
		if len(text) > excerptLimit {
			text = text[:excerptLimit]
		}
		return text
	}

	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(fragment)
	if err != nil {
		out = node.Text()
	}
	out = strings.TrimSpace(out)
	if len(out) > excerptLimit {
		out = out[:excerptLimit]
	}
	return out
}
