package handler

import (
	"strings"
	"testing"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	html := renderMarkdown("**每天六点起床**\n\n<script>alert(1)</script>")

	if !strings.Contains(html, "<strong>每天六点起床</strong>") {
		t.Fatalf("expected markdown to render, got %q", html)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("expected script tag to be stripped, got %q", html)
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if got := renderMarkdown(""); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
