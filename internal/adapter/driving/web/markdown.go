package web

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithUnsafe(),
			goldmarkhtml.WithHardWraps(),
		),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderNotes converts a record's free-form notes, written as markdown, to
// sanitized HTML. Single newlines are kept as line breaks.
// Returns empty string for blank input.
func RenderNotes(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(html.EscapeString(src))
	}

	return htmlSanitizer.Sanitize(buf.String())
}
