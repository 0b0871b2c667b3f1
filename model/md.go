package model

import (
	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/glamour"
)

// renderPreview renders md for the preview pane, preferring glamour and
// falling back to go-term-markdown when glamour fails.
func renderPreview(md string, width int) string {
	if width < 40 {
		width = 40
	}
	if out, err := renderMarkdown(md, width); err == nil {
		return out
	}
	return string(markdown.Render(md, width-4, 4))
}

func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
