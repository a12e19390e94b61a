// Package format prepares answer text for API clients.
package format

import "strings"

// Renderer optionally renders answer markdown to HTML next to the plain text.
type Renderer struct {
	markdown bool
}

func NewRenderer(renderMarkdown bool) *Renderer {
	return &Renderer{markdown: renderMarkdown}
}

// Enabled reports whether Render produces HTML.
func (r *Renderer) Enabled() bool {
	return r != nil && r.markdown
}

// Render returns the HTML for text, or "" when rendering is disabled.
func (r *Renderer) Render(text string) string {
	if !r.Enabled() || text == "" {
		return ""
	}
	return ToHTML(PreprocessAnswerText(text))
}

// RenderAll renders every text, returning nil when rendering is disabled.
func (r *Renderer) RenderAll(texts []string) []string {
	if !r.Enabled() {
		return nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = r.Render(t)
	}
	return out
}

// PreprocessAnswerText replaces curly quotes that corpus editors tend to paste in.
func PreprocessAnswerText(text string) string {
	if text == "" {
		return text
	}
	return strings.NewReplacer(
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
	).Replace(text)
}
