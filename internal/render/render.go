package render

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Renderer turns submitted markdown into HTML safe to serve verbatim.
// Implementations are pure: same input, same output, no error path. Malformed
// markdown degrades to whatever HTML the parser salvages.
type Renderer interface {
	Render(markdown string) string
}

// MarkdownRenderer renders with blackfriday and strips anything dangerous with
// a fixed bluemonday UGC policy. The policy never varies per call: rendered
// HTML is written once at insert time and served unchanged afterwards.
type MarkdownRenderer struct {
	policy *bluemonday.Policy
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{policy: bluemonday.UGCPolicy()}
}

func (r *MarkdownRenderer) Render(markdown string) string {
	unsafe := blackfriday.Run([]byte(markdown))
	return string(r.policy.SanitizeBytes(unsafe))
}
