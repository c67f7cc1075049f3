package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/commentd/internal/render"
)

func TestRenderMarkdown(t *testing.T) {
	r := render.NewMarkdownRenderer()

	out := r.Render("**bold** and [a link](https://example.com)")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, "a link")
}

func TestRenderSanitizesHTML(t *testing.T) {
	r := render.NewMarkdownRenderer()

	t.Run("script tags are removed", func(t *testing.T) {
		out := r.Render(`hello <script>alert("x")</script> world`)
		assert.NotContains(t, out, "<script")
		assert.Contains(t, out, "hello")
		assert.Contains(t, out, "world")
	})

	t.Run("javascript links are neutralized", func(t *testing.T) {
		out := r.Render(`[click](javascript:alert(1))`)
		assert.NotContains(t, out, "javascript:")
		assert.Contains(t, out, "click")
	})

	t.Run("event handlers are stripped", func(t *testing.T) {
		out := r.Render(`<img src="x" onerror="alert(1)">`)
		assert.NotContains(t, out, "onerror")
	})
}

func TestRenderMalformedMarkdown(t *testing.T) {
	r := render.NewMarkdownRenderer()

	inputs := []string{
		"",
		"```go\nunclosed fence",
		"[broken link](",
		strings.Repeat("*", 500),
		"> quote\n>> nested\n>>>\n",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { r.Render(in) })
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := render.NewMarkdownRenderer()

	in := "# Title\n\nSome *text* with `code`."
	first := r.Render(in)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, r.Render(in))
	}
}
