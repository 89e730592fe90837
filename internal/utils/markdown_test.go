package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("**Key Insights:**\n\n- car loans dominate\n- 33.3% bad risk\n")
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "<strong>Key Insights:</strong>")
	assert.Contains(t, html, "<li>car loans dominate</li>")
}

func TestRenderMarkdownSanitises(t *testing.T) {
	out, err := RenderMarkdown("hello <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	html := string(out)
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, "hello")
}
