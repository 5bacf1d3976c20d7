package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToMarkdownEmpty(t *testing.T) {
	assert.Empty(t, htmlToMarkdown(""))
}

func TestHTMLToMarkdownParagraphsAndBreaks(t *testing.T) {
	out := htmlToMarkdown("<p>First</p><p>Second<br>line</p>")
	assert.Equal(t, "First\n\nSecond\nline", out)
}

func TestHTMLToMarkdownHeadingsAndLists(t *testing.T) {
	out := htmlToMarkdown("<h2>Weekend work</h2><ul><li>No service</li><li>Use shuttle</li></ul>")
	assert.Equal(t, "## Weekend work\n\n- No service\n- Use shuttle", out)
}

func TestHTMLToMarkdownEmphasis(t *testing.T) {
	out := htmlToMarkdown("Trains run <b>every 20 minutes</b> on the <i>local</i> track")
	assert.Equal(t, "Trains run **every 20 minutes** on the *local* track", out)
}

func TestHTMLToMarkdownPreservesRouteBrackets(t *testing.T) {
	out := htmlToMarkdown(`Take the \[A\] or \[C\]`)
	assert.Equal(t, "Take the [A] or [C]", out)
}

func TestHTMLToMarkdownDecodesEntities(t *testing.T) {
	out := htmlToMarkdown("<p>14 St&ndash;Union Sq &amp; 6 Av</p>")
	assert.Equal(t, "14 St–Union Sq & 6 Av", out)
}

func TestHTMLToMarkdownCollapsesNewlineRuns(t *testing.T) {
	out := htmlToMarkdown("<div><p>one</p></div><div><p>two</p></div>")
	assert.Equal(t, "one\n\ntwo", out)
}

func TestHTMLToMarkdownCodeFence(t *testing.T) {
	out := htmlToMarkdown("<pre>G train stops</pre>")
	assert.Equal(t, "```\nG train stops\n```", out)
}
