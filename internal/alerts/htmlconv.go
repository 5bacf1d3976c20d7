package alerts

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	escapedBracket = strings.NewReplacer(`\[`, "[", `\]`, "]")
)

var headingPrefixes = map[string]string{
	"h1": "# ", "h2": "## ", "h3": "### ",
	"h4": "#### ", "h5": "##### ", "h6": "###### ",
}

// htmlToMarkdown renders upstream alert HTML as Markdown-like plain text.
// Upstream alert bodies bracket route names as "[A]"; the brackets must
// survive, so backslash escapes on them are undone. The conversion is lossy
// on purpose: attributes and unrecognized tags contribute only their text.
func htmlToMarkdown(src string) string {
	if src == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			text := escapedBracket.Replace(string(tokenizer.Text()))
			b.WriteString(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			writeTagOpen(&b, string(name))
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			writeTagClose(&b, string(name))
		}
	}

	out := excessNewlines.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

func writeTagOpen(b *strings.Builder, tag string) {
	switch tag {
	case "p", "div":
		b.WriteString("\n\n")
	case "br":
		b.WriteString("\n")
	case "li":
		b.WriteString("\n- ")
	case "pre":
		b.WriteString("\n```\n")
	case "b", "strong":
		b.WriteString("**")
	case "i", "em":
		b.WriteString("*")
	default:
		if prefix, ok := headingPrefixes[tag]; ok {
			b.WriteString("\n\n" + prefix)
		}
	}
}

func writeTagClose(b *strings.Builder, tag string) {
	switch tag {
	case "p", "div", "ul", "ol":
		b.WriteString("\n")
	case "pre":
		b.WriteString("\n```\n")
	case "b", "strong":
		b.WriteString("**")
	case "i", "em":
		b.WriteString("*")
	default:
		if _, ok := headingPrefixes[tag]; ok {
			b.WriteString("\n\n")
		}
	}
}
