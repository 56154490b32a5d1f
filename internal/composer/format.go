package composer

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
}

// Format renders the answer as HTML: the main answer emphasised, the
// explanation below it with tip bullets as a list. If rendering fails the
// escaped plain text is returned.
func (c *Composer) Format(main, explanation, language string) string {
	md := toMarkdown(main, explanation)

	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(md), &buf); err != nil {
		c.logger.Warn("markdown rendering failed", "error", err)
		return plain(main, explanation)
	}
	if language == "" {
		language = "en"
	}
	return fmt.Sprintf("<div class=\"answer\" lang=\"%s\">\n%s</div>", html.EscapeString(language), buf.String())
}

func toMarkdown(main, explanation string) string {
	var b strings.Builder
	if main != "" {
		b.WriteString("**")
		b.WriteString(escapeMarkdown(main))
		b.WriteString("**\n\n")
	}
	for _, line := range strings.Split(explanation, "\n") {
		if rest, ok := strings.CutPrefix(line, bullet); ok {
			b.WriteString("- ")
			b.WriteString(escapeMarkdown(rest))
		} else {
			b.WriteString(escapeMarkdown(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`, "<", `\<`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func plain(main, explanation string) string {
	if explanation == "" {
		return main
	}
	return main + "\n\n" + explanation
}
