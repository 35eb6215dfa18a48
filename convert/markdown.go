package convert

import (
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// renderMarkdown emits one markdown paragraph per line. Going through HTML
// lets the converter escape characters that markdown would interpret.
func renderMarkdown(text string) ([]byte, error) {
	var sb strings.Builder
	for _, p := range paragraphs(text) {
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(p))
		sb.WriteString("</p>")
	}
	md, err := mdConverter.ConvertString(sb.String())
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimSpace(md) + "\n"), nil
}
