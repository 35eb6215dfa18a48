package convert

import (
	"html"
	"strings"
)

const pageHead = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Converted Document</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; line-height: 1.6; }
        p { margin-bottom: 10px; }
    </style>
</head>
<body>
`

// renderHTML builds a standalone page with one escaped paragraph per line.
func renderHTML(text string) string {
	var sb strings.Builder
	sb.WriteString(pageHead)
	for _, p := range paragraphs(text) {
		sb.WriteString("    <p>")
		sb.WriteString(html.EscapeString(p))
		sb.WriteString("</p>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
