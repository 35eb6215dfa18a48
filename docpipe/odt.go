// CLAUDE:SUMMARY Extracts text from .odt (OpenDocument) files by walking headings and paragraphs in content.xml.
package docpipe

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// extractODT returns one line per text:h or text:p element of content.xml.
// Nested paragraphs (list items, table cells, frames) each get their own line.
func extractODT(_ context.Context, _ *Pipeline, path string) (string, Method, error) {
	rc, closeZip, err := openZipMember(path, "content.xml")
	if err != nil {
		return "", "", err
	}
	defer closeZip()
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var lines []string
	// stack of open text blocks; only the innermost collects characters
	var stack []*strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("parse content.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p", "h":
				stack = append(stack, &strings.Builder{})
			case "s":
				if len(stack) > 0 {
					n := 1
					for _, a := range t.Attr {
						if a.Name.Local == "c" {
							if v, err := strconv.Atoi(a.Value); err == nil && v > 0 {
								n = v
							}
						}
					}
					stack[len(stack)-1].WriteString(strings.Repeat(" ", n))
				}
			case "tab":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\t')
				}
			case "line-break":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte(' ')
				}
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Write(t)
			}
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "h") && len(stack) > 0 {
				lines = append(lines, stack[len(stack)-1].String())
				stack = stack[:len(stack)-1]
			}
		}
	}
	return joinLines(lines), MethodDirectExtraction, nil
}
