package docpipe

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// openZipMember opens the named member of a zip archive.
func openZipMember(path, member string) (io.ReadCloser, func() error, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range r.File {
		if f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			r.Close()
			return nil, nil, fmt.Errorf("open %s: %w", member, err)
		}
		return rc, r.Close, nil
	}
	r.Close()
	return nil, nil, fmt.Errorf("%s not found in archive", member)
}

// extractDocx returns one line per non-empty paragraph of word/document.xml.
// Only w:t runs contribute text; w:tab and w:br map to tab and newline.
func extractDocx(_ context.Context, _ *Pipeline, path string) (string, Method, error) {
	rc, closeZip, err := openZipMember(path, "word/document.xml")
	if err != nil {
		return "", "", err
	}
	defer closeZip()
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var paragraphs []string
	var cur strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur.Reset()
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte(' ')
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, cur.String())
				cur.Reset()
			}
		}
	}
	return joinLines(paragraphs), MethodDirectExtraction, nil
}
