// CLAUDE:SUMMARY Format families, extraction methods, results and the docpipe error taxonomy.
package docpipe

import (
	"errors"
	"fmt"
)

// Family groups file extensions that share one extraction strategy.
// The set is closed: New refuses a registry that maps to an unknown family.
type Family int

const (
	FamilyPlainText  Family = iota + 1 // txt, csv, json, xml, md
	FamilyPDF                          // text or scanned PDF
	FamilyWord                         // docx
	FamilyLegacyWord                   // doc
	FamilyRTF                          // rtf
	FamilyODT                          // odt
	FamilyHTML                         // html, htm
	FamilyImage                        // raster images, recognition only
)

var familyNames = map[Family]string{
	FamilyPlainText:  "plain_text",
	FamilyPDF:        "pdf",
	FamilyWord:       "word",
	FamilyLegacyWord: "legacy_word",
	FamilyRTF:        "rtf",
	FamilyODT:        "odt",
	FamilyHTML:       "html",
	FamilyImage:      "image",
}

// Families lists every known family in declaration order.
func Families() []Family {
	return []Family{FamilyPlainText, FamilyPDF, FamilyWord, FamilyLegacyWord, FamilyRTF, FamilyODT, FamilyHTML, FamilyImage}
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Method tags how a document's text was obtained.
type Method string

const (
	MethodDirectExtraction Method = "direct_extraction"
	MethodDirectRead       Method = "direct_read"
	MethodOCR              Method = "ocr"
	MethodFailed           Method = "failed" // set by callers that downgrade a CapabilityError
)

// Result is the outcome of one extraction.
type Result struct {
	Succeeded bool   `json:"succeeded"`
	Text      string `json:"text"`
	Method    Method `json:"method"`
}

// ErrUnsupportedFormat is returned for extensions outside the registry.
var ErrUnsupportedFormat = errors.New("docpipe: unsupported format")

// ErrNotRecognizable is returned when recognition is requested for a family
// that has no recognition path (anything but PDF and images).
var ErrNotRecognizable = fmt.Errorf("%w: recognition not available for this format", ErrUnsupportedFormat)

// CapabilityError reports a failing or missing extraction provider.
type CapabilityError struct {
	Capability string // "pdf", "tesseract", "antiword", ...
	Path       string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("docpipe: %s failed on %s: %v", e.Capability, e.Path, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

func capabilityErr(capability, path string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return err
	}
	return &CapabilityError{Capability: capability, Path: path, Err: err}
}
