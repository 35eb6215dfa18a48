// CLAUDE:SUMMARY Plain-text rendering of RTF: control words, hex and unicode escapes, ignorable destinations.
package docpipe

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/hazyhaar/docshelf/horosafe"
)

// rtfSkipDestinations never carry body text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true, "pict": true,
	"object": true, "header": true, "headerl": true, "headerr": true, "headerf": true,
	"footer": true, "footerl": true, "footerr": true, "footerf": true, "themedata": true,
	"datastore": true, "latentstyles": true, "listtable": true, "listoverridetable": true,
	"rsidtbl": true, "generator": true, "filetbl": true, "revtbl": true, "xmlnstbl": true,
	"colorschememapping": true, "fldinst": true, "bkmkstart": true, "bkmkend": true,
}

var rtfSymbols = map[string]string{
	"par": "\n", "line": "\n", "sect": "\n", "page": "\n", "row": "\n",
	"tab": "\t", "cell": "\t",
	"emdash": "—", "endash": "–", "bullet": "•",
	"lquote": "‘", "rquote": "’", "ldblquote": "“", "rdblquote": "”",
	"emspace": " ", "enspace": " ", "qmspace": " ",
}

var errNotRTF = errors.New("missing {\\rtf header")

func extractRTF(_ context.Context, p *Pipeline, path string) (string, Method, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	data, err := horosafe.LimitedReadAll(f, p.cfg.MaxFileSize)
	if err != nil {
		return "", "", err
	}
	text, err := stripRTF(string(data))
	if err != nil {
		return "", "", err
	}
	return text, MethodDirectExtraction, nil
}

type rtfGroup struct {
	skip bool
	uc   int // fallback characters following \uN
}

// stripRTF renders RTF source as plain text with one line per paragraph.
func stripRTF(src string) (string, error) {
	if !strings.HasPrefix(strings.TrimLeft(src, " \t\r\n"), `{\rtf`) {
		return "", errNotRTF
	}
	var out strings.Builder
	stack := []rtfGroup{{uc: 1}}
	pendingSkip := 0

	emit := func(s string) {
		if stack[len(stack)-1].skip {
			return
		}
		for _, r := range s {
			if pendingSkip > 0 {
				pendingSkip--
				continue
			}
			out.WriteRune(r)
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch c {
		case '{':
			stack = append(stack, stack[len(stack)-1])
			i++
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			pendingSkip = 0
			i++
		case '\r', '\n':
			i++
		case '\\':
			i = rtfControl(src, i+1, &stack, &pendingSkip, emit)
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if r == utf8.RuneError && size == 1 {
				r = charmap.Windows1252.DecodeByte(c)
			}
			emit(string(r))
			i += size
		}
	}
	lines := strings.Split(out.String(), "\n")
	for k, l := range lines {
		lines[k] = strings.TrimRight(l, " \t")
	}
	return joinLines(lines), nil
}

// rtfControl handles the control sequence starting at src[i] (just after
// the backslash) and returns the index of the next unread byte.
func rtfControl(src string, i int, stack *[]rtfGroup, pendingSkip *int, emit func(string)) int {
	if i >= len(src) {
		return i
	}
	top := &(*stack)[len(*stack)-1]
	switch c := src[i]; {
	case c == '\\' || c == '{' || c == '}':
		emit(string(c))
		return i + 1
	case c == '\'':
		if i+3 <= len(src) {
			if b, err := strconv.ParseUint(src[i+1:i+3], 16, 8); err == nil {
				emit(string(charmap.Windows1252.DecodeByte(byte(b))))
			}
		}
		return i + 3
	case c == '*':
		top.skip = true
		return i + 1
	case c == '~':
		emit(" ")
		return i + 1
	case c == '_':
		emit("-")
		return i + 1
	case c == '\n' || c == '\r':
		emit("\n")
		return i + 1
	case isASCIILetter(c):
	default:
		return i + 1
	}

	start := i
	for i < len(src) && isASCIILetter(src[i]) {
		i++
	}
	word := src[start:i]
	pstart := i
	if i < len(src) && src[i] == '-' {
		i++
	}
	for i < len(src) && src[i] >= '0' && src[i] <= '9' {
		i++
	}
	param, hasParam := 0, false
	if i > pstart {
		if v, err := strconv.Atoi(src[pstart:i]); err == nil {
			param, hasParam = v, true
		}
	}
	if i < len(src) && src[i] == ' ' {
		i++
	}

	switch {
	case rtfSkipDestinations[word]:
		top.skip = true
	case word == "uc" && hasParam:
		top.uc = param
	case word == "u" && hasParam:
		if param < 0 {
			param += 65536
		}
		emit(string(rune(param)))
		*pendingSkip = top.uc
	default:
		if s, ok := rtfSymbols[word]; ok {
			emit(s)
		}
	}
	return i
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
