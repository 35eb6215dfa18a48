// Package horosafe provides the filesystem guards docshelf applies to
// user-supplied names before they touch the storage directory: path
// traversal checks, filename sanitising, collision-free naming and bounded
// reads.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxFilenameLen is the longest sanitised filename, in bytes.
const MaxFilenameLen = 255

// ErrPathTraversal is returned when a user-supplied path escapes its base.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// ErrTooLarge is returned by LimitedReadAll when the input exceeds the cap.
var ErrTooLarge = errors.New("horosafe: input exceeds size limit")

// ErrNoFreeName is returned when UniquePath exhausts its counter.
var ErrNoFreeName = errors.New("horosafe: no free file name")

// SafePath joins base and userInput and fails if the result leaves base.
func SafePath(base, userInput string) (string, error) {
	if strings.Contains(userInput, "..") {
		return "", ErrPathTraversal
	}
	root := filepath.Clean(base)
	joined := filepath.Join(root, filepath.Clean("/"+userInput))
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return joined, nil
}

// SanitizeFilename replaces characters that are invalid in file names on
// common filesystems (<>:"/\|?*) with '_', trims leading and trailing
// spaces and dots, and truncates to MaxFilenameLen bytes on a rune boundary.
// The result may be empty.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	for len(name) > MaxFilenameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// UniquePath returns dir/stem+ext, or dir/stem_N+ext with the smallest N ≥ 1
// for which no file exists. It does not create the file.
func UniquePath(dir, stem, ext string) (string, error) {
	candidate := filepath.Join(dir, stem+ext)
	for n := 1; n <= 100_000; n++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("horosafe: stat %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, stem+"_"+strconv.Itoa(n)+ext)
	}
	return "", fmt.Errorf("%w for %s%s in %s", ErrNoFreeName, stem, ext, dir)
}

// LimitedReadAll reads r completely unless it holds more than maxBytes.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return data, nil
}
