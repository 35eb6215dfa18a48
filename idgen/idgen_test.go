package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7_VersionAndUniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool, 500)
	for i := 0; i < 500; i++ {
		id := gen()
		if len(id) != 36 {
			t.Fatalf("len(%q) = %d, want 36", id, len(id))
		}
		if id[14] != '7' {
			t.Fatalf("version nibble of %q = %c, want 7", id, id[14])
		}
		if seen[id] {
			t.Fatalf("duplicate id %q at %d", id, i)
		}
		seen[id] = true
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 50; i++ {
		next := gen()
		if next < prev {
			t.Fatalf("ids not time ordered: %q after %q", next, prev)
		}
		prev = next
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("ocr_", UUIDv7())()
	if !strings.HasPrefix(id, "ocr_") {
		t.Fatalf("id %q missing prefix", id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, "ocr_")); err != nil {
		t.Fatalf("suffix not a UUID: %v", err)
	}
}
