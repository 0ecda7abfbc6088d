package sym

import (
	"testing"
	"unicode/utf8"
)

func TestNamespaceSymbolsAreSingleGlyphs(t *testing.T) {
	for ns, glyph := range NamespaceSymbols {
		if n := utf8.RuneCountInString(glyph); n != 1 {
			t.Errorf("symbol for %q has %d runes, want 1", ns, n)
		}
	}
}

func TestNamespaceSymbolsAreDistinct(t *testing.T) {
	seen := make(map[string]string)
	for ns, glyph := range NamespaceSymbols {
		if other, ok := seen[glyph]; ok {
			t.Errorf("namespaces %q and %q share glyph %q", ns, other, glyph)
		}
		seen[glyph] = ns
	}
}

func TestForNamespace(t *testing.T) {
	if got := ForNamespace("vote"); got != Vote {
		t.Errorf("ForNamespace(vote) = %q, want %q", got, Vote)
	}
	if got := ForNamespace("bookmark"); got != Assoc {
		t.Errorf("ForNamespace(bookmark) = %q, want %q", got, Assoc)
	}
}
