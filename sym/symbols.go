// Package sym defines canonical symbols for uniassoc namespaces and system markers.
// These symbols are stable across CLI output and log fields.
package sym

// Namespace glyphs: one per built-in association namespace.
const (
	Action   = "⟶" // action: generic named actions (like, share, bookmark)
	Reaction = "✦" // reaction: ranked emoji/label reactions
	Vote     = "⇅" // vote: mutually exclusive up/down votes
	Follow   = "⌬" // follow: follower edges
)

// System infrastructure symbols.
const (
	AM     = "≡" // am: configuration and system settings
	DB     = "⊔" // database/storage layer
	Assoc  = "⋈" // raw association engine access
	Repair = "⟲" // counter recomputation from the association store
)

// NamespaceSymbols maps built-in namespaces to their glyphs.
var NamespaceSymbols = map[string]string{
	"action":   Action,
	"reaction": Reaction,
	"vote":     Vote,
	"follow":   Follow,
}

// ForNamespace returns the glyph for a namespace, or the generic association
// glyph for custom namespaces.
func ForNamespace(ns string) string {
	if g, ok := NamespaceSymbols[ns]; ok {
		return g
	}
	return Assoc
}
