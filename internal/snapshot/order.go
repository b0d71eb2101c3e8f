package snapshot

// CanonicalOrder is the workflow order behaviors are displayed in,
// regardless of the order the CLI lists them.
var CanonicalOrder = []string{
	"shape",
	"prioritization",
	"arrange",
	"discovery",
	"exploration",
	"scenarios",
	"examples",
	"tests",
	"code",
}

var canonicalRank = func() map[string]int {
	m := make(map[string]int, len(CanonicalOrder))
	for i, name := range CanonicalOrder {
		m[name] = i
	}
	return m
}()

// Rank returns the canonical position of a behavior name and whether the
// name is known.
func Rank(name string) (int, bool) {
	r, ok := canonicalRank[name]
	return r, ok
}

// Less orders known behaviors canonically, then unknown ones by name.
func Less(a, b string) bool {
	ra, oka := canonicalRank[a]
	rb, okb := canonicalRank[b]
	switch {
	case oka && okb:
		return ra < rb
	case oka:
		return true
	case okb:
		return false
	default:
		return a < b
	}
}
