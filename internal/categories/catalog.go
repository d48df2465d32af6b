// Package categories owns the fixed set of ad categories.
package categories

// names lists every category in display order.
var names = []string{
	"VEHICLES",
	"REAL_ESTATE",
	"ELECTRONICS",
	"HOME",
	"FASHION",
	"LEISURE",
	"MULTIMEDIA",
	"JOBS",
	"SERVICES",
	"OTHER",
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}()

// Names returns the category catalog in display order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsKnown reports whether name is an exact catalog entry.
func IsKnown(name string) bool {
	_, ok := known[name]
	return ok
}
