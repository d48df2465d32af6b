package query

import (
	"strings"

	"github.com/google/uuid"
)

// Criteria holds the optional search inputs. Blank strings and nil pointers
// impose no constraint.
type Criteria struct {
	Category string
	Title    string
	MinPrice *int64
	MaxPrice *int64
	OwnerID  *uuid.UUID
}

// Filter is an immutable conjunction of clauses.
type Filter struct {
	clauses []Clause
}

// NewFilter translates every supplied criterion into one clause.
func NewFilter(c Criteria) Filter {
	clauses := make([]Clause, 0, 5)
	if c.Category != "" {
		clauses = append(clauses, CategoryEquals{Name: c.Category})
	}
	if strings.TrimSpace(c.Title) != "" {
		clauses = append(clauses, TitleContains{Term: c.Title})
	}
	if c.MinPrice != nil {
		clauses = append(clauses, PriceAtLeast{Min: *c.MinPrice})
	}
	if c.MaxPrice != nil {
		clauses = append(clauses, PriceAtMost{Max: *c.MaxPrice})
	}
	if c.OwnerID != nil {
		clauses = append(clauses, OwnedBy{UserID: *c.OwnerID})
	}
	return Filter{clauses: clauses}
}

// IsEmpty reports whether the filter matches every listing.
func (f Filter) IsEmpty() bool {
	return len(f.clauses) == 0
}

// Where renders the filter as a WHERE body starting at placeholder $firstArg.
// It returns the SQL, its arguments and the next free placeholder index.
func (f Filter) Where(firstArg int) (string, []any, int) {
	if f.IsEmpty() {
		return "TRUE", nil, firstArg
	}

	parts := make([]string, 0, len(f.clauses))
	args := make([]any, 0, len(f.clauses))
	argIdx := firstArg
	for _, clause := range f.clauses {
		sql, arg := clause.SQL(argIdx)
		parts = append(parts, sql)
		args = append(args, arg)
		argIdx++
	}
	return strings.Join(parts, " AND "), args, argIdx
}

// Matches reports whether l satisfies every clause.
func (f Filter) Matches(l Listing) bool {
	for _, clause := range f.clauses {
		if !clause.Matches(l) {
			return false
		}
	}
	return true
}
