// Package query builds listing searches for ads. Optional criteria become an
// immutable list of typed clauses that are ANDed together, rendered to SQL
// with positional arguments, and paged newest first.
package query

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Column references used in generated SQL. The listing statement aliases the
// ads table as a and the categories table as c.
const (
	columnID       = "a.id"
	columnTitle    = "a.title"
	columnPrice    = "a.price"
	columnOwner    = "a.user_id"
	columnCategory = "c.name"
)

// Listing is the subset of an ad that clauses can evaluate in memory.
type Listing struct {
	ID       int64
	Title    string
	Price    int64
	Category string
	OwnerID  uuid.UUID
}

// Clause is one constraint of a listing search.
type Clause interface {
	// SQL renders the constraint using placeholder $argIdx for its argument.
	SQL(argIdx int) (string, any)
	// Matches reports whether l satisfies the constraint.
	Matches(l Listing) bool
}

// CategoryEquals matches the category name exactly.
type CategoryEquals struct{ Name string }

func (c CategoryEquals) SQL(argIdx int) (string, any) {
	return fmt.Sprintf("%s = $%d", columnCategory, argIdx), c.Name
}

func (c CategoryEquals) Matches(l Listing) bool { return l.Category == c.Name }

// TitleContains matches a case-insensitive substring of the title. LIKE
// wildcards in Term match literally.
type TitleContains struct{ Term string }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (c TitleContains) SQL(argIdx int) (string, any) {
	return fmt.Sprintf(`%s ILIKE '%%' || $%d || '%%' ESCAPE '\'`, columnTitle, argIdx),
		likeEscaper.Replace(c.Term)
}

func (c TitleContains) Matches(l Listing) bool {
	return strings.Contains(strings.ToLower(l.Title), strings.ToLower(c.Term))
}

// PriceAtLeast is an inclusive lower price bound.
type PriceAtLeast struct{ Min int64 }

func (c PriceAtLeast) SQL(argIdx int) (string, any) {
	return fmt.Sprintf("%s >= $%d", columnPrice, argIdx), c.Min
}

func (c PriceAtLeast) Matches(l Listing) bool { return l.Price >= c.Min }

// PriceAtMost is an inclusive upper price bound.
type PriceAtMost struct{ Max int64 }

func (c PriceAtMost) SQL(argIdx int) (string, any) {
	return fmt.Sprintf("%s <= $%d", columnPrice, argIdx), c.Max
}

func (c PriceAtMost) Matches(l Listing) bool { return l.Price <= c.Max }

// OwnedBy restricts results to one user's ads.
type OwnedBy struct{ UserID uuid.UUID }

func (c OwnedBy) SQL(argIdx int) (string, any) {
	return fmt.Sprintf("%s = $%d", columnOwner, argIdx), c.UserID
}

func (c OwnedBy) Matches(l Listing) bool { return l.OwnerID == c.UserID }
