package query

import "fmt"

// Source names the projection and joined tables a listing statement reads.
// The FROM expression must alias ads as a and categories as c.
type Source struct {
	Columns string
	From    string
}

// Statement is a rendered listing search: a count over all matches and a
// page query ordered by id descending.
type Statement struct {
	CountSQL  string
	CountArgs []any
	ListSQL   string
	ListArgs  []any
}

// Build renders filter and page against src. The page request must be valid.
func Build(src Source, filter Filter, page PageRequest) (Statement, error) {
	if err := page.Validate(); err != nil {
		return Statement{}, err
	}

	where, args, argIdx := filter.Where(1)

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", src.From, where)

	listArgs := make([]any, 0, len(args)+2)
	listArgs = append(listArgs, args...)
	listArgs = append(listArgs, page.Size, page.Offset())
	listSQL := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`, src.Columns, src.From, where, columnID, argIdx, argIdx+1)

	return Statement{
		CountSQL:  countSQL,
		CountArgs: args,
		ListSQL:   listSQL,
		ListArgs:  listArgs,
	}, nil
}
