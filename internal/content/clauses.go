package content

import (
	"strconv"
	"strings"
)

// Clauses describes a query as named parts. Filters receive the clauses
// before execution and may adjust any part, mirroring the way plugins used
// to hook into the upstream queries.
type Clauses struct {
	Select  string
	From    string
	Joins   []string
	Where   []string
	GroupBy string
	OrderBy string
	Limit   int
	Offset  int
	Args    []interface{}
}

// Filter adjusts a query before it runs.
type Filter func(*Clauses)

// Filters holds the optional per-query hooks a store applies.
type Filters struct {
	PostsCount Filter
	TermsCount Filter
	Posts      Filter
	Terms      Filter
}

func applyFilter(f Filter, c *Clauses) {
	if f != nil {
		f(c)
	}
}

// SQL assembles the clause parts into one statement.
func (c *Clauses) SQL() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(c.Select)
	b.WriteString(" FROM ")
	b.WriteString(c.From)

	for _, join := range c.Joins {
		b.WriteByte(' ')
		b.WriteString(join)
	}

	if len(c.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(c.Where, " AND "))
	}
	if c.GroupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(c.GroupBy)
	}
	if c.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(c.OrderBy)
	}
	if c.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(c.Limit))
	}
	if c.Offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(c.Offset))
	}

	return b.String()
}

// placeholders returns "?, ?, ..." for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
