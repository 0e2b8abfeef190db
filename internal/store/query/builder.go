// Package query builds parameterized PostgreSQL SELECT statements for the
// catalog stores.
package query

import (
	"fmt"
	"strings"
)

// Direction represents ORDER BY direction.
type Direction int

const (
	// Asc represents ascending order.
	Asc Direction = iota
	// Desc represents descending order.
	Desc
)

// Statement is a built query ready for database/sql.
type Statement struct {
	SQL  string
	Args []any
}

type order struct {
	column    string
	direction Direction
}

// Builder constructs SQL SELECT queries for PostgreSQL.
// It provides a fluent API for building queries with joins, WHERE clauses,
// ORDER BY, LIMIT, and OFFSET. Positional placeholders ($1, $2, ...) are
// numbered at Build time so conditions never track their own indexes.
// Every method returns a copy; a Builder can be shared as a base query.
type Builder struct {
	table        string
	joins        []string
	selectCols   []string
	whereClauses []Condition
	orderBy      []order
	limitVal     int64
	offsetVal    int64
}

// From creates a new Builder for the specified table expression.
func From(table string) *Builder {
	return &Builder{table: table}
}

// Select specifies the columns to retrieve.
func (b *Builder) Select(columns ...string) *Builder {
	nb := b.clone()
	nb.selectCols = append(nb.selectCols, columns...)
	return nb
}

// Join appends a raw join clause, e.g. "JOIN categories c ON c.id = a.category_id".
func (b *Builder) Join(clause string) *Builder {
	nb := b.clone()
	nb.joins = append(nb.joins, clause)
	return nb
}

// Where adds a WHERE condition.
// Multiple calls are combined with AND logic.
func (b *Builder) Where(condition Condition) *Builder {
	nb := b.clone()
	nb.whereClauses = append(nb.whereClauses, condition)
	return nb
}

// OrderBy appends a sort column. The first call is the primary key;
// later calls break ties.
func (b *Builder) OrderBy(column string, direction Direction) *Builder {
	nb := b.clone()
	nb.orderBy = append(nb.orderBy, order{column: column, direction: direction})
	return nb
}

// Limit sets the maximum number of rows to return.
func (b *Builder) Limit(limit int64) *Builder {
	nb := b.clone()
	nb.limitVal = limit
	return nb
}

// Offset sets the number of rows to skip.
func (b *Builder) Offset(offset int64) *Builder {
	nb := b.clone()
	nb.offsetVal = offset
	return nb
}

// Count returns a new builder that generates a COUNT(*) query
// with the same FROM, JOIN and WHERE clauses.
func (b *Builder) Count() *Builder {
	nb := b.clone()
	nb.selectCols = []string{"COUNT(*)"}
	nb.limitVal = 0
	nb.offsetVal = 0
	nb.orderBy = nil
	return nb
}

// Build constructs the final statement with SQL and arguments.
func (b *Builder) Build() Statement {
	var sql strings.Builder
	args := &argList{}

	sql.WriteString("SELECT ")
	if len(b.selectCols) == 0 {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(b.selectCols, ", "))
	}

	sql.WriteString(" FROM ")
	sql.WriteString(b.table)

	for _, j := range b.joins {
		sql.WriteString(" ")
		sql.WriteString(j)
	}

	if len(b.whereClauses) > 0 {
		sql.WriteString(" WHERE ")
		parts := make([]string, 0, len(b.whereClauses))
		for _, c := range b.whereClauses {
			parts = append(parts, c.SQL(args))
		}
		sql.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		parts := make([]string, 0, len(b.orderBy))
		for _, o := range b.orderBy {
			dir := "ASC"
			if o.direction == Desc {
				dir = "DESC"
			}
			parts = append(parts, o.column+" "+dir)
		}
		sql.WriteString(strings.Join(parts, ", "))
	}

	if b.limitVal > 0 {
		sql.WriteString(" LIMIT ")
		sql.WriteString(args.Add(b.limitVal))
	}

	if b.offsetVal > 0 {
		sql.WriteString(" OFFSET ")
		sql.WriteString(args.Add(b.offsetVal))
	}

	return Statement{SQL: sql.String(), Args: args.values}
}

// clone creates a copy of the builder for immutability.
func (b *Builder) clone() *Builder {
	nb := *b
	nb.joins = append([]string(nil), b.joins...)
	nb.selectCols = append([]string(nil), b.selectCols...)
	nb.whereClauses = append([]Condition(nil), b.whereClauses...)
	nb.orderBy = append([]order(nil), b.orderBy...)
	return &nb
}

// String returns a human-readable representation for debugging.
func (b *Builder) String() string {
	stmt := b.Build()
	return fmt.Sprintf("SQL: %s\nArgs: %v", stmt.SQL, stmt.Args)
}
