package query

import (
	"strconv"
	"strings"
)

// Args collects positional arguments while a statement is built.
type Args interface {
	// Add records v and returns its placeholder ($1, $2, ...).
	Add(v any) string
}

type argList struct {
	values []any
}

func (a *argList) Add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// Condition represents a WHERE clause condition.
type Condition interface {
	// SQL returns the fragment for this condition, registering any
	// arguments it needs with args.
	SQL(args Args) string
}

type eqCondition struct {
	field string
	value any
}

// Eq creates a WHERE condition for equality comparison.
// Example: Eq("status", "approved") generates "status = $1"
func Eq(field string, value any) Condition {
	return &eqCondition{field: field, value: value}
}

func (c *eqCondition) SQL(args Args) string {
	return c.field + " = " + args.Add(c.value)
}

type containsCondition struct {
	field string
	term  string
}

// Contains creates a case-insensitive substring match. LIKE wildcards in
// term match literally.
// Example: Contains("name", "chat") generates "name ILIKE $1" with "%chat%"
func Contains(field, term string) Condition {
	return &containsCondition{field: field, term: term}
}

func (c *containsCondition) SQL(args Args) string {
	return c.field + " ILIKE " + args.Add("%"+EscapeLike(c.term)+"%")
}

type hasElementCondition struct {
	field string
	value any
}

// HasElement matches rows whose array column contains value exactly.
// Example: HasElement("tags", "chat") generates "$1 = ANY(tags)"
func HasElement(field string, value any) Condition {
	return &hasElementCondition{field: field, value: value}
}

func (c *hasElementCondition) SQL(args Args) string {
	return args.Add(c.value) + " = ANY(" + c.field + ")"
}

type orCondition struct {
	conditions []Condition
}

// Or joins conditions with OR inside parentheses.
// Example: Or(Eq("a", 1), Eq("b", 2)) generates "(a = $1 OR b = $2)"
func Or(conditions ...Condition) Condition {
	return &orCondition{conditions: conditions}
}

func (c *orCondition) SQL(args Args) string {
	parts := make([]string, 0, len(c.conditions))
	for _, cond := range c.conditions {
		parts = append(parts, cond.SQL(args))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// IsNull creates a WHERE condition for NULL checks.
// Example: IsNull("email_confirmed_at") generates "email_confirmed_at IS NULL"
func IsNull(field string) Condition {
	return &isNullCondition{field: field}
}

type isNullCondition struct {
	field string
}

func (c *isNullCondition) SQL(Args) string {
	return c.field + " IS NULL"
}

// IsNotNull creates a WHERE condition for NOT NULL checks.
func IsNotNull(field string) Condition {
	return &isNotNullCondition{field: field}
}

type isNotNullCondition struct {
	field string
}

func (c *isNotNullCondition) SQL(Args) string {
	return c.field + " IS NOT NULL"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE pattern metacharacters using PostgreSQL's default
// backslash escape.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
