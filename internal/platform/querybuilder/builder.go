// Package querybuilder renders the small set of postgres statements the
// repositories need, numbering placeholders as $1, $2, ...
package querybuilder

import (
	"errors"
	"strconv"
	"strings"
)

// binder collects bound arguments while a statement is rendered.
type binder struct {
	args []any
}

// bind records v and returns its placeholder.
func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// expand replaces each '?' in expr with the next bound value. Extra '?' are
// kept verbatim.
func (b *binder) expand(expr string, values []any) string {
	if len(values) == 0 {
		return expr
	}
	var out strings.Builder
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && len(values) > 0 {
			out.WriteString(b.bind(values[0]))
			values = values[1:]
			continue
		}
		out.WriteByte(expr[i])
	}
	return out.String()
}

// Condition is one predicate joined with AND in a WHERE clause.
type Condition interface {
	render(sb *strings.Builder, b *binder)
}

type conditionFunc func(sb *strings.Builder, b *binder)

func (f conditionFunc) render(sb *strings.Builder, b *binder) { f(sb, b) }

func Eq(column string, value any) Condition {
	return conditionFunc(func(sb *strings.Builder, b *binder) {
		sb.WriteString(column + " = " + b.bind(value))
	})
}

// Between matches column values inside the inclusive range [low, high].
func Between(column string, low, high any) Condition {
	return conditionFunc(func(sb *strings.Builder, b *binder) {
		sb.WriteString(column + " BETWEEN " + b.bind(low) + " AND " + b.bind(high))
	})
}

// Expr is a raw predicate with '?' markers for args.
func Expr(expr string, args ...any) Condition {
	return conditionFunc(func(sb *strings.Builder, b *binder) {
		sb.WriteString(b.expand(expr, args))
	})
}

func writeWhere(sb *strings.Builder, b *binder, conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		c.render(sb, b)
	}
}

type SelectBuilder struct {
	columns []string
	table   string
	joins   []string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (s *SelectBuilder) From(table string) *SelectBuilder {
	s.table = strings.TrimSpace(table)
	return s
}

// Join appends an inner join clause, e.g. "scores AS s1 ON s1.battle_id = b.id".
func (s *SelectBuilder) Join(clause string) *SelectBuilder {
	if clause = strings.TrimSpace(clause); clause != "" {
		s.joins = append(s.joins, clause)
	}
	return s
}

func (s *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	s.where = append(s.where, conditions...)
	return s
}

func (s *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	s.orderBy = append(s.orderBy, parts...)
	return s
}

// Limit caps the row count. Zero or less means no LIMIT clause.
func (s *SelectBuilder) Limit(limit int) *SelectBuilder {
	s.limit = limit
	return s
}

func (s *SelectBuilder) ToSQL() (string, []any, error) {
	switch {
	case len(s.columns) == 0:
		return "", nil, errors.New("select columns are required")
	case s.table == "":
		return "", nil, errors.New("select table is required")
	}

	var (
		sb strings.Builder
		b  binder
	)
	sb.WriteString("SELECT " + strings.Join(s.columns, ", ") + " FROM " + s.table)
	for _, join := range s.joins {
		sb.WriteString(" JOIN " + join)
	}
	writeWhere(&sb, &b, s.where)
	if len(s.orderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(s.orderBy, ", "))
	}
	if s.limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(s.limit))
	}
	return sb.String(), b.args, nil
}

// InsertBuilder renders a single-row INSERT.
type InsertBuilder struct {
	table   string
	columns []string
	values  []any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: strings.TrimSpace(table)}
}

func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append([]string(nil), columns...)
	return i
}

func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append([]any(nil), values...)
	return i
}

// Suffix appends a trailing clause such as "RETURNING id".
func (i *InsertBuilder) Suffix(clause string) *InsertBuilder {
	i.suffix = strings.TrimSpace(clause)
	return i
}

func (i *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case i.table == "":
		return "", nil, errors.New("insert table is required")
	case len(i.columns) == 0:
		return "", nil, errors.New("insert columns are required")
	case len(i.values) != len(i.columns):
		return "", nil, errors.New("insert values must match columns: got " +
			strconv.Itoa(len(i.values)) + ", want " + strconv.Itoa(len(i.columns)))
	}

	var b binder
	placeholders := make([]string, len(i.values))
	for idx, v := range i.values {
		placeholders[idx] = b.bind(v)
	}

	query := "INSERT INTO " + i.table + " (" + strings.Join(i.columns, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ")"
	if i.suffix != "" {
		query += " " + i.suffix
	}
	return query, b.args, nil
}

type assignment struct {
	column string
	expr   string
	args   []any
}

type UpdateBuilder struct {
	table string
	sets  []assignment
	where []Condition
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: strings.TrimSpace(table)}
}

func (u *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, expr: "?", args: []any{value}})
	return u
}

// SetExpr assigns a raw expression, e.g. SetExpr("updated_at", "NOW()").
func (u *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, expr: expr, args: args})
	return u
}

func (u *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	u.where = append(u.where, conditions...)
	return u
}

func (u *UpdateBuilder) ToSQL() (string, []any, error) {
	switch {
	case u.table == "":
		return "", nil, errors.New("update table is required")
	case len(u.sets) == 0:
		return "", nil, errors.New("update sets are required")
	}

	var (
		sb strings.Builder
		b  binder
	)
	sb.WriteString("UPDATE " + u.table + " SET ")
	for idx, set := range u.sets {
		if idx > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(set.column + " = " + b.expand(set.expr, set.args))
	}
	writeWhere(&sb, &b, u.where)
	return sb.String(), b.args, nil
}
