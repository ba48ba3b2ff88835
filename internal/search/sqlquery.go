// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"strings"

	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/util"
)

// SQLQuery is the SQL side of a record type's search: the table it reads,
// the columns that identify and date a record, and the conditions the
// query adds. Every value goes through a placeholder.
type SQLQuery struct {
	From       string // table expression, e.g. "discussions d"
	IDColumn   string
	DateColumn string

	conditions []string
	args       []any
}

// Table sets the table the query reads and the columns that identify and
// date its records.
func (q *SQLQuery) Table(from, idColumn, dateColumn string) {
	q.From = from
	q.IDColumn = idColumn
	q.DateColumn = dateColumn
}

// Where adds a condition. cond uses ? placeholders for args.
func (q *SQLQuery) Where(cond string, args ...any) {
	q.conditions = append(q.conditions, cond)
	q.args = append(q.args, args...)
}

// WhereIn restricts column to ids.
func (q *SQLQuery) WhereIn(column string, ids []int64) {
	q.Where(column+" IN ("+store.Placeholders(len(ids))+")", store.Int64Args(ids)...)
}

// WhereContainsAll requires every term to appear in at least one of the
// columns. The columns must hold text folded with util.FoldCase.
func (q *SQLQuery) WhereContainsAll(columns []string, terms []string) {
	for _, term := range terms {
		pattern := "%" + escapeLike(util.FoldCase(term)) + "%"
		parts := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, col := range columns {
			parts[i] = col + " LIKE ? ESCAPE '!'"
			args[i] = pattern
		}
		q.Where("("+strings.Join(parts, " OR ")+")", args...)
	}
}

// Conditions returns the WHERE clause and its arguments.
func (q *SQLQuery) Conditions() (string, []any) {
	if len(q.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(q.conditions, " AND "), q.args
}

// CountSQL returns the statement counting matching records.
func (q *SQLQuery) CountSQL() (string, []any) {
	where, args := q.Conditions()
	return "SELECT COUNT(*) FROM " + q.From + where, args
}

// SelectSQL returns the statement selecting the id and date of the first
// limit matching records.
func (q *SQLQuery) SelectSQL(ascending bool, limit int) (string, []any) {
	where, args := q.Conditions()
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	stmt := "SELECT " + q.IDColumn + ", " + q.DateColumn + " FROM " + q.From + where +
		" ORDER BY " + q.DateColumn + " " + dir + ", " + q.IDColumn + " " + dir + " LIMIT ?"
	return stmt, append(append([]any{}, args...), limit)
}

// escapeLike escapes LIKE wildcards using ! as the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
