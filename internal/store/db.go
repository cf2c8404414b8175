package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

// Page is a limit/offset window for list queries.
type Page struct {
	Limit  int
	Offset int
}

// filter accumulates WHERE clauses; each "?" in a clause binds to the
// clause's single argument.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, strings.ReplaceAll(clause, "?", "$"+itoa(len(f.args))))
}

func (f *filter) raw(clause string) {
	f.clauses = append(f.clauses, clause)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// paged returns the LIMIT/OFFSET suffix and the full argument list for it,
// leaving f.args usable for the matching COUNT query.
func (f *filter) paged(page Page) (string, []any) {
	args := append(append([]any{}, f.args...), page.Limit, page.Offset)
	n := len(args)
	return " LIMIT $" + itoa(n-1) + " OFFSET $" + itoa(n), args
}

func itoa(value int) string {
	return strconv.Itoa(value)
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func derefStringPtr(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// reader falls back to the store's own handle when no transaction is given.
func reader(q Getter, db DB) Getter {
	if q == nil {
		return db
	}
	return q
}

func writer(tx Execer, db DB) Execer {
	if tx == nil {
		return db
	}
	return tx
}
