package sqldb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"atelier/internal/config"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Dialect string

const (
	MySQL    Dialect = Dialect(config.DriverMySQL)
	Postgres Dialect = Dialect(config.DriverPostgres)
)

// Rebind rewrites the ? placeholders of query into the dialect's syntax.
// Queries are written for MySQL; Postgres gets $1, $2, ...
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

type boundQuerier struct {
	q       Querier
	dialect Dialect
}

// Bind wraps q so every query is rebound for dialect before it runs.
func Bind(dialect Dialect, q Querier) Querier {
	if dialect != Postgres {
		return q
	}
	return &boundQuerier{q: q, dialect: dialect}
}

func (b *boundQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.q.ExecContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *boundQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return b.q.QueryContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *boundQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return b.q.QueryRowContext(ctx, b.dialect.Rebind(query), args...)
}
