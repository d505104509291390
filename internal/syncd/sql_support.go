package syncd

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// sqlDBTX describes operations shared by sql.DB and sql.Tx, so store
// methods can run against either a bare connection or a transaction.
type sqlDBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebindSQL rewrites `?` positional placeholders into Postgres's `$N`
// form, so the dynamic filter builder in query.go can compose queries
// with plain `?` and rebind once at the end.
func rebindSQL(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	arg := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(arg))
			arg++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
