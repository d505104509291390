package postgres

import (
	"context"
	"database/sql"
	"time"

	errors "github.com/Laisky/errors/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps a connection-pooled postgres handle.
type DB struct {
	DB *sql.DB
}

// NewDB opens a pool against dsn (spec §6's DATABASE_URL) and applies
// the bounded-pool configuration recommended by spec §5: max 10
// concurrent leases, 30s idle timeout.
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err = db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &DB{DB: db}, nil
}
