package syncd

import (
	"context"
	"database/sql"
	"hash/fnv"

	errors "github.com/Laisky/errors/v2"
)

// pathLockKey derives a stable advisory-lock key from (tenant, path),
// per spec §5's requirement to serialize detect-then-act operations
// per (tenant, path).
func pathLockKey(tenantID, path string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tenantID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(path))
	return int64(h.Sum64())
}

// withPathLock runs fn with a transaction-scoped Postgres advisory
// lock held for (tenantID, path). The lock is released automatically
// at transaction end, so detect-then-act sequences (read record, then
// insert/resurrect/update) observe a consistent winner even under
// concurrent racers on the same path.
func withPathLock(ctx context.Context, tx *sql.Tx, tenantID, path string, fn func() error) error {
	key := pathLockKey(tenantID, path)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return errors.Wrap(err, "acquire path lock")
	}
	return fn()
}
