package syncd

import (
	"context"
	"database/sql"

	errors "github.com/Laisky/errors/v2"
)

// schemaStatements is a forward-only, idempotent DDL sequence. Grounded
// on internal/mcp/files/migration.go's partial-unique-index technique,
// reimplemented as plain SQL executed through database/sql instead of
// GORM AutoMigrate, per SPEC_FULL.md's persistence-engine expansion.
//
// Unlike the teacher's migration (which scopes its unique index to
// non-deleted rows), the unique index here covers every file row
// regardless of tombstone state, per spec §3: "Unique per tenant when
// considered jointly with the tombstone flag" resolves to "unique
// across all states" since a tombstone still occupies the (tenant,
// path) slot until it is hard-deleted (spec §4.3's rename step 2b).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		name TEXT NOT NULL DEFAULT '',
		prefix TEXT NOT NULL,
		hash TEXT NOT NULL,
		permissions TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_credentials_hash ON credentials(hash)`,
	`CREATE INDEX IF NOT EXISTS idx_credentials_tenant ON credentials(tenant_id)`,
	`CREATE TABLE IF NOT EXISTS files (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		hash TEXT NOT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		extension TEXT NOT NULL DEFAULT '',
		is_binary BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_files_tenant_path ON files(tenant_id, path)`,
	`CREATE INDEX IF NOT EXISTS idx_files_tenant ON files(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_files_expires_at ON files(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_files_tenant_extension ON files(tenant_id, extension)`,
}

// Migrate applies the schema. It is safe to call on every boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "apply migration statement: %s", stmt)
		}
	}
	return nil
}
