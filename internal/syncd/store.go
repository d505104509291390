package syncd

import (
	"context"
	"database/sql"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Laisky/syncd/library/log"
)

// Store implements C3 (file records) and the credential persistence
// C1 depends on, over a single Postgres database reached through
// database/sql + jackc/pgx/v5/stdlib. Grounded on
// internal/mcp/files/service_write_delete.go, service_rename.go, and
// service_list.go's raw-SQL style (not that package's GORM-backed
// Service.db field — see DESIGN.md for why GORM was dropped).
type Store struct {
	db           *sql.DB
	async        *asyncPool
	cleanupSF    singleflight.Group
	tombstoneTTL time.Duration
}

// NewStore wraps db and starts the bounded async worker pool used for
// best-effort lastUsedAt touches and cleanup dispatch. ttl is the
// soft-delete-to-permanent-removal window (settings.tombstone_ttl_days);
// a non-positive value falls back to DefaultTombstoneTTL.
func NewStore(ctx context.Context, db *sql.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTombstoneTTL
	}
	return &Store{
		db:           db,
		async:        newAsyncPool(ctx, 4, 256),
		tombstoneTTL: ttl,
	}
}

// Close stops the background worker pool.
func (s *Store) Close() {
	s.async.close()
}

func scanFileRecord(row interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		r      FileRecord
		expire sql.NullTime
	)
	if err := row.Scan(
		&r.ID, &r.TenantID, &r.Path, &r.Content, &r.Hash, &r.Size,
		&r.Extension, &r.IsBinary, &r.CreatedAt, &r.UpdatedAt, &expire,
	); err != nil {
		return nil, err
	}
	if expire.Valid {
		t := expire.Time
		r.ExpiresAt = &t
	}
	return &r, nil
}

const fileColumns = `id, tenant_id, path, content, hash, size, extension, is_binary, created_at, updated_at, expires_at`

// Get returns the active (non-tombstoned) record at path, or a
// NOT_FOUND error.
func (s *Store) Get(ctx context.Context, tenantID, path string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE tenant_id = $1 AND path = $2 AND expires_at IS NULL`,
		tenantID, path)
	rec, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrCodeNotFound, "file not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "query file")
	}
	return rec, nil
}

// GetIncludingTombstones returns the record at path regardless of
// tombstone state, or nil if none exists (note: not a typed error,
// since this is an internal helper used by the detect-then-act paths
// below, not a caller-facing operation).
func (s *Store) GetIncludingTombstones(ctx context.Context, tx sqlDBTX, tenantID, path string) (*FileRecord, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE tenant_id = $1 AND path = $2`,
		tenantID, path)
	rec, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query file including tombstones")
	}
	return rec, nil
}

func (s *Store) insertFile(ctx context.Context, tx sqlDBTX, tenantID, path, content string) (*FileRecord, error) {
	now := time.Now().UTC()
	ext, isBinary := DeriveMetadata(path)
	rec := &FileRecord{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Path:      path,
		Content:   content,
		Hash:      ComputeHash(content),
		Size:      byteLen(content),
		Extension: ext,
		IsBinary:  isBinary,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO files (id, tenant_id, path, content, hash, size, extension, is_binary, created_at, updated_at, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULL)`,
		rec.ID, rec.TenantID, rec.Path, rec.Content, rec.Hash, rec.Size, rec.Extension, rec.IsBinary, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert file")
	}
	return rec, nil
}

// resurrect reuses a tombstoned row's id: clears expiresAt, rewrites
// content/hash/size/updatedAt/path/metadata, per spec §3's lifecycle
// and invariant 5.
func (s *Store) resurrect(ctx context.Context, tx sqlDBTX, existing *FileRecord, newPath, content string) (*FileRecord, error) {
	now := time.Now().UTC()
	ext, isBinary := DeriveMetadata(newPath)
	rec := &FileRecord{
		ID:        existing.ID,
		TenantID:  existing.TenantID,
		Path:      newPath,
		Content:   content,
		Hash:      ComputeHash(content),
		Size:      byteLen(content),
		Extension: ext,
		IsBinary:  isBinary,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE files SET path=$1, content=$2, hash=$3, size=$4, extension=$5, is_binary=$6, updated_at=$7, expires_at=NULL
		 WHERE id=$8`,
		rec.Path, rec.Content, rec.Hash, rec.Size, rec.Extension, rec.IsBinary, rec.UpdatedAt, rec.ID)
	if err != nil {
		return nil, errors.Wrap(err, "resurrect file")
	}
	return rec, nil
}

func (s *Store) updateContent(ctx context.Context, tx sqlDBTX, existing *FileRecord, content string) (*FileRecord, error) {
	now := time.Now().UTC()
	rec := *existing
	rec.Content = content
	rec.Hash = ComputeHash(content)
	rec.Size = byteLen(content)
	rec.UpdatedAt = now
	_, err := tx.ExecContext(ctx,
		`UPDATE files SET content=$1, hash=$2, size=$3, updated_at=$4 WHERE id=$5`,
		rec.Content, rec.Hash, rec.Size, rec.UpdatedAt, rec.ID)
	if err != nil {
		return nil, errors.Wrap(err, "update file content")
	}
	return &rec, nil
}

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// CreateEmpty implements the idempotent-discovery create: returns the
// active record if one exists, resurrects a tombstone, or inserts an
// empty record, per spec §4.3.
func (s *Store) CreateEmpty(ctx context.Context, tenantID, path string) (rec *FileRecord, created bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return withPathLock(ctx, tx, tenantID, path, func() error {
			existing, gerr := s.GetIncludingTombstones(ctx, tx, tenantID, path)
			if gerr != nil {
				return gerr
			}
			switch {
			case existing != nil && !existing.IsTombstone():
				rec, created = existing, false
				return nil
			case existing != nil && existing.IsTombstone():
				r, rerr := s.resurrect(ctx, tx, existing, path, "")
				if rerr != nil {
					return rerr
				}
				rec, created = r, true
				return nil
			default:
				r, ierr := s.insertFile(ctx, tx, tenantID, path, "")
				if ierr != nil {
					return ierr
				}
				rec, created = r, true
				return nil
			}
		})
	})
	return rec, created, err
}

// CreateStrict fails with CONFLICT if an active record exists;
// resurrects a tombstone or inserts otherwise, per spec §4.3.
func (s *Store) CreateStrict(ctx context.Context, tenantID, path, content string) (*FileRecord, error) {
	var rec *FileRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return withPathLock(ctx, tx, tenantID, path, func() error {
			existing, gerr := s.GetIncludingTombstones(ctx, tx, tenantID, path)
			if gerr != nil {
				return gerr
			}
			switch {
			case existing != nil && !existing.IsTombstone():
				return NewError(ErrCodeConflict, "file already exists")
			case existing != nil && existing.IsTombstone():
				r, rerr := s.resurrect(ctx, tx, existing, path, content)
				if rerr != nil {
					return rerr
				}
				rec = r
				return nil
			default:
				r, ierr := s.insertFile(ctx, tx, tenantID, path, content)
				if ierr != nil {
					return ierr
				}
				rec = r
				return nil
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Upsert updates the active record, resurrects a tombstone, or
// inserts, per spec §4.3.
func (s *Store) Upsert(ctx context.Context, tenantID, path, content string) (rec *FileRecord, created bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return withPathLock(ctx, tx, tenantID, path, func() error {
			existing, gerr := s.GetIncludingTombstones(ctx, tx, tenantID, path)
			if gerr != nil {
				return gerr
			}
			switch {
			case existing != nil && !existing.IsTombstone():
				r, uerr := s.updateContent(ctx, tx, existing, content)
				if uerr != nil {
					return uerr
				}
				rec, created = r, false
				return nil
			case existing != nil && existing.IsTombstone():
				r, rerr := s.resurrect(ctx, tx, existing, path, content)
				if rerr != nil {
					return rerr
				}
				rec, created = r, true
				return nil
			default:
				r, ierr := s.insertFile(ctx, tx, tenantID, path, content)
				if ierr != nil {
					return ierr
				}
				rec, created = r, true
				return nil
			}
		})
	})
	return rec, created, err
}

// SoftDelete atomically tombstones the active record at path.
// Missing and already-tombstoned targets both report deleted=false
// with no error, per spec §4.3.
func (s *Store) SoftDelete(ctx context.Context, tenantID, path string) (deleted bool, err error) {
	expiresAt := time.Now().UTC().Add(s.tombstoneTTL)
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET content='', hash=$1, size=0, expires_at=$2, updated_at=now()
		 WHERE tenant_id=$3 AND path=$4 AND expires_at IS NULL`,
		emptyHash, expiresAt, tenantID, path)
	if err != nil {
		return false, errors.Wrap(err, "soft delete file")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

// SoftDeleteAll tombstones every active record in the tenant.
func (s *Store) SoftDeleteAll(ctx context.Context, tenantID string) (int, error) {
	expiresAt := time.Now().UTC().Add(s.tombstoneTTL)
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET content='', hash=$1, size=0, expires_at=$2, updated_at=now()
		 WHERE tenant_id=$3 AND expires_at IS NULL`,
		emptyHash, expiresAt, tenantID)
	if err != nil {
		return 0, errors.Wrap(err, "soft delete all files")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return int(n), nil
}

// Rename implements spec §4.3's rename semantics. Deliberately does
// NOT leave a tombstone at oldPath after moving an active source (see
// DESIGN.md's Open Question decision #1 — preserved observable
// behavior, not mandated by spec).
func (s *Store) Rename(ctx context.Context, tenantID, oldPath, newPath string) (rec *FileRecord, created bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return withPathLock(ctx, tx, tenantID, oldPath, func() error {
			return withPathLock(ctx, tx, tenantID, newPath, func() error {
				source, serr := s.GetIncludingTombstones(ctx, tx, tenantID, oldPath)
				if serr != nil {
					return serr
				}
				if source == nil || source.IsTombstone() {
					return s.renameNoActiveSource(ctx, tx, tenantID, newPath, &rec, &created)
				}
				return s.renameActiveSource(ctx, tx, tenantID, source, newPath, &rec, &created)
			})
		})
	})
	return rec, created, err
}

func (s *Store) renameNoActiveSource(ctx context.Context, tx *sql.Tx, tenantID, newPath string, rec **FileRecord, created *bool) error {
	if _, err := s.softDeleteActiveTx(ctx, tx, tenantID, newPath); err != nil {
		return err
	}
	dest, err := s.GetIncludingTombstones(ctx, tx, tenantID, newPath)
	if err != nil {
		return err
	}
	if dest != nil && dest.IsTombstone() {
		r, rerr := s.resurrect(ctx, tx, dest, newPath, "")
		if rerr != nil {
			return rerr
		}
		*rec, *created = r, true
		return nil
	}
	r, ierr := s.insertFile(ctx, tx, tenantID, newPath, "")
	if ierr != nil {
		return ierr
	}
	*rec, *created = r, true
	return nil
}

func (s *Store) renameActiveSource(ctx context.Context, tx *sql.Tx, tenantID string, source *FileRecord, newPath string, rec **FileRecord, created *bool) error {
	if _, err := s.softDeleteActiveTx(ctx, tx, tenantID, newPath); err != nil {
		return err
	}
	// Hard-delete any destination tombstone to free the unique key,
	// per spec §4.3's rationale: the unique key spans active rows and
	// tombstones alike.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM files WHERE tenant_id=$1 AND path=$2 AND expires_at IS NOT NULL`,
		tenantID, newPath); err != nil {
		return errors.Wrap(err, "hard delete destination tombstone")
	}

	now := time.Now().UTC()
	ext, isBinary := DeriveMetadata(newPath)
	if _, err := tx.ExecContext(ctx,
		`UPDATE files SET path=$1, extension=$2, is_binary=$3, updated_at=$4 WHERE id=$5`,
		newPath, ext, isBinary, now, source.ID); err != nil {
		return errors.Wrap(err, "move file")
	}

	moved := *source
	moved.Path = newPath
	moved.Extension = ext
	moved.IsBinary = isBinary
	moved.UpdatedAt = now
	*rec, *created = &moved, false
	return nil
}

func (s *Store) softDeleteActiveTx(ctx context.Context, tx *sql.Tx, tenantID, path string) (bool, error) {
	expiresAt := time.Now().UTC().Add(s.tombstoneTTL)
	res, err := tx.ExecContext(ctx,
		`UPDATE files SET content='', hash=$1, size=0, expires_at=$2, updated_at=now()
		 WHERE tenant_id=$3 AND path=$4 AND expires_at IS NULL`,
		emptyHash, expiresAt, tenantID, path)
	if err != nil {
		return false, errors.Wrap(err, "soft delete destination")
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CleanupExpired permanently deletes tombstones past their TTL,
// across all tenants. Called fire-and-forget from list operations;
// concurrent callers collapse into a single pass via singleflight.
func (s *Store) CleanupExpired(ctx context.Context) {
	s.async.submit(func(bg context.Context) {
		_, _, _ = s.cleanupSF.Do("cleanup", func() (any, error) {
			res, err := s.db.ExecContext(bg, `DELETE FROM files WHERE expires_at IS NOT NULL AND expires_at < now()`)
			if err != nil {
				log.Logger.Warn("cleanup expired tombstones failed", zap.Error(err))
				return nil, err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				log.Logger.Info("cleaned up expired tombstones", zap.Int64("count", n))
			}
			return nil, nil
		})
	})
}

// FindCredentialByHash looks up a non-revoked credential by its
// SHA-256 hash, for C1's tenant-key authentication path.
func (s *Store) FindCredentialByHash(ctx context.Context, hash string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, prefix, hash, permissions, created_at, last_used_at, revoked_at
		 FROM credentials WHERE hash=$1`, hash)

	var (
		c            Credential
		permsCSV     string
		lastUsed     sql.NullTime
		revokedAt    sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Prefix, &c.Hash, &permsCSV, &c.CreatedAt, &lastUsed, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewError(ErrCodeNotFound, "credential not found")
		}
		return nil, errors.Wrap(err, "query credential")
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		c.LastUsedAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	for _, p := range strings.Split(permsCSV, ",") {
		if p != "" {
			c.Permissions = append(c.Permissions, Permission(p))
		}
	}
	return &c, nil
}

// TouchCredentialLastUsed best-effort updates lastUsedAt off the
// request path, per spec §4.1. Failures are logged and ignored.
func (s *Store) TouchCredentialLastUsed(ctx context.Context, credentialID string) {
	s.async.submit(func(bg context.Context) {
		if _, err := s.db.ExecContext(bg,
			`UPDATE credentials SET last_used_at=now() WHERE id=$1`, credentialID); err != nil {
			log.Logger.Warn("touch credential last_used_at failed", zap.Error(err))
		}
	})
}

// CreateTenant inserts a new tenant row. Administrative CRUD for
// tenants and credentials is out of scope as an HTTP surface per spec
// §1, but some mechanism must exist to provision them; this is driven
// from the CLI (cmd/tenant.go), not a REST endpoint.
func (s *Store) CreateTenant(ctx context.Context, name string) (id string, err error) {
	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx, `INSERT INTO tenants (id, name) VALUES ($1, $2)`, id, name)
	if err != nil {
		return "", errors.Wrap(err, "insert tenant")
	}
	return id, nil
}

// CreateCredential inserts a new credential row for tenantID and
// returns the one-time plaintext.
func (s *Store) CreateCredential(ctx context.Context, tenantID, name string, perms []Permission) (plaintext string, err error) {
	plaintext, hash, prefix, err := GenerateCredential(tenantID)
	if err != nil {
		return "", err
	}
	permStrs := make([]string, len(perms))
	for i, p := range perms {
		permStrs[i] = string(p)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, tenant_id, name, prefix, hash, permissions) VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), tenantID, name, prefix, hash, strings.Join(permStrs, ","))
	if err != nil {
		return "", errors.Wrap(err, "insert credential")
	}
	return plaintext, nil
}
