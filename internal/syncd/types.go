// Package syncd implements the tenant-scoped file store, credential
// validator, and query engine shared by the request/response and event
// channel gateways.
package syncd

import "time"

// Permission is a credential capability.
type Permission string

const (
	PermRead  Permission = "read"
	PermWrite Permission = "write"
)

// Identity is the trusted result of a successful authentication,
// carried as an immutable value through handler invocations rather
// than attached to a connection or request object.
type Identity struct {
	TenantID     string
	CredentialID string
	IsAdmin      bool
	Permissions  map[Permission]bool
}

// Can reports whether the identity carries perm. Admins can do anything.
func (id Identity) Can(perm Permission) bool {
	if id.IsAdmin {
		return true
	}
	return id.Permissions[perm]
}

// FileRecord is a tenant-scoped file or tombstone row.
type FileRecord struct {
	ID        string
	TenantID  string
	Path      string
	Content   string
	Hash      string
	Size      int64
	Extension string
	IsBinary  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
}

// IsTombstone reports whether the record is a soft-deleted tombstone.
func (r *FileRecord) IsTombstone() bool {
	return r != nil && r.ExpiresAt != nil
}

// Credential is a tenant-scoped bearer-token row.
type Credential struct {
	ID          string
	TenantID    string
	Name        string
	Prefix      string
	Hash        string
	Permissions []Permission
	CreatedAt   time.Time
	LastUsedAt  *time.Time
	RevokedAt   *time.Time
}

// DefaultTombstoneTTL is the interval between soft-delete and
// eligibility for permanent removal when settings.tombstone_ttl_days
// is unset, per spec §3.
const DefaultTombstoneTTL = 30 * 24 * time.Hour

// MaxContentSize bounds the stored representation, per spec §4.2.
const MaxContentSize = 10 * 1024 * 1024

// MaxPathLength bounds path length, per spec §4.2/§3.
const MaxPathLength = 1000
