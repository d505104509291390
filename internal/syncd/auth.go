package syncd

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/syncd/library/log"
)

const (
	adminKeyPrefix = "sk_admin_"
	storeKeyPrefix = "sk_store_"
)

// CredentialStore is the subset of the store's persistence operations
// the key validator needs; satisfied by *syncd.Store.
type CredentialStore interface {
	FindCredentialByHash(ctx context.Context, hash string) (*Credential, error)
	TouchCredentialLastUsed(ctx context.Context, credentialID string)
}

// Authenticator implements C1: parse, classify, hash, and resolve a
// bearer credential to a tenant identity and permission set. Grounded
// on internal/mcp/files' AuthContext shape, reworked from that
// package's single-process credential model to spec §4.1's
// admin-vs-tenant prefix classification.
type Authenticator struct {
	adminKey string
	store    CredentialStore
}

// NewAuthenticator constructs a validator. adminKey is the full
// configured admin plaintext (including its "sk_admin_" prefix).
func NewAuthenticator(adminKey string, store CredentialStore) *Authenticator {
	return &Authenticator{adminKey: adminKey, store: store}
}

// Authenticate resolves a plaintext bearer credential to an Identity.
func (a *Authenticator) Authenticate(ctx context.Context, plaintext string) (Identity, error) {
	if plaintext == "" {
		return Identity{}, NewError(ErrCodeUnauthorized, "credential is required")
	}

	switch {
	case strings.HasPrefix(plaintext, adminKeyPrefix):
		return a.authenticateAdmin(plaintext)
	case strings.HasPrefix(plaintext, storeKeyPrefix):
		return a.authenticateTenant(ctx, plaintext)
	default:
		return Identity{}, NewError(ErrCodeInvalidKey, "credential has an unrecognized shape")
	}
}

func (a *Authenticator) authenticateAdmin(plaintext string) (Identity, error) {
	if a.adminKey == "" {
		return Identity{}, NewError(ErrCodeInvalidKey, "admin credential is not configured")
	}
	// Constant-time equality, no database lookup, per spec §4.1.
	if subtle.ConstantTimeCompare([]byte(plaintext), []byte(a.adminKey)) != 1 {
		return Identity{}, NewError(ErrCodeInvalidKey, "invalid admin credential")
	}
	return Identity{
		IsAdmin:     true,
		Permissions: map[Permission]bool{PermRead: true, PermWrite: true},
	}, nil
}

func (a *Authenticator) authenticateTenant(ctx context.Context, plaintext string) (Identity, error) {
	hash := HashCredential(plaintext)
	cred, err := a.store.FindCredentialByHash(ctx, hash)
	if err != nil {
		if IsCode(err, ErrCodeNotFound) {
			return Identity{}, NewError(ErrCodeInvalidKey, "credential not recognized")
		}
		// Store unavailability surfaces as UNAUTHORIZED so as not to
		// leak backend health on the auth path; /health is the signal.
		log.Logger.Warn("credential lookup failed", zap.Error(err))
		return Identity{}, NewError(ErrCodeUnauthorized, "credential could not be verified")
	}
	if cred.RevokedAt != nil {
		// Surfaced uniformly as INVALID_KEY per spec §4.1.
		return Identity{}, NewError(ErrCodeInvalidKey, "credential has been revoked")
	}

	perms := make(map[Permission]bool, len(cred.Permissions))
	for _, p := range cred.Permissions {
		perms[p] = true
	}

	a.store.TouchCredentialLastUsed(ctx, cred.ID)

	return Identity{
		TenantID:     cred.TenantID,
		CredentialID: cred.ID,
		Permissions:  perms,
	}, nil
}

// HashCredential returns the lowercase-hex SHA-256 digest used for
// credential-hash lookup and storage, per spec §4.1.
func HashCredential(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GenerateCredential creates a new tenant-scoped bearer token. The
// plaintext is returned exactly once; only Hash and Prefix are meant
// to be persisted by the caller.
func GenerateCredential(tenantID string) (plaintext, hash, prefix string, err error) {
	raw := make([]byte, 24)
	if _, err = rand.Read(raw); err != nil {
		return "", "", "", errors.Wrap(err, "read random bytes")
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	tenantPrefix := strings.ReplaceAll(tenantID, "-", "")
	if len(tenantPrefix) > 6 {
		tenantPrefix = tenantPrefix[:6]
	}

	plaintext = storeKeyPrefix + tenantPrefix + "_" + secret
	hash = HashCredential(plaintext)
	prefix = plaintext
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	return plaintext, hash, prefix, nil
}
