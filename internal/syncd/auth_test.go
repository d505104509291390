package syncd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCredentialStore struct {
	byHash  map[string]*Credential
	touched []string
}

func (f *fakeCredentialStore) FindCredentialByHash(_ context.Context, hash string) (*Credential, error) {
	if c, ok := f.byHash[hash]; ok {
		return c, nil
	}
	return nil, NewError(ErrCodeNotFound, "credential not found")
}

func (f *fakeCredentialStore) TouchCredentialLastUsed(_ context.Context, credentialID string) {
	f.touched = append(f.touched, credentialID)
}

func TestAuthenticateAdminConstantTime(t *testing.T) {
	a := NewAuthenticator("sk_admin_secret", &fakeCredentialStore{byHash: map[string]*Credential{}})

	id, err := a.Authenticate(context.Background(), "sk_admin_secret")
	require.NoError(t, err)
	require.True(t, id.IsAdmin)
	require.True(t, id.Can(PermRead))
	require.True(t, id.Can(PermWrite))

	_, err = a.Authenticate(context.Background(), "sk_admin_wrong")
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeInvalidKey))
}

func TestAuthenticateTenantKey(t *testing.T) {
	plaintext, hash, _, err := GenerateCredential("tenant-123")
	require.NoError(t, err)

	store := &fakeCredentialStore{byHash: map[string]*Credential{
		hash: {ID: "cred-1", TenantID: "tenant-123", Hash: hash, Permissions: []Permission{PermRead, PermWrite}},
	}}
	a := NewAuthenticator("sk_admin_secret", store)

	id, err := a.Authenticate(context.Background(), plaintext)
	require.NoError(t, err)
	require.False(t, id.IsAdmin)
	require.Equal(t, "tenant-123", id.TenantID)
	require.Equal(t, "cred-1", id.CredentialID)
	require.True(t, id.Can(PermRead))
	require.True(t, id.Can(PermWrite))
	require.Equal(t, []string{"cred-1"}, store.touched)
}

func TestAuthenticateRevokedKeySurfacesAsInvalid(t *testing.T) {
	plaintext, hash, _, err := GenerateCredential("tenant-123")
	require.NoError(t, err)

	revokedAt := time.Now().UTC()
	store := &fakeCredentialStore{byHash: map[string]*Credential{
		hash: {ID: "cred-1", TenantID: "tenant-123", Hash: hash, RevokedAt: &revokedAt},
	}}
	a := NewAuthenticator("sk_admin_secret", store)

	_, err = a.Authenticate(context.Background(), plaintext)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeInvalidKey))
}

func TestAuthenticateUnknownKeyShape(t *testing.T) {
	a := NewAuthenticator("sk_admin_secret", &fakeCredentialStore{byHash: map[string]*Credential{}})

	_, err := a.Authenticate(context.Background(), "not-a-key")
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeInvalidKey))

	_, err = a.Authenticate(context.Background(), "")
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeUnauthorized))
}

func TestGenerateCredentialShapeAndPrefix(t *testing.T) {
	plaintext, hash, prefix, err := GenerateCredential("abcd1234-ef56-7890")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(plaintext, "sk_store_abcd12_"))
	require.Equal(t, HashCredential(plaintext), hash)
	require.Len(t, prefix, 16)
	require.Equal(t, plaintext[:16], prefix)
}
