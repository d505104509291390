package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/syncd/internal/syncd"
)

func jsonReader(body string) io.Reader {
	return strings.NewReader(body)
}

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBroadcaster struct {
	events []syncd.Event
}

func (b *stubBroadcaster) Broadcast(_ string, ev syncd.Event) {
	b.events = append(b.events, ev)
}

func newTestServer(t *testing.T, pingOK bool) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if pingOK {
		mock.ExpectPing()
	} else {
		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	}

	auth := syncd.NewAuthenticator("sk_admin_test", nil)
	srv := NewServer(Config{
		Auth:        auth,
		Store:       syncd.NewStore(t.Context(), db, 0),
		DB:          db,
		Broadcaster: &stubBroadcaster{},
		Version:     "test",
	})
	return srv, mock
}

func TestHealthHealthy(t *testing.T) {
	srv, mock := newTestServer(t, true)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "connected", body["database"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthDegradedWhenDBDown(t *testing.T) {
	srv, mock := newTestServer(t, false)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "degraded", body["status"])
	require.Equal(t, "disconnected", body["database"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFilesRequiresAuthentication(t *testing.T) {
	srv, _ := newTestServer(t, true)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files?path=a.md", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateFileRejectsInvalidPathBeforeTouchingStore(t *testing.T) {
	srv, _ := newTestServer(t, true)

	body := `{"path":"bad<path>.md","content":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/files", jsonReader(body))
	req.Header.Set("X-API-Key", "sk_admin_test")
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, syncd.ErrCodeValidation, env.Error.Code)
}

type fakeCredentialStore struct {
	byHash map[string]*syncd.Credential
}

func (f *fakeCredentialStore) FindCredentialByHash(_ context.Context, hash string) (*syncd.Credential, error) {
	cred, ok := f.byHash[hash]
	if !ok {
		return nil, syncd.NewError(syncd.ErrCodeNotFound, "credential not found")
	}
	return cred, nil
}

func (f *fakeCredentialStore) TouchCredentialLastUsed(context.Context, string) {}

// newScopedCredential returns a store/plaintext pair for a tenant
// credential carrying exactly perms, for exercising requirePermission.
func newScopedCredential(perms ...syncd.Permission) (*fakeCredentialStore, string) {
	const plaintext = "sk_store_scoped_test_key"
	hash := syncd.HashCredential(plaintext)
	return &fakeCredentialStore{byHash: map[string]*syncd.Credential{
		hash: {ID: "cred-1", TenantID: "tenant-1", Permissions: perms},
	}}, plaintext
}

func newTestServerWithCredentials(t *testing.T, db *sql.DB, credStore syncd.CredentialStore) *Server {
	t.Helper()
	auth := syncd.NewAuthenticator("sk_admin_test", credStore)
	return NewServer(Config{
		Auth:        auth,
		Store:       syncd.NewStore(t.Context(), db, 0),
		DB:          db,
		Broadcaster: &stubBroadcaster{},
		Version:     "test",
	})
}

func TestCreateFileForbiddenForReadOnlyCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	credStore, apiKey := newScopedCredential(syncd.PermRead)
	srv := newTestServerWithCredentials(t, db, credStore)

	body := `{"path":"a.md","content":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/files", jsonReader(body))
	req.Header.Set("X-API-Key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, syncd.ErrCodeForbidden, env.Error.Code)
	// The store was never reached: no expectation was set, so any
	// query against it would fail this assertion.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFileAllowedForReadOnlyCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cols := []string{"id", "tenant_id", "path", "content", "hash", "size", "extension", "is_binary", "created_at", "updated_at", "expires_at"}
	mock.ExpectQuery(`SELECT .+ FROM files WHERE tenant_id = \$1 AND path = \$2 AND expires_at IS NULL`).
		WithArgs("tenant-1", "a.md").
		WillReturnRows(sqlmock.NewRows(cols))

	credStore, apiKey := newScopedCredential(syncd.PermRead)
	srv := newTestServerWithCredentials(t, db, credStore)

	req := httptest.NewRequest(http.MethodGet, "/files?path=a.md", nil)
	req.Header.Set("X-API-Key", apiKey)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	// Permission check passed (not 403); the file itself doesn't
	// exist, so the store's own NOT_FOUND surfaces instead.
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFileForbiddenForReadOnlyCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	credStore, apiKey := newScopedCredential(syncd.PermRead)
	srv := newTestServerWithCredentials(t, db, credStore)

	body := `{"path":"a.md","content":"x"}`
	req := httptest.NewRequest(http.MethodPut, "/files", jsonReader(body))
	req.Header.Set("X-API-Key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFileForbiddenForWriteOnlyCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	credStore, apiKey := newScopedCredential(syncd.PermWrite)
	srv := newTestServerWithCredentials(t, db, credStore)

	req := httptest.NewRequest(http.MethodGet, "/files?path=a.md", nil)
	req.Header.Set("X-API-Key", apiKey)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFileRejectsOversizedContent(t *testing.T) {
	srv, _ := newTestServer(t, true)

	big := make([]byte, syncd.MaxContentSize+1)
	for i := range big {
		big[i] = 'a'
	}
	payload, err := json.Marshal(createBody{Path: "a.md", Content: string(big)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/files", jsonReader(string(payload)))
	req.Header.Set("X-API-Key", "sk_admin_test")
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
