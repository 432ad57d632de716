package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidfant/roaring-api/internal/config"
	"github.com/davidfant/roaring-api/internal/output"
	"github.com/davidfant/roaring-api/pkg/roaring"
)

// tokenServer accepts only id1:secret1 and counts token requests.
func tokenServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		// base64("id1:secret1")
		if r.Header.Get("Authorization") != "Bearer aWQxOnNlY3JldDE=" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestManager(t *testing.T, baseURL string) *Manager {
	t.Helper()
	t.Setenv("ROARING_NO_KEYRING", "1")
	t.Setenv("ROARING_CLIENT_ID", "")
	t.Setenv("ROARING_CLIENT_SECRET", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	m := NewManager(&config.Config{BaseURL: baseURL}, http.DefaultClient)
	m.store = &Store{useKeyring: false, fallbackDir: t.TempDir()}
	return m
}

// =============================================================================
// Store
// =============================================================================

func TestNewStoreHonorsNoKeyring(t *testing.T) {
	t.Setenv("ROARING_NO_KEYRING", "1")
	store := NewStore(t.TempDir())

	assert.False(t, store.UsingKeyring())
	assert.Equal(t, "file", store.Backend())
}

func TestStoreFileBackend(t *testing.T) {
	tmpDir := t.TempDir()
	store := &Store{useKeyring: false, fallbackDir: tmpDir}

	origin := "https://api.roaring.io"
	creds := &ClientCredentials{ClientID: "id1", ClientSecret: "secret1"}

	require.NoError(t, store.Save(origin, creds))

	info, err := os.Stat(filepath.Join(tmpDir, "credentials.json"))
	require.NoError(t, err, "credentials file not created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load(origin)
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)
}

func TestStoreMultipleOrigins(t *testing.T) {
	store := &Store{useKeyring: false, fallbackDir: t.TempDir()}

	require.NoError(t, store.Save("https://api.roaring.io", &ClientCredentials{ClientID: "prod", ClientSecret: "s1"}))
	require.NoError(t, store.Save("https://sandbox.roaring.io", &ClientCredentials{ClientID: "sandbox", ClientSecret: "s2"}))

	prod, err := store.Load("https://api.roaring.io")
	require.NoError(t, err)
	assert.Equal(t, "prod", prod.ClientID)

	sandbox, err := store.Load("https://sandbox.roaring.io")
	require.NoError(t, err)
	assert.Equal(t, "sandbox", sandbox.ClientID)
}

func TestStoreDelete(t *testing.T) {
	store := &Store{useKeyring: false, fallbackDir: t.TempDir()}
	origin := "https://api.roaring.io"

	require.NoError(t, store.Save(origin, &ClientCredentials{ClientID: "id", ClientSecret: "s"}))
	require.NoError(t, store.Delete(origin))

	_, err := store.Load(origin)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(origin))
}

func TestStoreLoadMissing(t *testing.T) {
	store := &Store{useKeyring: false, fallbackDir: t.TempDir()}

	_, err := store.Load("https://nowhere.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "credentials.json"), []byte("{not json"), 0600))
	store := &Store{useKeyring: false, fallbackDir: tmpDir}

	_, err := store.Load("https://api.roaring.io")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStoreConcurrentSaves(t *testing.T) {
	store := &Store{useKeyring: false, fallbackDir: t.TempDir()}

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			origin := "https://origin" + string(rune('a'+i)) + ".example.com"
			assert.NoError(t, store.Save(origin, &ClientCredentials{ClientID: origin, ClientSecret: "s"}))
		}()
	}
	wg.Wait()

	all, err := store.loadAllFromFile()
	require.NoError(t, err)
	assert.Len(t, all, 10, "locked read-modify-write must not lose entries")
}

func TestKeyFunction(t *testing.T) {
	assert.Equal(t, "roaring::https://api.roaring.io", key("https://api.roaring.io"))
}

// =============================================================================
// Manager
// =============================================================================

func TestCredentialsFromEnv(t *testing.T) {
	m := newTestManager(t, "https://api.roaring.io")
	t.Setenv("ROARING_CLIENT_ID", "env-id")
	t.Setenv("ROARING_CLIENT_SECRET", "env-secret")

	creds, source, err := m.Credentials()
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, source)
	assert.Equal(t, "env-id", creds.ClientID)
}

func TestCredentialsEnvNeedsBothValues(t *testing.T) {
	m := newTestManager(t, "https://api.roaring.io")
	t.Setenv("ROARING_CLIENT_ID", "env-id")

	_, _, err := m.Credentials()
	require.Error(t, err)
	assert.Equal(t, output.CodeAuth, output.AsError(err).Code)
}

func TestCredentialsFromStore(t *testing.T) {
	m := newTestManager(t, "https://api.roaring.io/")
	require.NoError(t, m.store.Save("https://api.roaring.io", &ClientCredentials{ClientID: "id", ClientSecret: "s"}))

	creds, source, err := m.Credentials()
	require.NoError(t, err)
	assert.Equal(t, SourceStore, source)
	assert.Equal(t, "id", creds.ClientID)
	assert.True(t, m.IsAuthenticated())
}

func TestCredentialsMissing(t *testing.T) {
	m := newTestManager(t, "https://api.roaring.io")

	_, _, err := m.Credentials()
	require.Error(t, err)

	e := output.AsError(err)
	assert.Equal(t, output.CodeAuth, e.Code)
	assert.Equal(t, "Run: roaring auth login", e.Hint)
	assert.False(t, m.IsAuthenticated())
}

func TestLoginStoresVerifiedCredentials(t *testing.T) {
	srv, calls := tokenServer(t)
	m := newTestManager(t, srv.URL)

	err := m.Login(context.Background(), ClientCredentials{ClientID: " id1 ", ClientSecret: "secret1\n"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	stored, err := m.store.Load(m.Origin())
	require.NoError(t, err)
	assert.Equal(t, &ClientCredentials{ClientID: "id1", ClientSecret: "secret1"}, stored)
}

func TestLoginRejectedCredentialsNotStored(t *testing.T) {
	srv, _ := tokenServer(t)
	m := newTestManager(t, srv.URL)

	err := m.Login(context.Background(), ClientCredentials{ClientID: "id1", ClientSecret: "wrong"})
	require.Error(t, err)

	var authErr *roaring.AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	_, err = m.store.Load(m.Origin())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginRequiresBothFields(t *testing.T) {
	m := newTestManager(t, "https://api.roaring.io")

	err := m.Login(context.Background(), ClientCredentials{ClientID: "id1"})
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestLoginRefusesInsecureRemoteURL(t *testing.T) {
	m := newTestManager(t, "http://api.example.com")

	err := m.Login(context.Background(), ClientCredentials{ClientID: "id1", ClientSecret: "secret1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing insecure http://")
}

func TestClientUsesStoredCredentials(t *testing.T) {
	srv, calls := tokenServer(t)
	m := newTestManager(t, srv.URL)
	require.NoError(t, m.store.Save(m.Origin(), &ClientCredentials{ClientID: "id1", ClientSecret: "secret1"}))

	client, err := m.Client(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", client.AccessToken().Token)
	assert.Equal(t, srv.URL, client.BaseURL())
	assert.Equal(t, int32(1), calls.Load())
}

func TestLogout(t *testing.T) {
	m := newTestManager(t, "https://api.roaring.io")
	require.NoError(t, m.store.Save(m.Origin(), &ClientCredentials{ClientID: "id", ClientSecret: "s"}))

	require.NoError(t, m.Logout())
	assert.False(t, m.IsAuthenticated())
}
