// Package auth resolves Roaring client credentials and builds API clients.
package auth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/davidfant/roaring-api/internal/config"
	"github.com/davidfant/roaring-api/internal/hostutil"
	"github.com/davidfant/roaring-api/internal/output"
	"github.com/davidfant/roaring-api/pkg/roaring"
)

// Credential sources reported by Manager.Credentials.
const (
	SourceEnv   = "env"
	SourceStore = "store"
)

// Manager resolves client credentials for the configured origin and creates
// authenticated roaring clients from them.
type Manager struct {
	cfg        *config.Config
	store      *Store
	httpClient *http.Client
	clientOpts []roaring.Option
}

// NewManager creates a new auth manager. opts are applied to every client
// the manager creates, after the base URL and HTTP client.
func NewManager(cfg *config.Config, httpClient *http.Client, opts ...roaring.Option) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      NewStore(config.GlobalConfigDir()),
		httpClient: httpClient,
		clientOpts: opts,
	}
}

// Origin returns the normalized base URL credentials are stored under.
func (m *Manager) Origin() string {
	return config.NormalizeBaseURL(m.cfg.BaseURL)
}

// Store returns the underlying credential store.
func (m *Manager) Store() *Store {
	return m.store
}

// Credentials returns the client credentials to use and where they came from.
// ROARING_CLIENT_ID and ROARING_CLIENT_SECRET take precedence over the store
// when both are set.
func (m *Manager) Credentials() (*ClientCredentials, string, error) {
	id, secret := os.Getenv("ROARING_CLIENT_ID"), os.Getenv("ROARING_CLIENT_SECRET")
	if id != "" && secret != "" {
		return &ClientCredentials{ClientID: id, ClientSecret: secret}, SourceEnv, nil
	}

	creds, err := m.store.Load(m.Origin())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", output.ErrAuth("No client credentials for " + m.Origin())
		}
		return nil, "", output.ErrAuth("Could not read stored credentials: " + err.Error())
	}
	return creds, SourceStore, nil
}

// IsAuthenticated reports whether credentials are available. It does not
// contact the API.
func (m *Manager) IsAuthenticated() bool {
	_, _, err := m.Credentials()
	return err == nil
}

// Client creates a roaring client from the resolved credentials. Creating the
// client performs the initial token exchange.
func (m *Manager) Client(ctx context.Context) (*roaring.Client, error) {
	creds, _, err := m.Credentials()
	if err != nil {
		return nil, err
	}
	return m.newClient(ctx, creds)
}

// Login verifies creds with a token exchange and stores them for the origin.
// Nothing is stored if the exchange fails.
func (m *Manager) Login(ctx context.Context, creds ClientCredentials) error {
	creds.ClientID = strings.TrimSpace(creds.ClientID)
	creds.ClientSecret = strings.TrimSpace(creds.ClientSecret)
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return output.ErrUsage("Client ID and client secret are both required")
	}

	if _, err := m.newClient(ctx, &creds); err != nil {
		return err
	}

	if err := m.store.Save(m.Origin(), &creds); err != nil {
		return output.ErrAPI(0, "Could not save credentials: "+err.Error())
	}
	return nil
}

// Logout removes stored credentials for the origin.
func (m *Manager) Logout() error {
	return m.store.Delete(m.Origin())
}

func (m *Manager) newClient(ctx context.Context, creds *ClientCredentials) (*roaring.Client, error) {
	if err := hostutil.RequireSecureURL(m.cfg.BaseURL); err != nil {
		return nil, output.ErrUsage(err.Error())
	}

	opts := []roaring.Option{
		roaring.WithBaseURL(m.cfg.BaseURL),
		roaring.WithHTTPClient(m.httpClient),
	}
	opts = append(opts, m.clientOpts...)

	return roaring.New(ctx, roaring.Credentials{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
	}, opts...)
}
