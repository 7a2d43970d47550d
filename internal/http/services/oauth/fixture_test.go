package oauth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/codeflow/internal/cache"
	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	"github.com/dropDatabas3/codeflow/internal/identity"
	"github.com/dropDatabas3/codeflow/internal/security/password"
	"github.com/dropDatabas3/codeflow/internal/store"
)

const (
	testClient   = "client123"
	testSecret   = "secret123"
	testRedirect = "http://localhost:5001/callback"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	clk       *clock
	stores    *store.Memory
	users     *identity.MemoryUserStore
	clients   *identity.MemoryClientRegistry
	authorize AuthorizeService
	token     TokenService
	userinfo  UserInfoService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	stores := store.NewMemory(store.Options{Now: clk.Now})

	users, err := identity.NewMemoryUserStore(
		password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32},
		[]identity.UserSeed{{
			Username: "user",
			Email:    "user@example.com",
			Password: "password",
			Metadata: map[string]string{"firstname": "Lars", "lastname": "Jensen", "role": "admin"},
		}})
	require.NoError(t, err)

	clients, err := identity.NewMemoryClientRegistry([]identity.Client{
		{ID: testClient, Secret: testSecret, RedirectURIs: []string{testRedirect}},
		{ID: "multi", Secret: "s", RedirectURIs: []string{"https://a.example/cb", "https://b.example/cb?x=1"}},
		{ID: "narrow", Secret: "s", RedirectURIs: []string{"https://n.example/cb"}, AllowedScopes: []string{"profile"}},
	})
	require.NoError(t, err)

	catalog := NewScopeCatalog([]dto.ScopeView{
		{Name: "profile", Description: "Access your profile"},
		{Name: "email", Description: "Access your email"},
		{Name: ScopeMetadata, Description: "Access your metadata"},
	})

	return &fixture{
		clk:     clk,
		stores:  stores,
		users:   users,
		clients: clients,
		authorize: NewAuthorizeService(AuthorizeDeps{
			Clients: clients,
			Users:   users,
			Codes:   stores.Codes,
			Cache:   cache.NewMemory("test:"),
			Scopes:  catalog,
		}),
		token:    NewTokenService(TokenDeps{Clients: clients, Codes: stores.Codes, Tokens: stores.Tokens}),
		userinfo: NewUserInfoService(UserInfoDeps{Tokens: stores.Tokens, Users: users}),
	}
}

func (f *fixture) issueCode(t *testing.T, scope ...string) string {
	t.Helper()
	code, _, err := f.stores.Codes.Issue(t.Context(), store.IssueCodeParams{
		ClientID:    testClient,
		RedirectURI: testRedirect,
		Scope:       scope,
		Subject:     "user",
	})
	require.NoError(t, err)
	return code
}

func (f *fixture) exchange(t *testing.T, code string) (dto.TokenResponse, error) {
	t.Helper()
	return f.token.Exchange(t.Context(), dto.TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		Code:         code,
		RedirectURI:  testRedirect,
		ClientID:     testClient,
		ClientSecret: testSecret,
	})
}
