package oauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
)

func authorizeReq(scope string) dto.AuthorizeRequest {
	return dto.AuthorizeRequest{
		ResponseType: "code",
		ClientID:     testClient,
		RedirectURI:  testRedirect,
		Scope:        scope,
		State:        "xyz",
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	a, err := f.authorize.Validate(ctx, authorizeReq("profile email profile"))
	require.NoError(t, err)
	require.Equal(t, testRedirect, a.RedirectURI)
	require.Equal(t, []string{"profile", "email"}, a.Scope)

	req := authorizeReq("profile")
	req.ResponseType = "token"
	_, err = f.authorize.Validate(ctx, req)
	require.ErrorIs(t, err, ErrUnsupportedResponseType)

	req = authorizeReq("profile")
	req.ClientID = "nope"
	_, err = f.authorize.Validate(ctx, req)
	require.ErrorIs(t, err, ErrUnknownClient)

	req = authorizeReq("profile")
	req.RedirectURI = "http://evil.example/cb"
	_, err = f.authorize.Validate(ctx, req)
	require.ErrorIs(t, err, ErrInvalidRedirect)
}

func TestValidateRedirectInference(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	req := authorizeReq("profile")
	req.RedirectURI = ""
	a, err := f.authorize.Validate(ctx, req)
	require.NoError(t, err)
	require.Equal(t, testRedirect, a.RedirectURI)

	req.ClientID = "multi"
	_, err = f.authorize.Validate(ctx, req)
	require.ErrorIs(t, err, ErrRedirectRequired)
}

func TestValidateScopeOutsideClientRedirectsBack(t *testing.T) {
	f := newFixture(t)
	req := dto.AuthorizeRequest{ResponseType: "code", ClientID: "narrow", Scope: "profile email", State: "s1"}

	a, err := f.authorize.Validate(t.Context(), req)
	require.ErrorIs(t, err, ErrInvalidScope)
	require.Equal(t, "https://n.example/cb", a.RedirectURI)

	loc, err := f.authorize.ErrorRedirect(a.RedirectURI, "invalid_scope", a.State)
	require.NoError(t, err)
	u, err := url.Parse(loc)
	require.NoError(t, err)
	require.Equal(t, "invalid_scope", u.Query().Get("error"))
	require.Equal(t, "s1", u.Query().Get("state"))

	_, err = f.authorize.Validate(t.Context(), authorizeReq("profile unknown"))
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestAuthenticateTicketIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	_, _, err := f.authorize.Authenticate(ctx, dto.LoginRequest{AuthorizeRequest: authorizeReq("profile"), Username: "user", Password: "bad"})
	require.ErrorIs(t, err, ErrLoginFailed)

	ticket, _, err := f.authorize.Authenticate(ctx, dto.LoginRequest{AuthorizeRequest: authorizeReq("profile email"), Username: "user", Password: "password"})
	require.NoError(t, err)
	require.NotEmpty(t, ticket)

	ct, err := f.authorize.Ticket(ctx, ticket)
	require.NoError(t, err)
	require.Equal(t, "user", ct.Subject)
	require.Equal(t, testClient, ct.ClientID)
	require.Equal(t, []string{"profile", "email"}, ct.Scope)
	require.Equal(t, "xyz", ct.State)

	_, err = f.authorize.Ticket(ctx, ticket)
	require.ErrorIs(t, err, ErrTicketNotFound)
	_, err = f.authorize.Ticket(ctx, "")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestApproveNeverWidensScope(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	loc, err := f.authorize.Approve(ctx, dto.ApproveRequest{
		ClientID:     testClient,
		RedirectURI:  testRedirect,
		Scope:        []string{"profile", "email"},
		GrantedScope: []string{"email", "metadata"},
		State:        "xyz",
		Subject:      "user",
	})
	require.NoError(t, err)

	u, err := url.Parse(loc)
	require.NoError(t, err)
	require.Equal(t, "xyz", u.Query().Get("state"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)

	resp, err := f.exchange(t, code)
	require.NoError(t, err)
	require.Equal(t, "email", resp.Scope)
}

func TestApprovePreservesRegisteredQuery(t *testing.T) {
	f := newFixture(t)
	loc, err := f.authorize.Approve(t.Context(), dto.ApproveRequest{
		ClientID:    "multi",
		RedirectURI: "https://b.example/cb?x=1",
		Scope:       []string{"profile"},
		State:       "st",
		Subject:     "user",
	})
	require.NoError(t, err)
	u, err := url.Parse(loc)
	require.NoError(t, err)
	require.Equal(t, "1", u.Query().Get("x"))
	require.NotEmpty(t, u.Query().Get("code"))
}

func TestDeny(t *testing.T) {
	f := newFixture(t)
	loc, err := f.authorize.Deny(t.Context(), dto.DenyRequest{RedirectURI: testRedirect, State: "xyz"})
	require.NoError(t, err)
	u, err := url.Parse(loc)
	require.NoError(t, err)
	require.Equal(t, "access_denied", u.Query().Get("error"))
	require.Equal(t, "xyz", u.Query().Get("state"))
	require.Empty(t, u.Query().Get("code"))
}

func TestScopeHelpers(t *testing.T) {
	require.Equal(t, []string{}, ParseScope("   "))
	require.Equal(t, []string{"a", "b"}, ParseScope("a b a"))
	require.Equal(t, []string{"b"}, Intersect([]string{"a", "b"}, []string{"b", "c"}))
	require.True(t, ScopeCatalog{}.Known([]string{"anything"}))

	c := NewScopeCatalog([]dto.ScopeView{{Name: "profile", Description: "Profile"}})
	require.Equal(t, []dto.ScopeView{{Name: "profile", Description: "Profile"}, {Name: "x", Description: "x"}},
		c.Describe([]string{"profile", "x"}))
}
