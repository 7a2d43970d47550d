package helpers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendQueryPreservesExisting(t *testing.T) {
	got, err := AppendQuery("http://localhost:5001/callback?tenant=a", url.Values{
		"code":  {"abc"},
		"state": {"xyz"},
		"empty": {""},
	})
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "a", u.Query().Get("tenant"))
	require.Equal(t, "abc", u.Query().Get("code"))
	require.Equal(t, "xyz", u.Query().Get("state"))
	require.False(t, u.Query().Has("empty"))

	_, err = AppendQuery("/relative", nil)
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/userinfo", nil)
	require.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	require.Equal(t, "abc.def", BearerToken(r))

	r.Header.Set("Authorization", "bearer   tok ")
	require.Equal(t, "tok", BearerToken(r))

	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	require.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer ")
	require.Empty(t, BearerToken(r))
}

func TestSessionCookies(t *testing.T) {
	o := CookieOptions{Name: "session_id", SameSite: "lax", TTL: time.Hour}
	c := BuildSessionCookie(o, "abc")
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, 3600, c.MaxAge)

	d := BuildDeletionCookie(o)
	require.Equal(t, -1, d.MaxAge)
	require.Equal(t, c.Name, d.Name)
	require.Equal(t, c.Path, d.Path)

	require.Equal(t, http.SameSiteStrictMode, ParseSameSite("Strict"))
	require.Equal(t, http.SameSiteLaxMode, ParseSameSite("bogus"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	require.Equal(t, "10.1.2.3", ClientIP(r))
	require.Equal(t, "10.1.2.3", ForwardedClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "10.1.2.3", ClientIP(r), "X-Forwarded-For no se usa sin proxy")
	require.Equal(t, "203.0.113.9", ForwardedClientIP(r))

	r.Header.Set("X-Forwarded-For", " , 10.0.0.1")
	require.Equal(t, "10.1.2.3", ForwardedClientIP(r))
}
