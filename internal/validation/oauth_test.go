package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidScopeName(t *testing.T) {
	for _, v := range []string{"a", "profile", "email", "metadata", "profile:read", "a_b-c.d:scope2", "a" + strings.Repeat("x", 62) + "b"} {
		require.True(t, ValidScopeName(v), v)
	}
	for _, v := range []string{"", ":lead", "trail:", "bad space", "UPPER", "semicolon;hack", "a" + strings.Repeat("x", 63) + "b"} {
		require.False(t, ValidScopeName(v), v)
	}
}

func TestValidClientID(t *testing.T) {
	require.True(t, ValidClientID("client123"))
	require.True(t, ValidClientID("my-app_01.web"))
	require.False(t, ValidClientID(""))
	require.False(t, ValidClientID("with space"))
	require.False(t, ValidClientID("a:b"))
	require.False(t, ValidClientID(strings.Repeat("x", 129)))
}

func TestValidRedirectURI(t *testing.T) {
	for _, v := range []string{
		"http://localhost:5001/callback",
		"https://app.example.com/cb?x=1",
	} {
		require.True(t, ValidRedirectURI(v), v)
	}
	for _, v := range []string{
		"",
		"/callback",
		"localhost:5001/callback",
		"ftp://example.com/cb",
		"https://app.example.com/cb#frag",
		"https://app.example.com/c b",
		"javascript:alert(1)",
	} {
		require.False(t, ValidRedirectURI(v), v)
	}
}
