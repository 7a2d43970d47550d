package tokens

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateEntropyAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		v, err := Generate(CodeBytes)
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(v)
		require.NoError(t, err)
		require.Len(t, raw, CodeBytes)
		_, dup := seen[v]
		require.False(t, dup)
		seen[v] = struct{}{}
	}
}

func TestGenerateRejectsWeakSizes(t *testing.T) {
	_, err := Generate(8)
	require.Error(t, err)
}

func TestHashIsStableAndOpaque(t *testing.T) {
	require.Equal(t, Hash("abc"), Hash("abc"))
	require.NotEqual(t, Hash("abc"), Hash("abd"))
	require.NotContains(t, Hash("abc"), "abc")
}

func TestEqual(t *testing.T) {
	require.True(t, Equal("secret123", "secret123"))
	require.False(t, Equal("secret123", "secret124"))
	require.False(t, Equal("secret123", "secret1234"))
}
