package jwt

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/codeflow/internal/store"
)

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	priv, err := LoadSigningKey("")
	require.NoError(t, err)
	return NewIssuer("http://localhost:5000", priv)
}

func TestMintVerify(t *testing.T) {
	iss := newIssuer(t)
	now := time.Now().Truncate(time.Second)
	raw, err := iss.Mint(store.AccessToken{
		ClientID: "client123", Subject: "user", Scope: []string{"profile", "email"},
		IssuedAt: now, ExpiresAt: now.Add(30 * time.Minute),
	})
	require.NoError(t, err)

	claims, err := iss.Parse(raw, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "user", claims.Subject)
	require.Equal(t, "profile email", claims.Scope)
	require.Equal(t, []string{"client123"}, []string(claims.Audience))
	require.NotEmpty(t, claims.ID)

	require.Error(t, iss.Verify(raw, now.Add(31*time.Minute)))
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	a, b := newIssuer(t), newIssuer(t)
	now := time.Now()
	raw, err := a.Mint(store.AccessToken{Subject: "user", IssuedAt: now, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	require.Error(t, b.Verify(raw, now))
	require.Error(t, a.Verify(raw+"x", now))
	require.Error(t, a.Verify("not-a-jwt", now))
}

func TestLoadSigningKeyFromSeed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	k1, err := LoadSigningKey(base64.StdEncoding.EncodeToString(seed))
	require.NoError(t, err)
	k2, err := LoadSigningKey(base64.RawURLEncoding.EncodeToString(seed))
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	_, err = LoadSigningKey(base64.StdEncoding.EncodeToString(seed[:10]))
	require.Error(t, err)
}

// el registro sigue mandando: JWT válido pero revocado no pasa.
func TestIssuerAsStoreMinter(t *testing.T) {
	ctx := context.Background()
	iss := newIssuer(t)
	m := store.NewMemory(store.Options{Minter: iss})

	at, err := m.Tokens.Issue(ctx, store.IssueTokenParams{ClientID: "client123", Subject: "user", Scope: []string{"profile"}})
	require.NoError(t, err)
	require.NoError(t, iss.Verify(at.Token, time.Now()))

	_, err = m.Tokens.Validate(ctx, at.Token)
	require.NoError(t, err)

	require.NoError(t, m.Tokens.Revoke(ctx, at.Token))
	_, err = m.Tokens.Validate(ctx, at.Token)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = m.Tokens.Validate(ctx, "eyJhbGciOiJub25lIn0.e30.")
	require.ErrorIs(t, err, store.ErrNotFound)
}
