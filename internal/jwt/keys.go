package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// LoadSigningKey decodifica un seed Ed25519 de 32 bytes en base64 (std o url).
// Vacío genera una clave efímera: los tokens no sobreviven a un reinicio, lo cual
// también vale para el registro en memoria.
func LoadSigningKey(seedB64 string) (ed25519.PrivateKey, error) {
	seedB64 = strings.TrimSpace(seedB64)
	if seedB64 == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	}
	var seed []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if seed, err = enc.DecodeString(seedB64); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("jwt: signing key is not base64: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("jwt: signing key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// KeyID huella estable de la clave pública.
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
