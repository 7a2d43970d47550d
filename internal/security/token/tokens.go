// Package tokens genera valores opacos de alta entropía y sus huellas para almacenamiento.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Tamaños en bytes de entropía. Todos superan los 128 bits mínimos.
const (
	StateBytes   = 32
	CodeBytes    = 32
	TokenBytes   = 32
	SessionBytes = 24
	TicketBytes  = 24
)

// Generate devuelve nBytes aleatorios de crypto/rand en base64url sin padding.
func Generate(nBytes int) (string, error) {
	if nBytes < 16 {
		return "", fmt.Errorf("tokens: %d bytes is below 128 bits of entropy", nBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tokens: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash es la clave de almacenamiento de un valor secreto: sha256 en base64url.
// Los stores nunca indexan por el valor crudo.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Equal compara en tiempo constante (client secrets).
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
