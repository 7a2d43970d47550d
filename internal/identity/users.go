// Package identity contiene los colaboradores externos del authserver: el Identity
// Store (resource owners) y el registro de clients. Ambos se siembran desde config.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/codeflow/internal/security/password"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrUserNotFound       = errors.New("identity: user not found")
)

type User struct {
	Username string
	Email    string
	Metadata map[string]string
}

// UserStore verifica credenciales y resuelve el subject de un token a un perfil.
type UserStore interface {
	Authenticate(ctx context.Context, username, plain string) (User, error)
	Lookup(ctx context.Context, subject string) (User, error)
}

// UserSeed entrada de config. Si PasswordHash está vacío se hashea Password al cargar.
type UserSeed struct {
	Username     string
	Email        string
	Password     string
	PasswordHash string
	Metadata     map[string]string
}

type memoryUser struct {
	User
	hash string
}

// MemoryUserStore Identity Store en memoria con hashes argon2id.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]memoryUser
	// dummy se verifica cuando el usuario no existe, así el tiempo de respuesta
	// no distingue "usuario inexistente" de "password incorrecta".
	dummy string
}

func NewMemoryUserStore(p password.Params, seeds []UserSeed) (*MemoryUserStore, error) {
	dummy, err := password.Hash(p, "not-a-real-password")
	if err != nil {
		return nil, err
	}
	s := &MemoryUserStore{users: make(map[string]memoryUser, len(seeds)), dummy: dummy}
	for _, seed := range seeds {
		if seed.Username == "" {
			return nil, errors.New("identity: user without username")
		}
		hash := seed.PasswordHash
		if hash == "" {
			if hash, err = password.Hash(p, seed.Password); err != nil {
				return nil, fmt.Errorf("identity: hash password for %q: %w", seed.Username, err)
			}
		}
		s.users[seed.Username] = memoryUser{
			User: User{Username: seed.Username, Email: seed.Email, Metadata: copyMeta(seed.Metadata)},
			hash: hash,
		}
	}
	return s, nil
}

func (s *MemoryUserStore) Authenticate(_ context.Context, username, plain string) (User, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		_ = password.Verify(plain, s.dummy)
		return User{}, ErrInvalidCredentials
	}
	if !password.Verify(plain, u.hash) {
		return User{}, ErrInvalidCredentials
	}
	return u.clone(), nil
}

func (s *MemoryUserStore) Lookup(_ context.Context, subject string) (User, error) {
	s.mu.RLock()
	u, ok := s.users[subject]
	s.mu.RUnlock()
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u.clone(), nil
}

// Remove saca un usuario (tests de subject desaparecido).
func (s *MemoryUserStore) Remove(username string) {
	s.mu.Lock()
	delete(s.users, username)
	s.mu.Unlock()
}

func (u memoryUser) clone() User {
	out := u.User
	out.Metadata = copyMeta(u.Metadata)
	return out
}

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
