package credentials

import (
	"os"
	"strings"
)

// DefaultEnvPrefix is prepended to the upper-cased key, so the "token"
// credential is read from GAMESTREAM_TOKEN.
const DefaultEnvPrefix = "GAMESTREAM_"

// EnvStore reads credentials from environment variables. It is read-only.
type EnvStore struct {
	Prefix string
}

func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{Prefix: prefix}
}

// VarName returns the environment variable consulted for key.
func (s *EnvStore) VarName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	return s.Prefix + name
}

func (s *EnvStore) Get(key string) (string, error) {
	value, ok := os.LookupEnv(s.VarName(key))
	if !ok || value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *EnvStore) Set(key, value string) error {
	return ErrReadOnly
}

func (s *EnvStore) Delete(key string) error {
	return ErrReadOnly
}
